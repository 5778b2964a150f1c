package tracker

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/stimstrain/core/classify"
	"github.com/huangsam/stimstrain/schema"
	"go.uber.org/zap"
)

// SessionStateKey is the state-store key of the session snapshot.
const SessionStateKey = "session"

// SessionStartKey returns the state-store key holding the first activity time of date.
func SessionStartKey(date string) string {
	return "session_start_" + date
}

// ParseSessionStart decodes a stored session start into epoch ms.
func ParseSessionStart(value []byte) (int64, bool) {
	if len(value) == 0 {
		return 0, false
	}
	ts, err := strconv.ParseInt(string(value), 10, 64)
	if err != nil {
		return 0, false
	}
	return ts, true
}

func int64Ptr(v int64) *int64 { return &v }

// cloneState deep-copies s.
func cloneState(s schema.SessionState) schema.SessionState {
	out := s
	if s.ActiveTabID != nil {
		id := *s.ActiveTabID
		out.ActiveTabID = &id
	}
	if s.TabActivatedAt != nil {
		out.TabActivatedAt = int64Ptr(*s.TabActivatedAt)
	}
	if s.LastAudioProbeAt != nil {
		out.LastAudioProbeAt = int64Ptr(*s.LastAudioProbeAt)
	}
	if s.LastMusicHeartbeatAt != nil {
		out.LastMusicHeartbeatAt = int64Ptr(*s.LastMusicHeartbeatAt)
	}
	return out
}

// restoreState loads the persisted snapshot and merges it over the defaults.
// A missing or malformed snapshot starts a fresh session.
func (r *Runtime) restoreState(ctx context.Context) {
	state := schema.DefaultSessionState()
	data, err := r.store.GetState(ctx, SessionStateKey)
	switch {
	case err != nil:
		r.log.Warn("failed to load session snapshot", zap.Error(err))
	case data != nil:
		if err := json.Unmarshal(data, &state); err != nil {
			r.log.Warn("discarding malformed session snapshot", zap.Error(err))
			state = schema.DefaultSessionState()
		}
	}
	if _, ok := schema.ValidIdleStates[state.IdleState]; !ok {
		state.IdleState = schema.IdleActive
	}
	state.LastAudioProbeAt = int64Ptr(r.now().UnixMilli())
	r.state = state
}

// saveState overwrites the persisted snapshot. Failures are logged; the next mutation retries.
func (r *Runtime) saveState() {
	data, err := json.Marshal(r.state)
	if err != nil {
		r.log.Error("failed to encode session snapshot", zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := r.store.SetState(ctx, SessionStateKey, data); err != nil {
		r.log.Warn("failed to save session snapshot", zap.Error(err))
	}
}

// setActiveTab switches the tracked tab. It does not accrue.
func (r *Runtime) setActiveTab(tabID int, rawURL string) {
	r.state.ActiveTabID = &tabID
	r.state.ActiveURL = rawURL
	r.state.ActiveDomain = classify.DomainOf(rawURL)
}

// updateActiveURL records in-tab navigation. It reports false when url is not a web
// URL or matches the current one.
func (r *Runtime) updateActiveURL(rawURL string) bool {
	if !classify.IsWebURL(rawURL) || rawURL == r.state.ActiveURL {
		return false
	}
	r.state.ActiveURL = rawURL
	r.state.ActiveDomain = classify.DomainOf(rawURL)
	return true
}

func (r *Runtime) setTabActivatedAt(ts *int64) {
	r.state.TabActivatedAt = ts
}

func (r *Runtime) clearMusicHeartbeat(now time.Time) {
	r.state.LastMusicHeartbeatAt = nil
	r.state.LastAudioProbeAt = int64Ptr(now.UnixMilli())
}

// minuteKey returns the local date and HH:MM of t.
func (r *Runtime) minuteKey(t time.Time) (date, minute string) {
	local := t.In(r.loc)
	return local.Format("2006-01-02"), local.Format("15:04")
}

// appendEvent writes a raw event with a fresh id. Failures are logged.
func (r *Runtime) appendEvent(e schema.Event) {
	e.ID = uuid.NewString()
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := r.store.AppendEvent(ctx, e); err != nil {
		r.log.Warn("failed to append event", zap.String("type", string(e.Type)), zap.Error(err))
	}
}

// ensureSessionStart records now as the first activity of its day unless one exists.
func (r *Runtime) ensureSessionStart(now time.Time) {
	date, _ := r.minuteKey(now)
	key := SessionStartKey(date)
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	existing, err := r.store.GetState(ctx, key)
	if err != nil {
		r.log.Warn("failed to read session start", zap.Error(err))
		return
	}
	if existing != nil {
		return
	}
	if err := r.store.SetState(ctx, key, []byte(strconv.FormatInt(now.UnixMilli(), 10))); err != nil {
		r.log.Warn("failed to save session start", zap.Error(err))
	}
}
