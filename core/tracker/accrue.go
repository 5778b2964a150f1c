package tracker

import (
	"context"
	"regexp"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/huangsam/stimstrain/core/classify"
	"github.com/huangsam/stimstrain/schema"
	"go.uber.org/zap"
)

var youtubePattern = regexp.MustCompile(`(?i)(?:youtube\.com|youtu\.be)`)

// audibleKind identifies which sub-counter audible playback is attributed to.
type audibleKind int

const (
	audibleSpotify audibleKind = iota + 1
	audibleYouTube
	audibleMusic
)

type audibleSource struct {
	kind audibleKind
	url  string
}

// pickAudibleSource prefers a streaming service, then video, then any other music site.
func pickAudibleSource(tabs []schema.Tab) *audibleSource {
	var web []schema.Tab
	for _, t := range tabs {
		if classify.IsWebURL(t.URL) {
			web = append(web, t)
		}
	}
	for _, t := range web {
		if classify.Classify(t.URL) == schema.CategorySpotify {
			return &audibleSource{kind: audibleSpotify, url: t.URL}
		}
	}
	for _, t := range web {
		if youtubePattern.MatchString(t.URL) {
			return &audibleSource{kind: audibleYouTube, url: t.URL}
		}
	}
	for _, t := range web {
		if classify.Classify(t.URL) == schema.CategoryMusic {
			return &audibleSource{kind: audibleMusic, url: t.URL}
		}
	}
	return nil
}

// newBucket returns a zeroed bucket for the minute of t, labeled from the active URL.
func (r *Runtime) newBucket(t time.Time) *schema.Bucket {
	local := t.In(r.loc)
	date, minute := r.minuteKey(t)
	start := time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), local.Minute(), 0, 0, r.loc)
	b := &schema.Bucket{
		Date:      date,
		Minute:    minute,
		Timestamp: start.UnixMilli(),
		Hour:      local.Hour(),
		Category:  schema.CategoryUnknown,
	}
	if r.state.ActiveURL != "" {
		b.Category = classify.Classify(r.state.ActiveURL)
		b.URL = r.state.ActiveURL
	}
	return b
}

// bucketFor returns the live bucket of the minute containing t. On rollover the old
// bucket is flushed first. A minute that was already flushed, including one earlier
// than the live minute, is reloaded so its counts are extended, not overwritten.
func (r *Runtime) bucketFor(t time.Time) *schema.Bucket {
	date, minute := r.minuteKey(t)
	key := schema.BucketKey(date, minute)

	if r.state.LastMinuteKey == key && r.live != nil {
		return r.live
	}
	if r.state.LastMinuteKey != key {
		r.flushLive()
		r.state.LastMinuteKey = key
	}
	r.live = r.loadBucket(t, key)
	return r.live
}

// loadBucket returns the queued or stored bucket for key, or a fresh one for t.
func (r *Runtime) loadBucket(t time.Time, key string) *schema.Bucket {
	if b, ok := r.unsaved[key]; ok {
		return &b
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	existing, err := r.store.GetBucket(ctx, key)
	if err != nil {
		r.log.Warn("failed to reload bucket", zap.String("key", key), zap.Error(err))
	}
	if existing != nil {
		return existing
	}
	return r.newBucket(t)
}

// accrue adds focused and audible time up to now and returns the seconds added.
func (r *Runtime) accrue(now time.Time, forceSave bool) int {
	return r.accrueFocused(now, forceSave) + r.accrueAudible(now)
}

// accrueFocused credits whole seconds elapsed since TabActivatedAt while the session is
// accruing. TabActivatedAt advances by the credited amount, not to now, so sub-second
// remainders carry over to the next accrual.
func (r *Runtime) accrueFocused(now time.Time, forceSave bool) int {
	if !r.state.Accruing() {
		return 0
	}
	seconds := (now.UnixMilli() - *r.state.TabActivatedAt) / 1000
	if seconds <= 0 {
		return 0
	}

	b := r.bucketFor(now)
	b.FocusedSeconds += int(seconds)
	if u := r.state.ActiveURL; classify.IsWebURL(u) {
		b.URL = u
		if classify.IsUnresolved(b.Category) {
			b.Category = classify.Classify(u)
		}
	}

	r.setTabActivatedAt(int64Ptr(*r.state.TabActivatedAt + seconds*1000))
	r.saveState()

	if forceSave {
		r.persist(*b)
	}
	return int(seconds)
}

// accrueAudible credits playback elapsed since the last probe to the audible source's
// sub-counters and always persists the bucket it touched. Host lookup failures mean
// no playback was observed.
func (r *Runtime) accrueAudible(now time.Time) int {
	if r.state.LastAudioProbeAt == nil {
		r.state.LastAudioProbeAt = int64Ptr(now.UnixMilli())
		r.saveState()
		return 0
	}
	seconds := (now.UnixMilli() - *r.state.LastAudioProbeAt) / 1000
	if seconds <= 0 {
		return 0
	}
	r.state.LastAudioProbeAt = int64Ptr(*r.state.LastAudioProbeAt + seconds*1000)

	if r.state.IdleState != schema.IdleActive {
		r.saveState()
		return 0
	}

	source := pickAudibleSource(r.audibleTabs())
	if source == nil {
		r.saveState()
		return 0
	}

	n := int(seconds)
	b := r.bucketFor(now)
	b.AudioPlayingSeconds += n
	switch source.kind {
	case audibleSpotify:
		b.StimulationSeconds += n
		b.SpotifySeconds += n
	case audibleYouTube:
		b.YouTubeWatchSeconds += n
	case audibleMusic:
		b.StimulationSeconds += n
		b.OtherMusicSeconds += n
	}

	if b.URL == "" {
		b.URL = source.url
	}
	if classify.IsUnresolved(b.Category) {
		if c := classify.Classify(source.url); c != schema.CategoryOther {
			b.Category = c
		}
	}

	r.saveState()
	r.persist(*b)
	return n
}

// audibleTabs queries the host for tabs producing sound, returning nil on failure.
func (r *Runtime) audibleTabs() []schema.Tab {
	if r.host == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.LookupTimeout)
	defer cancel()
	tabs, err := r.host.AudibleTabs(ctx)
	if err != nil {
		r.log.Debug("audible tab lookup failed", zap.Error(err))
		return nil
	}
	return tabs
}

// persist writes b with bounded retry. A bucket whose write keeps failing stays queued
// in memory and is retried on the next flush.
func (r *Runtime) persist(b schema.Bucket) bool {
	key := b.Key()
	op := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		return r.store.PutBucket(ctx, b)
	}
	policy := backoff.WithMaxRetries(r.newBackOff(), uint64(r.cfg.PersistRetries))
	if err := backoff.Retry(op, policy); err != nil {
		r.unsaved[key] = b
		r.log.Warn("failed to persist bucket", zap.String("key", key), zap.Error(err))
		return false
	}
	delete(r.unsaved, key)
	return true
}

// flushLive persists and detaches the live bucket.
func (r *Runtime) flushLive() {
	if r.live == nil {
		return
	}
	r.persist(*r.live)
	r.live = nil
}

// flushAll flushes the live bucket and retries every queued bucket.
func (r *Runtime) flushAll() {
	r.flushLive()
	for _, b := range r.unsaved {
		r.persist(b)
	}
}
