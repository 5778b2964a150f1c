package tracker

import (
	"context"
	"fmt"

	"github.com/huangsam/stimstrain/core/classify"
	"github.com/huangsam/stimstrain/schema"
	"go.uber.org/zap"
)

// OnTabActivated handles the user switching to tabID.
func (r *Runtime) OnTabActivated(ctx context.Context, tabID int) error {
	_, err := r.submit(ctx, func() int {
		now := r.now()
		n := r.accrue(now, true)

		if r.state.ActiveTabID != nil {
			r.bucketFor(now).Switches++
		}

		tab, err := r.lookupTab(tabID)
		if err != nil {
			r.setActiveTab(tabID, "")
		} else {
			r.setActiveTab(tab.ID, tab.URL)
		}
		r.setTabActivatedAt(int64Ptr(now.UnixMilli()))
		r.saveState()

		date, _ := r.minuteKey(now)
		r.appendEvent(schema.Event{
			Type:     schema.EventActiveTabChanged,
			TS:       now.UnixMilli(),
			Date:     date,
			TabID:    tabID,
			Domain:   r.state.ActiveDomain,
			Category: classify.Classify(r.state.ActiveURL),
			URL:      r.state.ActiveURL,
		})
		r.ensureSessionStart(now)
		return n
	})
	return err
}

// OnTabUpdated handles navigation inside a tab. Only the active tab is tracked.
func (r *Runtime) OnTabUpdated(ctx context.Context, tabID int, rawURL string) error {
	_, err := r.submit(ctx, func() int {
		if r.state.ActiveTabID == nil || *r.state.ActiveTabID != tabID {
			return 0
		}
		if !r.updateActiveURL(rawURL) {
			return 0
		}
		r.saveState()

		now := r.now()
		date, _ := r.minuteKey(now)
		r.appendEvent(schema.Event{
			Type:     schema.EventActiveTabChanged,
			TS:       now.UnixMilli(),
			Date:     date,
			TabID:    tabID,
			Domain:   r.state.ActiveDomain,
			Category: classify.Classify(rawURL),
			URL:      rawURL,
		})
		return 0
	})
	return err
}

// OnIdleStateChanged handles the host idle detector.
func (r *Runtime) OnIdleStateChanged(ctx context.Context, state schema.IdleState) error {
	if _, ok := schema.ValidIdleStates[state]; !ok {
		return fmt.Errorf("invalid idle state: %q", state)
	}
	_, err := r.submit(ctx, func() int {
		now := r.now()
		var n int
		if state != schema.IdleActive {
			n = r.accrue(now, true)
			r.state.IdleState = state
			r.setTabActivatedAt(nil)
			r.clearMusicHeartbeat(now)
		} else {
			r.state.IdleState = schema.IdleActive
			if r.state.WindowFocused {
				r.setTabActivatedAt(int64Ptr(now.UnixMilli()))
			} else {
				r.setTabActivatedAt(nil)
			}
		}
		r.saveState()
		return n
	})
	return err
}

// OnWindowFocusChanged handles the browser window gaining or losing focus.
func (r *Runtime) OnWindowFocusChanged(ctx context.Context, focused bool) error {
	_, err := r.submit(ctx, func() int {
		now := r.now()
		var n int
		wasFocused := r.state.WindowFocused
		switch {
		case wasFocused && !focused:
			n = r.accrue(now, true)
			r.setTabActivatedAt(nil)
			r.clearMusicHeartbeat(now)
		case !wasFocused && focused && r.state.IdleState == schema.IdleActive:
			r.setTabActivatedAt(int64Ptr(now.UnixMilli()))
		}
		r.state.WindowFocused = focused
		r.saveState()

		date, _ := r.minuteKey(now)
		r.appendEvent(schema.Event{
			Type:    schema.EventWindowFocus,
			TS:      now.UnixMilli(),
			Date:    date,
			Focused: &focused,
		})
		return n
	})
	return err
}

// OnContent applies a content signal to the live bucket and backfills its URL from
// the signal, its originating tab, or the active tab, in that order.
func (r *Runtime) OnContent(ctx context.Context, sig ContentSignal, origin SignalOrigin) error {
	_, err := r.submit(ctx, func() int {
		now := r.now()
		b := r.bucketFor(now)
		resolved := r.resolveURL(origin)

		switch s := sig.(type) {
		case ScrollBatch:
			b.Scrolls += countOrOne(s.Count)
			b.ScrollDistance += max(s.Distance, 0)
			r.setBucketURL(b, resolved)

		case Click:
			b.Clicks += countOrOne(s.Count)
			r.setBucketURL(b, resolved)

		case ShortWatched:
			switch s.Source {
			case schema.SourceYouTubeShorts:
				b.ShortsCount++
			case schema.SourceInstagramReels:
				b.ReelsCount++
			case schema.SourceTikTok:
				b.TiktoksCount++
			}
			shortURL := origin.URL
			if shortURL == "" {
				shortURL = resolved
			}
			if shortURL == "" {
				if tab, err := r.lookupActiveTab(); err == nil {
					shortURL = tab.URL
				}
			}
			r.setBucketURL(b, shortURL)

		case YouTubePlaying:
			r.setBucketURL(b, resolved)

		case MusicPlaying:
			r.state.LastMusicHeartbeatAt = int64Ptr(now.UnixMilli())
			r.setBucketURL(b, resolved)
			r.saveState()

		default:
			r.log.Warn("ignoring unknown content signal", zap.String("type", fmt.Sprintf("%T", sig)))
		}
		return 0
	})
	return err
}

// resolveURL picks the best known web URL for a content signal.
func (r *Runtime) resolveURL(origin SignalOrigin) string {
	if classify.IsWebURL(origin.URL) {
		return origin.URL
	}
	if origin.TabID != 0 {
		if tab, err := r.lookupTab(origin.TabID); err == nil && classify.IsWebURL(tab.URL) {
			return tab.URL
		}
	}
	if classify.IsWebURL(r.state.ActiveURL) {
		return r.state.ActiveURL
	}
	return ""
}

// setBucketURL adopts rawURL on b, keeps a specific category over a generic one, and
// persists the bucket.
func (r *Runtime) setBucketURL(b *schema.Bucket, rawURL string) {
	if !classify.IsWebURL(rawURL) {
		return
	}
	b.URL = rawURL
	if c := classify.Classify(rawURL); c != schema.CategoryOther || classify.IsUnresolved(b.Category) {
		b.Category = c
	}
	r.state.ActiveURL = rawURL
	r.state.ActiveDomain = classify.DomainOf(rawURL)
	r.persist(*b)
}

func (r *Runtime) lookupTab(tabID int) (schema.Tab, error) {
	if r.host == nil {
		return schema.Tab{}, fmt.Errorf("no host")
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.LookupTimeout)
	defer cancel()
	tab, err := r.host.GetTab(ctx, tabID)
	if err != nil {
		r.log.Debug("tab lookup failed", zap.Int("tab_id", tabID), zap.Error(err))
	}
	return tab, err
}

func (r *Runtime) lookupActiveTab() (schema.Tab, error) {
	if r.host == nil {
		return schema.Tab{}, fmt.Errorf("no host")
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.LookupTimeout)
	defer cancel()
	tab, err := r.host.ActiveTab(ctx)
	if err != nil {
		r.log.Debug("active tab lookup failed", zap.Error(err))
	}
	return tab, err
}
