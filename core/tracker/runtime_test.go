package tracker

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/huangsam/stimstrain/internal/contract"
	"github.com/huangsam/stimstrain/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var githubTab = schema.Tab{ID: 7, URL: "https://github.com/huangsam/stimstrain", Active: true}

func TestRuntime_AccruesFocusedTime(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()
	store := newMemStore()
	r, clock := startRuntime(t, store, newHost(githubTab))
	defer closeRuntime(t, r)

	require.NoError(t, r.OnTabActivated(ctx, githubTab.ID))

	clock.Set(t0.Add(30*time.Second + 400*time.Millisecond))
	n, err := r.Accrue(ctx, clock.Now(), false)
	require.NoError(t, err)
	assert.Equal(t, 30, n)

	live, err := r.LiveBucket(ctx)
	require.NoError(t, err)
	require.NotNil(t, live)
	assert.Equal(t, "2025-03-04", live.Date)
	assert.Equal(t, "10:00", live.Minute)
	assert.Equal(t, 10, live.Hour)
	assert.Equal(t, t0.UnixMilli(), live.Timestamp)
	assert.Equal(t, 30, live.FocusedSeconds)
	assert.Equal(t, githubTab.URL, live.URL)
	assert.Equal(t, schema.CategoryDocsWork, live.Category)

	// The sub-second remainder carries over
	state, err := r.State(ctx)
	require.NoError(t, err)
	require.NotNil(t, state.TabActivatedAt)
	assert.Equal(t, t0.Add(30*time.Second).UnixMilli(), *state.TabActivatedAt)
	assert.Equal(t, "github.com", state.ActiveDomain)

	events := store.allEvents()
	require.Len(t, events, 1)
	assert.Equal(t, schema.EventActiveTabChanged, events[0].Type)
	assert.Equal(t, schema.CategoryDocsWork, events[0].Category)
	assert.NotEmpty(t, events[0].ID)

	start, ok := ParseSessionStart(store.stateValue(SessionStartKey("2025-03-04")))
	assert.True(t, ok)
	assert.Equal(t, t0.UnixMilli(), start)

	var snapshot schema.SessionState
	require.NoError(t, json.Unmarshal(store.stateValue(SessionStateKey), &snapshot))
	require.NotNil(t, snapshot.ActiveTabID)
	assert.Equal(t, githubTab.ID, *snapshot.ActiveTabID)
}

func TestRuntime_ConcurrentAccrualNeverDoubleCounts(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()
	store := newMemStore()
	r, _ := startRuntime(t, store, newHost(githubTab))
	defer closeRuntime(t, r)

	require.NoError(t, r.OnTabActivated(ctx, githubTab.ID))

	const triggers = 40
	results := make(chan int, triggers)
	var wg sync.WaitGroup
	for i := triggers; i >= 1; i-- {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			n, err := r.Accrue(ctx, t0.Add(time.Duration(i)*time.Second), false)
			assert.NoError(t, err)
			results <- n
		}(i)
	}
	wg.Wait()
	close(results)

	total := 0
	for n := range results {
		total += n
	}
	assert.Equal(t, triggers, total)

	live, err := r.LiveBucket(ctx)
	require.NoError(t, err)
	require.NotNil(t, live)
	assert.Equal(t, triggers, live.FocusedSeconds)

	// Crossing into the next minute flushes the first bucket
	n, err := r.Accrue(ctx, t0.Add(90*time.Second), false)
	require.NoError(t, err)
	assert.Equal(t, 90-triggers, n)

	first, ok := store.bucket("2025-03-04_10:00")
	require.True(t, ok)
	assert.Equal(t, triggers, first.FocusedSeconds)

	live, err = r.LiveBucket(ctx)
	require.NoError(t, err)
	assert.Equal(t, "10:01", live.Minute)
	assert.Equal(t, 90-triggers, live.FocusedSeconds)
}

func TestRuntime_IdleStopsAccrual(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()
	store := newMemStore()
	r, clock := startRuntime(t, store, newHost(githubTab))
	defer closeRuntime(t, r)

	require.NoError(t, r.OnTabActivated(ctx, githubTab.ID))

	clock.Set(t0.Add(10 * time.Second))
	require.NoError(t, r.OnIdleStateChanged(ctx, schema.IdleIdle))

	// Forced save on the transition
	b, ok := store.bucket("2025-03-04_10:00")
	require.True(t, ok)
	assert.Equal(t, 10, b.FocusedSeconds)

	n, err := r.Accrue(ctx, t0.Add(60*time.Second), false)
	require.NoError(t, err)
	assert.Zero(t, n)

	clock.Set(t0.Add(70 * time.Second))
	require.NoError(t, r.OnIdleStateChanged(ctx, schema.IdleActive))
	n, err = r.Accrue(ctx, t0.Add(80*time.Second), false)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	assert.Error(t, r.OnIdleStateChanged(ctx, schema.IdleState("asleep")))
}

func TestRuntime_WindowFocus(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()
	store := newMemStore()
	r, clock := startRuntime(t, store, newHost(githubTab))
	defer closeRuntime(t, r)

	require.NoError(t, r.OnTabActivated(ctx, githubTab.ID))

	clock.Set(t0.Add(15 * time.Second))
	require.NoError(t, r.OnWindowFocusChanged(ctx, false))

	state, err := r.State(ctx)
	require.NoError(t, err)
	assert.False(t, state.WindowFocused)
	assert.Nil(t, state.TabActivatedAt)
	assert.False(t, state.Accruing())

	n, err := r.Accrue(ctx, t0.Add(45*time.Second), false)
	require.NoError(t, err)
	assert.Zero(t, n)

	clock.Set(t0.Add(50 * time.Second))
	require.NoError(t, r.OnWindowFocusChanged(ctx, true))
	n, err = r.Accrue(ctx, t0.Add(55*time.Second), false)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	live, err := r.LiveBucket(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, live.FocusedSeconds)

	events := store.allEvents()
	require.Len(t, events, 3)
	assert.Equal(t, schema.EventWindowFocus, events[1].Type)
	require.NotNil(t, events[1].Focused)
	assert.False(t, *events[1].Focused)
	assert.True(t, *events[2].Focused)
}

func TestRuntime_SwitchesCountOnlyAfterFirstTab(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()
	reddit := schema.Tab{ID: 9, URL: "https://www.reddit.com/r/golang"}
	store := newMemStore()
	r, clock := startRuntime(t, store, newHost(githubTab, reddit))
	defer closeRuntime(t, r)

	require.NoError(t, r.OnTabActivated(ctx, githubTab.ID))
	clock.Set(t0.Add(5 * time.Second))
	require.NoError(t, r.OnTabActivated(ctx, reddit.ID))
	clock.Set(t0.Add(8 * time.Second))
	require.NoError(t, r.OnTabActivated(ctx, 404)) // lookup fails

	live, err := r.LiveBucket(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, live.Switches)
	assert.Equal(t, 8, live.FocusedSeconds)

	state, err := r.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, 404, *state.ActiveTabID)
	assert.Empty(t, state.ActiveURL)
	assert.Equal(t, "", state.ActiveDomain)
}

func TestRuntime_OnTabUpdated(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()
	store := newMemStore()
	r, _ := startRuntime(t, store, newHost(githubTab))
	defer closeRuntime(t, r)

	require.NoError(t, r.OnTabActivated(ctx, githubTab.ID))

	require.NoError(t, r.OnTabUpdated(ctx, 99, "https://www.youtube.com/shorts/abc")) // not active
	require.NoError(t, r.OnTabUpdated(ctx, githubTab.ID, "chrome://settings"))        // not web
	require.NoError(t, r.OnTabUpdated(ctx, githubTab.ID, githubTab.URL))              // unchanged
	assert.Len(t, store.allEvents(), 1)

	require.NoError(t, r.OnTabUpdated(ctx, githubTab.ID, "https://www.youtube.com/shorts/abc"))
	events := store.allEvents()
	require.Len(t, events, 2)
	assert.Equal(t, schema.CategoryYouTubeShorts, events[1].Category)
	assert.Equal(t, "youtube.com", events[1].Domain)

	state, err := r.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://www.youtube.com/shorts/abc", state.ActiveURL)
}

func TestRuntime_ReloadsFlushedMinute(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()
	store := newMemStore()
	store.buckets["2025-03-04_10:00"] = schema.Bucket{
		Date: "2025-03-04", Minute: "10:00", Hour: 10, Clicks: 5, FocusedSeconds: 12, Category: schema.CategoryUnknown,
	}
	store.state[SessionStateKey] = []byte(`{"last_minute_key":"2025-03-04_10:00"}`)

	r, _ := startRuntime(t, store, newHost())
	defer closeRuntime(t, r)

	require.NoError(t, r.OnContent(ctx, Click{Count: 2}, SignalOrigin{URL: "https://www.reddit.com/r/golang/"}))

	b, ok := store.bucket("2025-03-04_10:00")
	require.True(t, ok)
	assert.Equal(t, 7, b.Clicks)
	assert.Equal(t, 12, b.FocusedSeconds)
	assert.Equal(t, schema.CategoryRedditFeed, b.Category)
}

func TestRuntime_EarlierMinuteMergesIntoStoredCounts(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()
	store := newMemStore()
	r, clock := startRuntime(t, store, newHost(githubTab))
	defer closeRuntime(t, r)

	clock.Set(t0.Add(50 * time.Second))
	require.NoError(t, r.OnTabActivated(ctx, githubTab.ID))
	clock.Set(t0.Add(55 * time.Second))
	require.NoError(t, r.OnContent(ctx, Click{Count: 3}, SignalOrigin{}))
	clock.Set(t0.Add(65 * time.Second))
	require.NoError(t, r.OnContent(ctx, Click{}, SignalOrigin{}))

	// Accrual stamped in 10:00 after the clock rolled to 10:01
	n, err := r.Accrue(ctx, t0.Add(59*time.Second), true)
	require.NoError(t, err)
	assert.Equal(t, 9, n)

	first, ok := store.bucket("2025-03-04_10:00")
	require.True(t, ok)
	assert.Equal(t, 3, first.Clicks)
	assert.Equal(t, 9, first.FocusedSeconds)

	// Back on the wall clock, 10:01 keeps its stored click
	clock.Set(t0.Add(70 * time.Second))
	require.NoError(t, r.OnContent(ctx, Click{}, SignalOrigin{}))
	require.NoError(t, r.Flush(ctx))

	first, ok = store.bucket("2025-03-04_10:00")
	require.True(t, ok)
	assert.Equal(t, 3, first.Clicks)
	assert.Equal(t, 9, first.FocusedSeconds)

	second, ok := store.bucket("2025-03-04_10:01")
	require.True(t, ok)
	assert.Equal(t, 2, second.Clicks)
	assert.Equal(t, 11, second.FocusedSeconds)
}

func TestRuntime_RolloverReloadsQueuedBucket(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()
	store := newMemStore()
	r, clock := startRuntime(t, store, newHost())
	defer closeRuntime(t, r)

	store.mu.Lock()
	store.failPuts = 4 // the click write and the rollover flush, each with one retry
	store.mu.Unlock()

	reddit := SignalOrigin{URL: "https://www.reddit.com/r/golang/"}
	clock.Set(t0.Add(55 * time.Second))
	require.NoError(t, r.OnContent(ctx, Click{Count: 3}, reddit))
	clock.Set(t0.Add(65 * time.Second))
	require.NoError(t, r.OnContent(ctx, Click{}, reddit))
	_, ok := store.bucket("2025-03-04_10:00")
	assert.False(t, ok)

	// A late signal for 10:00 extends the queued copy
	clock.Set(t0.Add(58 * time.Second))
	require.NoError(t, r.OnContent(ctx, Click{}, reddit))

	first, ok := store.bucket("2025-03-04_10:00")
	require.True(t, ok)
	assert.Equal(t, 4, first.Clicks)

	second, ok := store.bucket("2025-03-04_10:01")
	require.True(t, ok)
	assert.Equal(t, 1, second.Clicks)
}

func TestRuntime_ContentSignals(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()
	host := &contract.MockHostLookup{}
	host.On("AudibleTabs", mock.Anything).Return([]schema.Tab(nil), nil).Maybe()
	host.On("GetTab", mock.Anything, mock.Anything).Return(schema.Tab{}, assert.AnError).Maybe()
	host.On("ActiveTab", mock.Anything).Return(schema.Tab{ID: 3, URL: "https://www.youtube.com/shorts/xyz"}, nil).Maybe()

	store := newMemStore()
	r, _ := startRuntime(t, store, host)
	defer closeRuntime(t, r)

	require.NoError(t, r.OnContent(ctx, ShortWatched{Source: schema.SourceYouTubeShorts}, SignalOrigin{}))
	require.NoError(t, r.OnContent(ctx, ShortWatched{Source: schema.SourceTikTok}, SignalOrigin{URL: "https://www.tiktok.com/@a/video/1"}))
	require.NoError(t, r.OnContent(ctx, ScrollBatch{Distance: 640}, SignalOrigin{}))
	require.NoError(t, r.OnContent(ctx, ScrollBatch{Count: 4, Distance: -5}, SignalOrigin{}))
	require.NoError(t, r.OnContent(ctx, Click{}, SignalOrigin{}))
	require.NoError(t, r.OnContent(ctx, MusicPlaying{Seconds: 5}, SignalOrigin{URL: "https://open.spotify.com/track/1"}))
	require.NoError(t, r.OnContent(ctx, unknownSignal{}, SignalOrigin{}))

	live, err := r.LiveBucket(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, live.ShortsCount)
	assert.Equal(t, 1, live.TiktoksCount)
	assert.Equal(t, 5, live.Scrolls)
	assert.Equal(t, 640, live.ScrollDistance)
	assert.Equal(t, 1, live.Clicks)
	assert.Equal(t, schema.CategorySpotify, live.Category)
	assert.Equal(t, "https://open.spotify.com/track/1", live.URL)
	assert.Zero(t, live.SpotifySeconds, "heartbeat seconds are not credited")
	assert.Zero(t, live.StimulationSeconds)

	state, err := r.State(ctx)
	require.NoError(t, err)
	assert.NotNil(t, state.LastMusicHeartbeatAt)
	assert.Equal(t, "open.spotify.com", state.ActiveDomain)
}

// unknownSignal satisfies ContentSignal without being one of its variants.
type unknownSignal struct{ ContentSignal }

func TestRuntime_AudiblePlayback(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()
	host := &contract.MockHostLookup{}
	host.On("AudibleTabs", mock.Anything).Return([]schema.Tab{
		{ID: 1, URL: "https://www.youtube.com/watch?v=abc", Audible: true},
		{ID: 2, URL: "https://open.spotify.com/playlist/1", Audible: true},
	}, nil)

	store := newMemStore()
	r, _ := startRuntime(t, store, host)
	defer closeRuntime(t, r)

	n, err := r.Accrue(ctx, t0.Add(20*time.Second), false)
	require.NoError(t, err)
	assert.Equal(t, 20, n)

	b, ok := store.bucket("2025-03-04_10:00")
	require.True(t, ok, "audible accrual persists the bucket")
	assert.Equal(t, 20, b.AudioPlayingSeconds)
	assert.Equal(t, 20, b.SpotifySeconds)
	assert.Equal(t, 20, b.StimulationSeconds)
	assert.Zero(t, b.YouTubeWatchSeconds)
	assert.Zero(t, b.FocusedSeconds)
	assert.Equal(t, schema.CategorySpotify, b.Category)
	assert.Equal(t, "https://open.spotify.com/playlist/1", b.URL)
}

func TestRuntime_AudibleLookupFailureIsSwallowed(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()
	host := &contract.MockHostLookup{}
	host.On("AudibleTabs", mock.Anything).Return(nil, assert.AnError)

	r, _ := startRuntime(t, newMemStore(), host)
	defer closeRuntime(t, r)

	n, err := r.Accrue(ctx, t0.Add(20*time.Second), false)
	require.NoError(t, err)
	assert.Zero(t, n)

	state, err := r.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, t0.Add(20*time.Second).UnixMilli(), *state.LastAudioProbeAt)
}

func TestPickAudibleSource(t *testing.T) {
	tests := []struct {
		name string
		tabs []schema.Tab
		want *audibleSource
	}{
		{"none", nil, nil},
		{"non web ignored", []schema.Tab{{URL: "chrome://newtab"}}, nil},
		{"other site", []schema.Tab{{URL: "https://example.com"}}, nil},
		{"music", []schema.Tab{{URL: "https://soundcloud.com/x"}}, &audibleSource{kind: audibleMusic, url: "https://soundcloud.com/x"}},
		{"youtube over music", []schema.Tab{
			{URL: "https://soundcloud.com/x"}, {URL: "https://youtu.be/abc"},
		}, &audibleSource{kind: audibleYouTube, url: "https://youtu.be/abc"}},
		{"spotify first", []schema.Tab{
			{URL: "https://youtu.be/abc"}, {URL: "https://open.spotify.com/x"},
		}, &audibleSource{kind: audibleSpotify, url: "https://open.spotify.com/x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pickAudibleSource(tt.tabs))
		})
	}
}

func TestRuntime_FailedWritesAreRetriedOnFlush(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()
	store := newMemStore()
	r, _ := startRuntime(t, store, newHost())
	defer closeRuntime(t, r)

	store.mu.Lock()
	store.failPuts = 2 // one write with one retry
	store.mu.Unlock()

	require.NoError(t, r.OnContent(ctx, Click{Count: 3}, SignalOrigin{URL: "https://github.com"}))
	_, ok := store.bucket("2025-03-04_10:00")
	assert.False(t, ok)

	live, err := r.LiveBucket(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, live.Clicks, "in-memory state survives a failed write")

	require.NoError(t, r.Flush(ctx))
	b, ok := store.bucket("2025-03-04_10:00")
	require.True(t, ok)
	assert.Equal(t, 3, b.Clicks)

	live, err = r.LiveBucket(ctx)
	require.NoError(t, err)
	assert.Nil(t, live)
}

func TestRuntime_RestoreState(t *testing.T) {
	tests := []struct {
		name     string
		snapshot []byte
		check    func(t *testing.T, s schema.SessionState)
	}{
		{"missing", nil, func(t *testing.T, s schema.SessionState) {
			assert.True(t, s.WindowFocused)
			assert.Equal(t, schema.IdleActive, s.IdleState)
			assert.Nil(t, s.ActiveTabID)
		}},
		{"partial", []byte(`{"active_tab_id":3,"window_focused":false}`), func(t *testing.T, s schema.SessionState) {
			require.NotNil(t, s.ActiveTabID)
			assert.Equal(t, 3, *s.ActiveTabID)
			assert.False(t, s.WindowFocused)
			assert.Equal(t, schema.IdleActive, s.IdleState)
		}},
		{"malformed", []byte(`{"active_tab_id":`), func(t *testing.T, s schema.SessionState) {
			assert.True(t, s.WindowFocused)
			assert.Nil(t, s.ActiveTabID)
		}},
		{"bad idle state", []byte(`{"idle_state":"asleep"}`), func(t *testing.T, s schema.SessionState) {
			assert.Equal(t, schema.IdleActive, s.IdleState)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer goleak.VerifyNone(t)
			store := newMemStore()
			if tt.snapshot != nil {
				store.state[SessionStateKey] = tt.snapshot
			}
			r, _ := startRuntime(t, store, newHost())
			defer closeRuntime(t, r)

			state, err := r.State(context.Background())
			require.NoError(t, err)
			tt.check(t, state)
			require.NotNil(t, state.LastAudioProbeAt)
			assert.Equal(t, t0.UnixMilli(), *state.LastAudioProbeAt)
		})
	}
}

func TestRuntime_RecoversFromPanics(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()
	host := &contract.MockHostLookup{}
	host.On("AudibleTabs", mock.Anything).Return([]schema.Tab(nil), nil).Maybe()
	host.On("GetTab", mock.Anything, 1).Run(func(mock.Arguments) { panic("host exploded") }).Return(schema.Tab{}, nil)
	host.On("GetTab", mock.Anything, 2).Return(githubTab, nil)

	r, _ := startRuntime(t, newMemStore(), host)
	defer closeRuntime(t, r)

	require.NoError(t, r.OnTabActivated(ctx, 1))
	require.NoError(t, r.OnTabActivated(ctx, 2))

	state, err := r.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, githubTab.URL, state.ActiveURL)
}

func TestRuntime_Lifecycle(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()
	store := newMemStore()
	r := New(contract.TrackerConfig{
		AccrueInterval: time.Second,
		FlushInterval:  2 * time.Second,
		LookupTimeout:  10 * time.Millisecond,
	}, store, newHost(githubTab))
	require.NoError(t, r.Start(ctx))
	require.NoError(t, r.Start(ctx)) // idempotent

	require.NoError(t, r.OnTabActivated(ctx, githubTab.ID))
	require.NoError(t, r.Close(ctx))
	require.NoError(t, r.Close(ctx))

	assert.ErrorIs(t, r.OnTabActivated(ctx, githubTab.ID), ErrClosed)
	_, err := r.State(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRuntime_FailedScheduleStartsNothing(t *testing.T) {
	defer goleak.VerifyNone(t)
	orig := everySpec
	everySpec = func(time.Duration) string { return "@every never" }
	defer func() { everySpec = orig }()

	ctx := context.Background()
	r := New(contract.TrackerConfig{AccrueInterval: time.Second, FlushInterval: time.Second}, newMemStore(), nil)
	assert.Error(t, r.Start(ctx))
	require.NoError(t, r.Close(ctx))
	assert.ErrorIs(t, r.OnTabActivated(ctx, githubTab.ID), ErrClosed)
}

func TestRuntime_CloseWithoutStart(t *testing.T) {
	defer goleak.VerifyNone(t)
	r := New(contract.TrackerConfig{}, newMemStore(), nil)
	assert.NoError(t, r.Close(context.Background()))
}

func TestRuntime_SubmitHonorsContext(t *testing.T) {
	defer goleak.VerifyNone(t)
	r := New(contract.TrackerConfig{}, newMemStore(), nil)
	// Not started: nothing drains the queue
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := r.Accrue(ctx, t0, false)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	require.NoError(t, r.Close(context.Background()))
}
