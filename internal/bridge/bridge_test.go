package bridge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/huangsam/stimstrain/core/tracker"
	"github.com/huangsam/stimstrain/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockHandler is a mock implementation of Handler for testing.
type MockHandler struct {
	mock.Mock
}

func (m *MockHandler) OnTabActivated(ctx context.Context, tabID int) error {
	return m.Called(ctx, tabID).Error(0)
}

func (m *MockHandler) OnTabUpdated(ctx context.Context, tabID int, url string) error {
	return m.Called(ctx, tabID, url).Error(0)
}

func (m *MockHandler) OnIdleStateChanged(ctx context.Context, state schema.IdleState) error {
	return m.Called(ctx, state).Error(0)
}

func (m *MockHandler) OnWindowFocusChanged(ctx context.Context, focused bool) error {
	return m.Called(ctx, focused).Error(0)
}

func (m *MockHandler) OnContent(ctx context.Context, sig tracker.ContentSignal, origin tracker.SignalOrigin) error {
	return m.Called(ctx, sig, origin).Error(0)
}

func TestBridge_Run(t *testing.T) {
	input := strings.Join([]string{
		`{"type":"tab_activated","tabId":3,"url":"https://github.com","ts":1000}`,
		``,
		`not json`,
		`{"type":"tab_updated","tabId":3,"url":"https://github.com/pulls"}`,
		`{"type":"audible_changed","tabId":5,"audible":true,"url":"https://open.spotify.com"}`,
		`{"type":"content","kind":"scroll_batch","tabId":3,"count":4,"distance":800}`,
		`{"type":"content","kind":"short_watched","source":"tiktok","url":"https://www.tiktok.com/@a"}`,
		`{"type":"content","kind":"wiggle"}`,
		`{"type":"idle_state_changed","state":"locked"}`,
		`{"type":"window_focus_changed","focused":false}`,
		`{"type":"teleport"}`,
	}, "\n")

	h := &MockHandler{}
	h.On("OnTabActivated", mock.Anything, 3).Return(nil).Once()
	h.On("OnTabUpdated", mock.Anything, 3, "https://github.com/pulls").Return(nil).Once()
	h.On("OnContent", mock.Anything, tracker.ScrollBatch{Count: 4, Distance: 800}, tracker.SignalOrigin{TabID: 3}).Return(nil).Once()
	h.On("OnContent", mock.Anything, tracker.ShortWatched{Source: schema.SourceTikTok},
		tracker.SignalOrigin{URL: "https://www.tiktok.com/@a"}).Return(errors.New("closed")).Once()
	h.On("OnIdleStateChanged", mock.Anything, schema.IdleLocked).Return(nil).Once()
	h.On("OnWindowFocusChanged", mock.Anything, false).Return(nil).Once()

	mirror := NewHostMirror()
	b := New(mirror, h, nil)
	require.NoError(t, b.Run(context.Background(), strings.NewReader(input)))
	h.AssertExpectations(t)

	ctx := context.Background()
	tab, err := mirror.GetTab(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/pulls", tab.URL)
	assert.True(t, tab.Active)
	assert.Equal(t, int64(1000), tab.LastAccessed)

	audible, err := mirror.AudibleTabs(ctx)
	require.NoError(t, err)
	require.Len(t, audible, 1)
	assert.Equal(t, 5, audible[0].ID)

	// Window lost focus
	_, err = mirror.ActiveTab(ctx)
	assert.Error(t, err)
}

func TestBridge_RunStopsOnCancel(t *testing.T) {
	h := &MockHandler{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New(NewHostMirror(), h, nil).Run(ctx, strings.NewReader(`{"type":"tab_activated","tabId":1}`))
	assert.ErrorIs(t, err, context.Canceled)
	h.AssertNotCalled(t, "OnTabActivated", mock.Anything, mock.Anything)
}

func TestParseContentSignal(t *testing.T) {
	tests := []struct {
		msg     Message
		want    tracker.ContentSignal
		wantErr bool
	}{
		{Message{Kind: KindScroll}, tracker.ScrollBatch{}, false},
		{Message{Kind: KindScrollBatch, Count: 2, Distance: 10}, tracker.ScrollBatch{Count: 2, Distance: 10}, false},
		{Message{Kind: KindClick, Count: 3}, tracker.Click{Count: 3}, false},
		{Message{Kind: KindShortWatched, Source: "youtube_shorts"}, tracker.ShortWatched{Source: schema.SourceYouTubeShorts}, false},
		{Message{Kind: KindYouTubePlaying, Seconds: 5}, tracker.YouTubePlaying{Seconds: 5}, false},
		{Message{Kind: KindMusicPlaying, Seconds: 7}, tracker.MusicPlaying{Seconds: 7}, false},
		{Message{Kind: ""}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.msg.Kind, func(t *testing.T) {
			got, err := ParseContentSignal(tt.msg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHostMirror(t *testing.T) {
	ctx := context.Background()
	focused := true
	m := NewHostMirror()

	_, err := m.ActiveTab(ctx)
	assert.Error(t, err)

	m.Apply(Message{Type: TypeTabActivated, TabID: 1, URL: "https://a.com"})
	m.Apply(Message{Type: TypeTabActivated, TabID: 2, URL: "https://b.com"})

	first, err := m.GetTab(ctx, 1)
	require.NoError(t, err)
	assert.False(t, first.Active)

	active, err := m.ActiveTab(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, active.ID)

	m.Apply(Message{Type: TypeWindowFocusChanged, Focused: &focused})
	m.Apply(Message{Type: TypeTabRemoved, TabID: 2})
	_, err = m.ActiveTab(ctx)
	assert.Error(t, err)
	_, err = m.GetTab(ctx, 2)
	assert.Error(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = m.GetTab(cancelled, 1)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = m.AudibleTabs(cancelled)
	assert.ErrorIs(t, err, context.Canceled)
}
