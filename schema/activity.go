package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// Bucket aggregates activity for a single local minute.
// Buckets are keyed by Date and Minute; Hour is derived from Minute.
type Bucket struct {
	Date                string   `json:"date"`                  // YYYY-MM-DD
	Minute              string   `json:"minute"`                // HH:MM
	Timestamp           int64    `json:"timestamp"`             // epoch ms of the minute start
	Hour                int      `json:"hour"`                  // 0-23
	FocusedSeconds      int      `json:"focused_seconds"`       // foreground time
	Switches            int      `json:"switches"`              // tab activations
	Scrolls             int      `json:"scrolls"`               // scroll events
	ScrollDistance      int      `json:"scroll_distance"`       // pixels
	Clicks              int      `json:"clicks"`                // clicks
	ShortsCount         int      `json:"shorts_count"`          // youtube shorts watched
	ReelsCount          int      `json:"reels_count"`           // instagram reels watched
	TiktoksCount        int      `json:"tiktoks_count"`         // tiktoks watched
	StimulationSeconds  int      `json:"stimulation_seconds"`   // music-like audio
	YouTubeWatchSeconds int      `json:"youtube_watch_seconds"` // long-form video audio
	SpotifySeconds      int      `json:"spotify_seconds"`
	OtherMusicSeconds   int      `json:"other_music_seconds"`
	AudioPlayingSeconds int      `json:"audio_playing_seconds"`
	Category            Category `json:"category"`
	URL                 string   `json:"url,omitempty"` // empty means unknown
}

// BucketKey joins a date and minute into the store key.
func BucketKey(date, minute string) string {
	return date + "_" + minute
}

// Key returns the store key of the bucket.
func (b Bucket) Key() string {
	return BucketKey(b.Date, b.Minute)
}

// MinuteOfDay returns the minute index (0-1439) parsed from Minute, or -1 when malformed.
func (b Bucket) MinuteOfDay() int {
	return MinuteOfDay(b.Minute)
}

// DerivedHour returns the hour encoded in Minute, falling back to Hour.
func (b Bucket) DerivedHour() int {
	if m := b.MinuteOfDay(); m >= 0 {
		return m / 60
	}
	return b.Hour
}

// ShortFormCount sums all short-form counters.
func (b Bucket) ShortFormCount() int {
	return b.ShortsCount + b.ReelsCount + b.TiktoksCount
}

// MinuteOfDay parses an HH:MM string into a minute index, returning -1 on failure.
func MinuteOfDay(minute string) int {
	hh, mm, ok := strings.Cut(minute, ":")
	if !ok {
		return -1
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return -1
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return -1
	}
	return h*60 + m
}

// FormatMinute renders a minute index as HH:MM.
func FormatMinute(idx int) string {
	return fmt.Sprintf("%02d:%02d", idx/60, idx%60)
}

// Event is an append-only raw record of a host transition.
type Event struct {
	ID       string    `json:"id"`
	Type     EventType `json:"type"`
	TS       int64     `json:"ts"` // epoch ms
	Date     string    `json:"date"`
	TabID    int       `json:"tab_id,omitempty"`
	Domain   string    `json:"domain,omitempty"`
	Category Category  `json:"category,omitempty"`
	URL      string    `json:"url,omitempty"`
	Focused  *bool     `json:"focused,omitempty"`
}

// Visit is a read-only projection of an active-tab event.
type Visit struct {
	TS       int64    `json:"ts"`
	Domain   string   `json:"domain"`
	Category Category `json:"category"`
	URL      string   `json:"url"`
}

// Tab is the host's view of a browser tab.
type Tab struct {
	ID           int    `json:"id"`
	URL          string `json:"url"`
	Active       bool   `json:"active"`
	Audible      bool   `json:"audible"`
	LastAccessed int64  `json:"last_accessed,omitempty"`
}

// SessionState is the live tracker session. It is persisted as JSON after every
// mutation; decoding a snapshot over DefaultSessionState merges partial snapshots
// over the defaults.
type SessionState struct {
	ActiveTabID          *int      `json:"active_tab_id"`
	ActiveURL            string    `json:"active_url"`
	ActiveDomain         string    `json:"active_domain"`
	TabActivatedAt       *int64    `json:"tab_activated_at"` // nil means not accruing
	WindowFocused        bool      `json:"window_focused"`
	IdleState            IdleState `json:"idle_state"`
	LastMinuteKey        string    `json:"last_minute_key"`
	LastAudioProbeAt     *int64    `json:"last_audio_probe_at"`
	LastMusicHeartbeatAt *int64    `json:"last_music_heartbeat_at"`
}

// DefaultSessionState returns the state of a fresh session.
func DefaultSessionState() SessionState {
	return SessionState{
		WindowFocused: true,
		IdleState:     IdleActive,
	}
}

// Accruing reports whether focused time is currently accruing.
func (s SessionState) Accruing() bool {
	return s.TabActivatedAt != nil && s.WindowFocused && s.IdleState == IdleActive
}
