package tracker

import "github.com/huangsam/stimstrain/schema"

// ContentSignal is an activity signal observed inside a page. The set of variants is
// closed: ScrollBatch, Click, ShortWatched, YouTubePlaying and MusicPlaying.
type ContentSignal interface {
	contentSignal()
}

// ScrollBatch reports scroll events coalesced by the page.
type ScrollBatch struct {
	Count    int // defaults to 1
	Distance int // pixels
}

// Click reports clicks.
type Click struct {
	Count int // defaults to 1
}

// ShortWatched reports a completed short-form video.
type ShortWatched struct {
	Source schema.ShortFormSource
}

// YouTubePlaying is a heartbeat from a playing video. Playback time is measured by
// the audible-tab probe during accrual, so Seconds is informational and never credited.
type YouTubePlaying struct {
	Seconds int
}

// MusicPlaying is a heartbeat from a playing music site. Like YouTubePlaying, its
// Seconds is informational and the audible-tab probe credits playback time.
type MusicPlaying struct {
	Seconds int
}

func (ScrollBatch) contentSignal()    {}
func (Click) contentSignal()          {}
func (ShortWatched) contentSignal()   {}
func (YouTubePlaying) contentSignal() {}
func (MusicPlaying) contentSignal()   {}

// SignalOrigin identifies where a content signal came from.
type SignalOrigin struct {
	TabID int    // zero when unknown
	URL   string // page URL reported with the signal, if any
}

func countOrOne(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}
