// Package bridge reads host events as JSON lines and drives the activity runtime.
package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/huangsam/stimstrain/core/tracker"
	"github.com/huangsam/stimstrain/schema"
	"go.uber.org/zap"
)

// Message types sent by the host.
const (
	TypeTabActivated       = "tab_activated"
	TypeTabUpdated         = "tab_updated"
	TypeTabRemoved         = "tab_removed"
	TypeWindowFocusChanged = "window_focus_changed"
	TypeIdleStateChanged   = "idle_state_changed"
	TypeAudibleChanged     = "audible_changed"
	TypeContent            = "content"
)

// Content signal kinds carried by content messages.
const (
	KindScroll         = "scroll"
	KindScrollBatch    = "scroll_batch"
	KindClick          = "click"
	KindShortWatched   = "short_watched"
	KindYouTubePlaying = "youtube_playing"
	KindMusicPlaying   = "music_playing"
)

// maxLineBytes bounds a single host message.
const maxLineBytes = 1 << 20

// Message is one line of host input. Fields beyond Type depend on the message type.
type Message struct {
	Type     string `json:"type"`
	TS       int64  `json:"ts,omitempty"` // epoch ms
	TabID    int    `json:"tabId,omitempty"`
	URL      string `json:"url,omitempty"`
	Focused  *bool  `json:"focused,omitempty"`
	State    string `json:"state,omitempty"`
	Audible  *bool  `json:"audible,omitempty"`
	Kind     string `json:"kind,omitempty"`
	Count    int    `json:"count,omitempty"`
	Distance int    `json:"distance,omitempty"`
	Source   string `json:"source,omitempty"`
	Seconds  int    `json:"seconds,omitempty"`
}

// Handler receives host events. *tracker.Runtime implements it.
type Handler interface {
	OnTabActivated(ctx context.Context, tabID int) error
	OnTabUpdated(ctx context.Context, tabID int, url string) error
	OnIdleStateChanged(ctx context.Context, state schema.IdleState) error
	OnWindowFocusChanged(ctx context.Context, focused bool) error
	OnContent(ctx context.Context, sig tracker.ContentSignal, origin tracker.SignalOrigin) error
}

var _ Handler = &tracker.Runtime{} // Compile-time check

// Bridge feeds host messages into the mirror and the handler.
type Bridge struct {
	mirror  *HostMirror
	handler Handler
	log     *zap.Logger
}

// New creates a bridge. A nil logger discards logs.
func New(mirror *HostMirror, handler Handler, log *zap.Logger) *Bridge {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bridge{mirror: mirror, handler: handler, log: log}
}

// Run processes messages from r until EOF or ctx is done. Malformed and unknown
// messages are logged and skipped.
func (b *Bridge) Run(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lines := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		lines++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var msg Message
		if err := json.Unmarshal(line, &msg); err != nil {
			b.log.Warn("skipping malformed host message", zap.Int("line", lines), zap.Error(err))
			continue
		}
		if err := b.Dispatch(ctx, msg); err != nil {
			b.log.Warn("host message failed", zap.String("type", msg.Type), zap.Int("line", lines), zap.Error(err))
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read host messages: %w", err)
	}
	b.log.Debug("host input closed", zap.Int("lines", lines))
	return nil
}

// Dispatch applies msg to the mirror and forwards it to the handler.
func (b *Bridge) Dispatch(ctx context.Context, msg Message) error {
	b.mirror.Apply(msg)

	switch msg.Type {
	case TypeTabActivated:
		return b.handler.OnTabActivated(ctx, msg.TabID)
	case TypeTabUpdated:
		return b.handler.OnTabUpdated(ctx, msg.TabID, msg.URL)
	case TypeWindowFocusChanged:
		return b.handler.OnWindowFocusChanged(ctx, msg.Focused != nil && *msg.Focused)
	case TypeIdleStateChanged:
		return b.handler.OnIdleStateChanged(ctx, schema.IdleState(msg.State))
	case TypeContent:
		sig, err := ParseContentSignal(msg)
		if err != nil {
			return err
		}
		return b.handler.OnContent(ctx, sig, tracker.SignalOrigin{TabID: msg.TabID, URL: msg.URL})
	case TypeTabRemoved, TypeAudibleChanged:
		return nil // mirror only
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
}

// ParseContentSignal converts a content message into its typed signal.
func ParseContentSignal(msg Message) (tracker.ContentSignal, error) {
	switch msg.Kind {
	case KindScroll, KindScrollBatch:
		return tracker.ScrollBatch{Count: msg.Count, Distance: msg.Distance}, nil
	case KindClick:
		return tracker.Click{Count: msg.Count}, nil
	case KindShortWatched:
		return tracker.ShortWatched{Source: schema.ShortFormSource(msg.Source)}, nil
	case KindYouTubePlaying:
		return tracker.YouTubePlaying{Seconds: msg.Seconds}, nil
	case KindMusicPlaying:
		return tracker.MusicPlaying{Seconds: msg.Seconds}, nil
	default:
		return nil, fmt.Errorf("unknown content kind %q", msg.Kind)
	}
}
