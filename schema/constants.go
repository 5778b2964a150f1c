// Package schema holds the shared data model for stimstrain.
package schema

// Custom string types for type safety.
type (
	// Category is the semantic label the classifier assigns to a URL.
	Category string

	// BreakdownKey represents keys used in strain breakdowns.
	BreakdownKey string

	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for the record store.
	DatabaseBackend string

	// IdleState mirrors the host idle detector.
	IdleState string

	// EventType identifies a raw event in the event log.
	EventType string

	// ShortFormSource identifies where a short-form video was watched.
	ShortFormSource string
)

// All categories the classifier can produce.
const (
	CategoryUnknown        Category = "UNKNOWN" // default
	CategoryOther          Category = "OTHER"
	CategoryYouTubeShorts  Category = "YOUTUBE_SHORTS"
	CategoryYouTubeWatch   Category = "YOUTUBE_WATCH"
	CategoryYouTubeHome    Category = "YOUTUBE_HOME"
	CategoryYouTubeOther   Category = "YOUTUBE_OTHER"
	CategoryXHome          Category = "X_HOME"
	CategoryXSearch        Category = "X_SEARCH"
	CategoryXThread        Category = "X_THREAD"
	CategoryXOther         Category = "X_OTHER"
	CategoryRedditFeed     Category = "REDDIT_FEED"
	CategoryRedditThread   Category = "REDDIT_THREAD"
	CategoryInstagramReels Category = "INSTAGRAM_REELS"
	CategoryInstagramOther Category = "INSTAGRAM_OTHER"
	CategoryTikTok         Category = "TIKTOK"
	CategorySpotify        Category = "SPOTIFY"
	CategoryMusic          Category = "MUSIC"
	CategoryDocsWork       Category = "DOCS_WORK"
)

// Breakdown keys reported by the strain engine.
const (
	BreakdownYouTubeShorts     BreakdownKey = "youtubeShorts"
	BreakdownInstagramReels    BreakdownKey = "instagramReels"
	BreakdownTikToks           BreakdownKey = "tiktoks"
	BreakdownMusicMinutes      BreakdownKey = "musicMinutes"
	BreakdownYouTubeWatchMins  BreakdownKey = "youtubeWatchMinutes"
	BreakdownFeedMinutes       BreakdownKey = "feedMinutes"
	BreakdownShortSessions     BreakdownKey = "shortSessions"
	BreakdownHighSwitchMinutes BreakdownKey = "highSwitchMinutes"
	BreakdownHighScrollMinutes BreakdownKey = "highScrollMinutes"
	BreakdownLateNightMinutes  BreakdownKey = "lateNightMinutes"
)

// BreakdownOrder is the display order of breakdown entries.
var BreakdownOrder = []BreakdownKey{
	BreakdownYouTubeShorts,
	BreakdownInstagramReels,
	BreakdownTikToks,
	BreakdownMusicMinutes,
	BreakdownYouTubeWatchMins,
	BreakdownFeedMinutes,
	BreakdownShortSessions,
	BreakdownHighSwitchMinutes,
	BreakdownHighScrollMinutes,
	BreakdownLateNightMinutes,
}

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All store backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// Idle states reported by the host.
const (
	IdleActive IdleState = "active" // default
	IdleIdle   IdleState = "idle"
	IdleLocked IdleState = "locked"
)

// Raw event types written to the event log.
const (
	EventActiveTabChanged EventType = "active_tab_changed"
	EventTabUpdated       EventType = "tab_updated"
	EventWindowFocus      EventType = "window_focus"
)

// Short-form sources reported by content signals.
const (
	SourceYouTubeShorts  ShortFormSource = "youtube_shorts"
	SourceInstagramReels ShortFormSource = "instagram_reels"
	SourceTikTok         ShortFormSource = "tiktok"
)

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidDatabaseBackends lists all valid store backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// ValidIdleStates lists all idle states the host may report.
var ValidIdleStates = map[IdleState]struct{}{
	IdleActive: {},
	IdleIdle:   {},
	IdleLocked: {},
}
