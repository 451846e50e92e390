// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package flatembed

// Names of events reported by the viewer. Subscribe to them with Embed.On.
const (
	EventReady               = "ready" // also marks the session ready
	EventScoreLoaded         = "scoreLoaded"
	EventCursorPosition      = "cursorPosition"
	EventCursorContext       = "cursorContext"
	EventMeasureDetails      = "measureDetails"
	EventNoteDetails         = "noteDetails"
	EventRangeSelection      = "rangeSelection"
	EventFullscreen          = "fullscreen"
	EventPlay                = "play"
	EventPause               = "pause"
	EventStop                = "stop"
	EventPlaybackPosition    = "playbackPosition"
	EventRestrictionsUpdated = "restrictionsUpdated"
)
