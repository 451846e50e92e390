// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package flatembed

import (
	"context"
	"encoding/json"
)

// Print opens the print dialog of the viewer.
func (e *Embed) Print(ctx context.Context) error { return callDone(ctx, e, "print", nil) }

// ScrollToCursor scrolls the score to the cursor.
func (e *Embed) ScrollToCursor(ctx context.Context) error {
	return callDone(ctx, e, "scrollToCursor", nil)
}

// FocusScore gives the score keyboard focus.
func (e *Embed) FocusScore(ctx context.Context) error { return callDone(ctx, e, "focusScore", nil) }

// GetZoom reports the zoom ratio of the score.
func (e *Embed) GetZoom(ctx context.Context) (float64, error) {
	return callAs[float64](ctx, e, "getZoom", nil)
}

// SetZoom sets the zoom ratio of the score, and reports the ratio applied.
func (e *Embed) SetZoom(ctx context.Context, zoom float64) (float64, error) {
	return callAs[float64](ctx, e, "setZoom", zoom)
}

// GetAutoZoom reports whether automatic zoom is enabled.
func (e *Embed) GetAutoZoom(ctx context.Context) (bool, error) {
	return callAs[bool](ctx, e, "getAutoZoom", nil)
}

// SetAutoZoom enables or disables automatic zoom, and reports the state
// applied.
func (e *Embed) SetAutoZoom(ctx context.Context, on bool) (bool, error) {
	return callAs[bool](ctx, e, "setAutoZoom", on)
}

// Fullscreen enters or leaves fullscreen display.
func (e *Embed) Fullscreen(ctx context.Context, on bool) error {
	return callDone(ctx, e, "fullscreen", on)
}

// A CursorPosition is a location of the cursor in the score.
type CursorPosition struct {
	PartIdx    int `json:"partIdx"`
	StaffIdx   int `json:"staffIdx"`
	VoiceIdx   int `json:"voiceIdx"`
	MeasureIdx int `json:"measureIdx"`
	NoteIdx    int `json:"noteIdx"`
}

// GetCursorPosition returns the current cursor position and its context.
func (e *Embed) GetCursorPosition(ctx context.Context) (json.RawMessage, error) {
	return e.Call(ctx, "getCursorPosition", nil)
}

// SetCursorPosition moves the cursor.
func (e *Embed) SetCursorPosition(ctx context.Context, pos CursorPosition) error {
	return callDone(ctx, e, "setCursorPosition", pos)
}

// GoLeft moves the cursor to the previous item.
func (e *Embed) GoLeft(ctx context.Context) error { return callDone(ctx, e, "goLeft", nil) }

// GoRight moves the cursor to the next item.
func (e *Embed) GoRight(ctx context.Context) error { return callDone(ctx, e, "goRight", nil) }
