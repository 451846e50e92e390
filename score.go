// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package flatembed

import (
	"context"
	"encoding/json"
)

// FlatScore identifies a score hosted by the viewer's service. SharingKey is
// required for private scores.
type FlatScore struct {
	Score      string `json:"score"`
	SharingKey string `json:"sharingKey,omitempty"`
}

// LoadFlatScore loads a hosted score into the viewer.
func (e *Embed) LoadFlatScore(ctx context.Context, score FlatScore) error {
	if score.Score == "" {
		return callError("loadFlatScore", invalidArgf("empty score identifier"))
	}
	return callDone(ctx, e, "loadFlatScore", score)
}

// LoadMusicXML loads a MusicXML score, either plain (text) or compressed
// (binary MXL).
func (e *Embed) LoadMusicXML(ctx context.Context, score Data) error {
	return callDone(ctx, e, "loadMusicXML", score)
}

// LoadMIDI loads a score from the contents of a standard MIDI file.
func (e *Embed) LoadMIDI(ctx context.Context, midi []byte) error {
	return callDone(ctx, e, "loadMIDI", BinaryData(midi))
}

// LoadJSON loads a score in the viewer's JSON format. The score may be any
// value that encodes to a JSON object, or a string of JSON text.
func (e *Embed) LoadJSON(ctx context.Context, score any) error {
	return callDone(ctx, e, "loadJSON", score)
}

// GetJSON exports the current score in the viewer's JSON format.
func (e *Embed) GetJSON(ctx context.Context) (json.RawMessage, error) {
	return e.Call(ctx, "getJSON", nil)
}

// MusicXMLOptions are options for GetMusicXML.
type MusicXMLOptions struct {
	// Export compressed MusicXML (MXL), as binary data.
	Compressed bool `json:"compressed,omitempty"`
}

// GetMusicXML exports the current score as MusicXML. The result is text
// unless compressed output was requested. A nil opts uses default options.
func (e *Embed) GetMusicXML(ctx context.Context, opts *MusicXMLOptions) (Data, error) {
	return callData(ctx, e, "getMusicXML", deref(opts))
}

// Values of PNGOptions.Result.
const (
	PNGBytes   = "Uint8Array"
	PNGDataURL = "dataURL"
)

// Values of PNGOptions.Layout.
const (
	LayoutTrack = "track"
	LayoutPage  = "page"
)

// PNGOptions are options for GetPNG. Zero-valued fields use the viewer's
// defaults.
type PNGOptions struct {
	Result string `json:"result,omitempty"` // PNGBytes or PNGDataURL
	Layout string `json:"layout,omitempty"` // LayoutTrack or LayoutPage
	DPI    int    `json:"dpi,omitempty"`    // 50 to 300
}

// Check reports an error wrapping ErrInvalidArgument if o is not valid.
func (o *PNGOptions) Check() error {
	if o == nil {
		return nil
	}
	switch o.Result {
	case "", PNGBytes, PNGDataURL:
	default:
		return invalidArgf("invalid PNG result type %q", o.Result)
	}
	switch o.Layout {
	case "", LayoutTrack, LayoutPage:
	default:
		return invalidArgf("invalid PNG layout %q", o.Layout)
	}
	if o.DPI != 0 && (o.DPI < 50 || o.DPI > 300) {
		return invalidArgf("PNG dpi %d out of range [50..300]", o.DPI)
	}
	return nil
}

// GetPNG exports the current score as a PNG image. The result is binary
// unless a data URL was requested. A nil opts uses default options.
func (e *Embed) GetPNG(ctx context.Context, opts *PNGOptions) (Data, error) {
	if err := opts.Check(); err != nil {
		return Data{}, callError("getPNG", err)
	}
	return callData(ctx, e, "getPNG", deref(opts))
}

// GetMIDI exports the current score as a standard MIDI file.
func (e *Embed) GetMIDI(ctx context.Context) (Data, error) {
	return callData(ctx, e, "getMIDI", nil)
}

// GetScoreMeta returns the metadata of the hosted score currently loaded.
func (e *Embed) GetScoreMeta(ctx context.Context) (json.RawMessage, error) {
	return e.Call(ctx, "getFlatScoreMetadata", nil)
}

// GetEmbedConfig returns the configuration of the viewer.
func (e *Embed) GetEmbedConfig(ctx context.Context) (json.RawMessage, error) {
	return e.Call(ctx, "getEmbedConfig", nil)
}

// SetEditorConfig updates the editor configuration of the viewer. The config
// must encode to a JSON object.
func (e *Embed) SetEditorConfig(ctx context.Context, config any) error {
	if config == nil {
		return callError("setEditorConfig", invalidArgf("nil editor config"))
	}
	return callDone(ctx, e, "setEditorConfig", config)
}

// deref returns *p, or a zero T if p == nil.
func deref[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}
