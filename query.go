// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package flatembed

import (
	"context"
	"encoding/json"
)

// A NoteRef locates a voice, or a note within it. Fields that do not apply
// to a query are omitted.
type NoteRef struct {
	PartUUID    string `json:"partUuid"`
	MeasureUUID string `json:"measureUuid,omitempty"`
	VoiceUUID   string `json:"voiceUuid,omitempty"`
	NoteIdx     *int   `json:"noteIdx,omitempty"`
}

// GetNbMeasures reports the number of measures in the score.
func (e *Embed) GetNbMeasures(ctx context.Context) (int, error) {
	return callAs[int](ctx, e, "getNbMeasures", nil)
}

// GetMeasuresUuids returns the UUIDs of the measures of the score, in order.
func (e *Embed) GetMeasuresUuids(ctx context.Context) ([]string, error) {
	return callAs[[]string](ctx, e, "getMeasuresUuids", nil)
}

// GetNbParts reports the number of parts in the score.
func (e *Embed) GetNbParts(ctx context.Context) (int, error) {
	return callAs[int](ctx, e, "getNbParts", nil)
}

// GetPartsUuids returns the UUIDs of the parts of the score, in order.
func (e *Embed) GetPartsUuids(ctx context.Context) ([]string, error) {
	return callAs[[]string](ctx, e, "getPartsUuids", nil)
}

// GetMeasureVoicesUuids returns the UUIDs of the voices in a measure of a
// part.
func (e *Embed) GetMeasureVoicesUuids(ctx context.Context, partUUID, measureUUID string) ([]string, error) {
	return callAs[[]string](ctx, e, "getMeasureVoicesUuids", NoteRef{
		PartUUID: partUUID, MeasureUUID: measureUUID,
	})
}

// GetMeasureNbNotes reports the number of notes in a voice of a measure.
func (e *Embed) GetMeasureNbNotes(ctx context.Context, ref NoteRef) (int, error) {
	return callAs[int](ctx, e, "getMeasureNbNotes", ref)
}

// GetNoteData returns a description of the note at ref.
func (e *Embed) GetNoteData(ctx context.Context, ref NoteRef) (json.RawMessage, error) {
	if ref.NoteIdx == nil {
		return nil, callError("getNoteData", invalidArgf("note index is required"))
	}
	return e.Call(ctx, "getNoteData", ref)
}

// PlaybackPositionToNoteIdx reports the index of the note in a voice that is
// sounding at a playback position.
func (e *Embed) PlaybackPositionToNoteIdx(ctx context.Context, partUUID, voiceUUID string, pos json.RawMessage) (int, error) {
	return callAs[int](ctx, e, "playbackPositionToNoteIdx", struct {
		PartUUID         string          `json:"partUuid"`
		VoiceUUID        string          `json:"voiceUuid"`
		PlaybackPosition json.RawMessage `json:"playbackPosition"`
	}{partUUID, voiceUUID, pos})
}

// GetMeasureDetails returns details of the measure at the cursor.
func (e *Embed) GetMeasureDetails(ctx context.Context) (json.RawMessage, error) {
	return e.Call(ctx, "getMeasureDetails", nil)
}

// GetNoteDetails returns details of the note at the cursor.
func (e *Embed) GetNoteDetails(ctx context.Context) (json.RawMessage, error) {
	return e.Call(ctx, "getNoteDetails", nil)
}
