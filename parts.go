// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package flatembed

import (
	"context"
	"encoding/json"
)

type partRef struct {
	PartUUID string `json:"partUuid"`
}

// GetPartVolume reports the volume of a part, from 0 to 100.
func (e *Embed) GetPartVolume(ctx context.Context, partUUID string) (float64, error) {
	return callAs[float64](ctx, e, "getPartVolume", partRef{partUUID})
}

// SetPartVolume sets the volume of a part, from 0 to 100.
func (e *Embed) SetPartVolume(ctx context.Context, partUUID string, volume float64) error {
	return callDone(ctx, e, "setPartVolume", struct {
		PartUUID string  `json:"partUuid"`
		Volume   float64 `json:"volume"`
	}{partUUID, volume})
}

// MutePart mutes a part.
func (e *Embed) MutePart(ctx context.Context, partUUID string) error {
	return callDone(ctx, e, "mutePart", partRef{partUUID})
}

// UnmutePart unmutes a part.
func (e *Embed) UnmutePart(ctx context.Context, partUUID string) error {
	return callDone(ctx, e, "unmutePart", partRef{partUUID})
}

// SetPartSoloMode makes a part play solo.
func (e *Embed) SetPartSoloMode(ctx context.Context, partUUID string) error {
	return callDone(ctx, e, "setPartSoloMode", partRef{partUUID})
}

// UnsetPartSoloMode stops a part playing solo.
func (e *Embed) UnsetPartSoloMode(ctx context.Context, partUUID string) error {
	return callDone(ctx, e, "unsetPartSoloMode", partRef{partUUID})
}

// GetPartSoloMode reports whether a part plays solo.
func (e *Embed) GetPartSoloMode(ctx context.Context, partUUID string) (bool, error) {
	return callAs[bool](ctx, e, "getPartSoloMode", partRef{partUUID})
}

// GetPartReverb reports the reverberation of a part, from 0 to 100.
func (e *Embed) GetPartReverb(ctx context.Context, partUUID string) (float64, error) {
	return callAs[float64](ctx, e, "getPartReverb", partRef{partUUID})
}

// SetPartReverb sets the reverberation of a part, from 0 to 100.
func (e *Embed) SetPartReverb(ctx context.Context, partUUID string, reverb float64) error {
	return callDone(ctx, e, "setPartReverb", struct {
		PartUUID      string  `json:"partUuid"`
		Reverberation float64 `json:"reverberation"`
	}{partUUID, reverb})
}

// GetParts returns descriptions of the parts of the score.
func (e *Embed) GetParts(ctx context.Context) (json.RawMessage, error) {
	return e.Call(ctx, "getParts", nil)
}

// GetDisplayedParts returns descriptions of the parts currently displayed.
func (e *Embed) GetDisplayedParts(ctx context.Context) (json.RawMessage, error) {
	return e.Call(ctx, "getDisplayedParts", nil)
}

// SetDisplayedParts selects the parts to display. Each entry is a part UUID,
// index, or name.
func (e *Embed) SetDisplayedParts(ctx context.Context, parts []string) error {
	if parts == nil {
		parts = []string{}
	}
	return callDone(ctx, e, "setDisplayedParts", parts)
}
