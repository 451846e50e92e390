// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package flatembed

import "context"

// Play starts playback.
func (e *Embed) Play(ctx context.Context) error { return callDone(ctx, e, "play", nil) }

// Pause pauses playback.
func (e *Embed) Pause(ctx context.Context) error { return callDone(ctx, e, "pause", nil) }

// Stop stops playback and rewinds to the start of the score.
func (e *Embed) Stop(ctx context.Context) error { return callDone(ctx, e, "stop", nil) }

// Mute mutes playback.
func (e *Embed) Mute(ctx context.Context) error { return callDone(ctx, e, "mute", nil) }

// GetMasterVolume reports the master volume, from 0 to 100.
func (e *Embed) GetMasterVolume(ctx context.Context) (float64, error) {
	return callAs[float64](ctx, e, "getMasterVolume", nil)
}

// SetMasterVolume sets the master volume, from 0 to 100.
//
// Deployed viewers accept this request on the "getMasterVolume" method, so
// that is the method it is sent on.
func (e *Embed) SetMasterVolume(ctx context.Context, volume float64) error {
	return callDone(ctx, e, "getMasterVolume", struct {
		Volume float64 `json:"volume"`
	}{Volume: volume})
}

// GetPlaybackSpeed reports the playback speed, where 1 is normal speed.
func (e *Embed) GetPlaybackSpeed(ctx context.Context) (float64, error) {
	return callAs[float64](ctx, e, "getPlaybackSpeed", nil)
}

// SetPlaybackSpeed sets the playback speed, where 1 is normal speed.
func (e *Embed) SetPlaybackSpeed(ctx context.Context, speed float64) error {
	return callDone(ctx, e, "setPlaybackSpeed", speed)
}

// MetronomeMode is the behavior of the metronome during playback.
type MetronomeMode int

// Metronome modes understood by the viewer.
const (
	MetronomeCountIn    MetronomeMode = 0 // count in before playback
	MetronomeContinuous MetronomeMode = 1
	MetronomeDisabled   MetronomeMode = 2
)

// GetMetronomeMode reports the metronome mode.
func (e *Embed) GetMetronomeMode(ctx context.Context) (MetronomeMode, error) {
	return callAs[MetronomeMode](ctx, e, "getMetronomeMode", nil)
}

// SetMetronomeMode sets the metronome mode.
func (e *Embed) SetMetronomeMode(ctx context.Context, mode MetronomeMode) error {
	return callDone(ctx, e, "setMetronomeMode", mode)
}

// A Track is an audio or video track to synchronize with the score.
type Track struct {
	ID                    string      `json:"id,omitempty"`
	Type                  string      `json:"type"` // e.g., "youtube", "soundcloud", "audio"
	URL                   string      `json:"url,omitempty"`
	MediaID               string      `json:"mediaId,omitempty"`
	TotalTime             float64     `json:"totalTime,omitempty"`
	SynchronizationPoints []SyncPoint `json:"synchronizationPoints,omitempty"`
}

// A SyncPoint aligns a position of the score with a time of a track.
type SyncPoint struct {
	Type     string  `json:"type"` // "measure" or "end"
	Time     float64 `json:"time"`
	Location any     `json:"location,omitempty"`
}

// SetTrack configures an additional track for the score.
func (e *Embed) SetTrack(ctx context.Context, track Track) error {
	if track.Type == "" {
		return callError("setTrack", invalidArgf("track type is required"))
	}
	return callDone(ctx, e, "setTrack", track)
}

// UseTrack enables the track with the given id for playback.
func (e *Embed) UseTrack(ctx context.Context, id string) error {
	return callDone(ctx, e, "useTrack", struct {
		ID string `json:"id"`
	}{ID: id})
}

// SeekTrackTo moves playback of the current track to the given time, in
// seconds.
func (e *Embed) SeekTrackTo(ctx context.Context, seconds float64) error {
	return callDone(ctx, e, "seekTrackTo", struct {
		Time float64 `json:"time"`
	}{Time: seconds})
}
