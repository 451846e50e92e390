// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package flatembed_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/creachadair/flatembed"
	"github.com/google/go-cmp/cmp"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		method string
		params any
		want   string
	}{
		{"ping", nil, `{"method":"ping"}`},
		{"setZoom", 2, `{"method":"setZoom","parameters":2}`},
		{"addEventListener", "play", `{"method":"addEventListener","parameters":"play"}`},
		{"setPartVolume", map[string]any{"partUuid": "p", "volume": 10},
			`{"method":"setPartVolume","parameters":{"partUuid":"p","volume":10}}`},
		{"loadMIDI", flatembed.BinaryData([]byte{77, 84}), `{"method":"loadMIDI","parameters":[77,84]}`},
	}
	for _, tc := range tests {
		got, err := json.Marshal(flatembed.Encode(tc.method, tc.params))
		if err != nil {
			t.Errorf("Encode(%q, %v): %v", tc.method, tc.params, err)
		} else if string(got) != tc.want {
			t.Errorf("Encode(%q, %v): got %s, want %s", tc.method, tc.params, got, tc.want)
		}
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  flatembed.Envelope
	}{
		{"reply-string", `{"method":"getZoom","response":1.5}`,
			&flatembed.Reply{Method: "getZoom", Response: json.RawMessage(`1.5`)}},
		{"reply-bytes", []byte(`{"method":"play"}`),
			&flatembed.Reply{Method: "play"}},
		{"reply-map", map[string]any{"method": "getZoom", "response": 2},
			&flatembed.Reply{Method: "getZoom", Response: json.RawMessage(`2`)}},
		{"reply-error", `{"method":"print","error":"denied","response":true}`,
			&flatembed.Reply{Method: "print", Error: json.RawMessage(`"denied"`), Response: json.RawMessage(`true`)}},
		{"reply-null-error", `{"method":"print","error":null}`,
			&flatembed.Reply{Method: "print"}},
		{"reply-struct", &flatembed.Reply{Method: "x", Response: json.RawMessage(`[1]`)},
			&flatembed.Reply{Method: "x", Response: json.RawMessage(`[1]`)}},
		{"event-raw", json.RawMessage(`{"event":"play","parameters":{"a":1}}`),
			&flatembed.Event{Name: "play", Parameters: json.RawMessage(`{"a":1}`)}},
		{"event-quoted", json.RawMessage(`"{\"event\":\"ready\"}"`),
			&flatembed.Event{Name: "ready"}},
		{"method-wins", `{"method":"m","event":"e"}`,
			&flatembed.Reply{Method: "m"}},
		{"empty-method", `{"method":"","event":"e"}`,
			&flatembed.Event{Name: "e"}},
		{"neither", `{"other":1}`,
			flatembed.Unrecognized{Data: json.RawMessage(`{"other":1}`)}},
		{"number-method", `{"method":5}`,
			flatembed.Unrecognized{Data: json.RawMessage(`{"method":5}`)}},
		{"array", `[1,2]`,
			flatembed.Unrecognized{Data: json.RawMessage(`[1,2]`)}},
		{"nil", nil,
			flatembed.Unrecognized{Data: json.RawMessage(`null`)}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := flatembed.Decode(tc.input)
			if err != nil {
				t.Fatalf("Decode: unexpected error: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Decode (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	for _, input := range []any{
		"", "{", "not json", []byte(`{"method":`), json.RawMessage(`"{bad"`),
	} {
		env, err := flatembed.Decode(input)
		var perr *flatembed.ParseError
		if !errors.As(err, &perr) {
			t.Errorf("Decode(%q): got (%v, %v), want *ParseError", input, env, err)
		}
	}
	if _, err := flatembed.Decode(func() {}); err == nil {
		t.Error("Decode(func): got nil error")
	}
}

func TestDecodeCommand(t *testing.T) {
	got, err := flatembed.DecodeCommand(flatembed.Encode("setZoom", 2))
	if err != nil {
		t.Fatalf("DecodeCommand: %v", err)
	}
	want := flatembed.Command{Method: "setZoom", Parameters: json.RawMessage(`2`)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DecodeCommand (-want, +got):\n%s", diff)
	}

	for _, bad := range []any{`[]`, `{"event":"play"}`, `{"method":""}`, `nope`} {
		if cmd, err := flatembed.DecodeCommand(bad); err == nil {
			t.Errorf("DecodeCommand(%v): got %v, want error", bad, cmd)
		}
	}
}

func TestData(t *testing.T) {
	tests := []struct {
		input string
		want  flatembed.Data
	}{
		{`"<xml/>"`, flatembed.TextData("<xml/>")},
		{`""`, flatembed.TextData("")},
		{`[1,2,255]`, flatembed.BinaryData([]byte{1, 2, 255})},
		{`[]`, flatembed.BinaryData([]byte{})},
		{`{"1":66,"0":65}`, flatembed.BinaryData([]byte("AB"))},
		{`null`, flatembed.Data{Binary: true}},

		// Numbers are coerced as by a store into a Uint8Array.
		{`[256,-1,1.5,1.0,300]`, flatembed.BinaryData([]byte{0, 255, 1, 1, 44})},
		{`{"0":300,"1":-2.7}`, flatembed.BinaryData([]byte{44, 254})},
	}
	for _, tc := range tests {
		var got flatembed.Data
		if err := json.Unmarshal([]byte(tc.input), &got); err != nil {
			t.Errorf("Unmarshal %s: unexpected error: %v", tc.input, err)
			continue
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("Unmarshal %s (-want, +got):\n%s", tc.input, diff)
		}
	}

	for _, bad := range []string{`["1"]`, `[true]`, `{"2":1}`, `{"x":1}`, `true`, `{"0":"a"}`} {
		var got flatembed.Data
		if err := json.Unmarshal([]byte(bad), &got); err == nil {
			t.Errorf("Unmarshal %s: got %+v, want error", bad, got)
		}
	}

	if got, want := flatembed.BinaryData([]byte("abc")).String(), "abc"; got != want {
		t.Errorf("String: got %q, want %q", got, want)
	}
	if got := flatembed.TextData("four").Len(); got != 4 {
		t.Errorf("Len: got %d, want 4", got)
	}
}

func TestCallError(t *testing.T) {
	tests := []struct {
		err  *flatembed.CallError
		want string
	}{
		{&flatembed.CallError{Method: "print", Remote: json.RawMessage(`"nope"`)},
			"call print: remote error: nope"},
		{&flatembed.CallError{Method: "print", Remote: json.RawMessage(`{"code":3}`)},
			`call print: remote error: {"code":3}`},
		{&flatembed.CallError{Method: "play", Err: flatembed.ErrTransportUnavailable},
			"call play: transport unavailable"},
	}
	for _, tc := range tests {
		if got := tc.err.Error(); got != tc.want {
			t.Errorf("Error: got %q, want %q", got, tc.want)
		}
	}
}
