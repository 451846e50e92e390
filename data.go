// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package flatembed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Data is the result of an export, or the content of a score to load. The
// viewer reports an export either as text (for example uncompressed MusicXML
// or a data URL) or as binary data, depending on the format requested.
type Data struct {
	Text   string // set if !Binary
	Bytes  []byte // set if Binary
	Binary bool
}

// TextData returns a text Data holding s.
func TextData(s string) Data { return Data{Text: s} }

// BinaryData returns a binary Data holding b.
func BinaryData(b []byte) Data { return Data{Bytes: b, Binary: true} }

// Len reports the length of d in bytes.
func (d Data) Len() int {
	if d.Binary {
		return len(d.Bytes)
	}
	return len(d.Text)
}

// String renders d as a string. Binary data are converted verbatim.
func (d Data) String() string {
	if d.Binary {
		return string(d.Bytes)
	}
	return d.Text
}

// MarshalJSON encodes d as a JSON string if it is text, or as an array of
// byte values if it is binary. This is the form the viewer accepts.
func (d Data) MarshalJSON() ([]byte, error) {
	if !d.Binary {
		return json.Marshal(d.Text)
	}
	buf := make([]byte, 0, 1+4*len(d.Bytes))
	buf = append(buf, '[')
	for i, b := range d.Bytes {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendUint(buf, uint64(b), 10)
	}
	return append(buf, ']'), nil
}

// UnmarshalJSON decodes d from a JSON string (text) or a byte array. A byte
// array may be a JSON array of numbers, or an object whose keys are the
// indices "0", "1", ... of the array, which is how typed arrays serialize.
// Each number is stored as a Uint8Array would store it, keeping the low 8
// bits of its integer part.
func (d *Data) UnmarshalJSON(data []byte) error {
	v, err := decodeData(data)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

func decodeData(raw json.RawMessage) (Data, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return Data{Binary: true}, nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Data{}, err
		}
		return TextData(s), nil

	case '[':
		var vs []float64
		if err := json.Unmarshal(raw, &vs); err != nil {
			return Data{}, fmt.Errorf("invalid byte array: %w", err)
		}
		out := make([]byte, len(vs))
		for i, v := range vs {
			out[i] = toUint8(v)
		}
		return BinaryData(out), nil

	case '{':
		var m map[string]float64
		if err := json.Unmarshal(raw, &m); err != nil {
			return Data{}, fmt.Errorf("invalid byte array: %w", err)
		}
		out := make([]byte, len(m))
		for k, v := range m {
			i, err := strconv.Atoi(k)
			if err != nil || i < 0 || i >= len(out) {
				return Data{}, fmt.Errorf("invalid byte index %q", k)
			}
			out[i] = toUint8(v)
		}
		return BinaryData(out), nil
	}
	return Data{}, fmt.Errorf("unexpected data %s", abbrev(raw))
}

// toUint8 converts v to a byte the way a store into a Uint8Array does: the
// fraction is discarded and the result taken modulo 256.
func toUint8(v float64) byte {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	m := math.Mod(math.Trunc(v), 256)
	if m < 0 {
		m += 256
	}
	return byte(m)
}

// callAs calls method and decodes its response into a value of type T. An
// absent response yields the zero value.
func callAs[T any](ctx context.Context, e *Embed, method string, params any) (T, error) {
	var v T
	rsp, err := e.Call(ctx, method, params)
	if err != nil {
		return v, err
	} else if len(rsp) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(rsp, &v); err != nil {
		return v, callError(method, fmt.Errorf("decode response: %w", err))
	}
	return v, nil
}

// callData calls method and normalizes its response to Data.
func callData(ctx context.Context, e *Embed, method string, params any) (Data, error) {
	rsp, err := e.Call(ctx, method, params)
	if err != nil {
		return Data{}, err
	}
	d, err := decodeData(rsp)
	if err != nil {
		return Data{}, callError(method, fmt.Errorf("decode response: %w", err))
	}
	return d, nil
}

// callDone calls method and discards its response.
func callDone(ctx context.Context, e *Embed, method string, params any) error {
	_, err := e.Call(ctx, method, params)
	return err
}
