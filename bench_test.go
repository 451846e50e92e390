// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package flatembed_test

import (
	"context"
	"io"
	"testing"

	"github.com/creachadair/flatembed"
	"github.com/creachadair/flatembed/channel"
	"github.com/creachadair/flatembed/frame"
	"github.com/creachadair/flatembed/handler"
	"github.com/creachadair/flatembed/peers"
)

var payload = map[string]any{
	"partUuid": "fuzzy-wuzzy-was-a-bear",
	"notes":    []int{60, 62, 64, 65, 67, 69, 71, 72},
}

func BenchmarkCall(b *testing.B) {
	b.Run("Direct-noop", func(b *testing.B) {
		loc := peers.NewLocal(peers.NewViewer().Handle("X", handler.Value(true)))
		defer loc.Stop()
		runBench(b, localEmbed(b, loc), nil)
	})
	b.Run("Direct-echo", func(b *testing.B) {
		loc := peers.NewLocal(peers.NewViewer().Handle("X", handler.Echo))
		defer loc.Stop()
		runBench(b, localEmbed(b, loc), payload)
	})
	b.Run("IO-noop", func(b *testing.B) {
		runBench(b, pipeEmbed(b, peers.NewViewer().Handle("X", handler.Value(true))), nil)
	})
	b.Run("IO-echo", func(b *testing.B) {
		runBench(b, pipeEmbed(b, peers.NewViewer().Handle("X", handler.Echo)), payload)
	})
}

func runBench(b *testing.B, e *flatembed.Embed, params any) {
	b.Helper()
	ctx := context.Background()
	if err := e.Ready(ctx); err != nil {
		b.Fatal(err)
	}

	for b.Loop() {
		_, err := e.Call(ctx, "X", params)
		if err != nil {
			b.Fatal(err)
		}
	}
}

func localEmbed(tb testing.TB, loc *peers.Local) *flatembed.Embed {
	e, _, err := loc.NewEmbed(frame.Params{})
	if err != nil {
		tb.Fatalf("NewEmbed: %v", err)
	}
	return e
}

// pipeEmbed connects a host to v over pipes using the JSON encoding.
func pipeEmbed(tb testing.TB, v *peers.Viewer) *flatembed.Embed {
	hr, vw := io.Pipe()
	vr, hw := io.Pipe()
	h := flatembed.NewHost().Start(channel.IO(hr, hw))
	v.Start(channel.IO(vr, vw))
	tb.Cleanup(func() {
		if err := h.Stop(); err != nil {
			tb.Errorf("Host stop: %v", err)
		}
		if err := v.Wait(); err != nil {
			tb.Errorf("Viewer stop: %v", err)
		}
	})
	return localEmbed(tb, &peers.Local{Host: h, Viewer: v, Doc: frame.NewDocument()})
}
