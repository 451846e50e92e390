// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/creachadair/flatembed"
	"github.com/creachadair/flatembed/frame"
	"github.com/creachadair/flatembed/handler"
	"github.com/creachadair/flatembed/peers"
	"github.com/fortytw2/leaktest"
)

type part struct {
	PartUUID string  `json:"partUuid"`
	Volume   float64 `json:"volume,omitempty"`
}

func TestHandler(t *testing.T) {
	defer leaktest.Check(t)()
	loc := peers.NewLocal(nil)
	defer loc.Stop()

	e, _, err := loc.NewEmbed(frame.Params{})
	if err != nil {
		t.Fatalf("NewEmbed: %v", err)
	}

	check := func(t *testing.T, params any, want, etext string, h peers.Handler) {
		t.Helper()
		loc.Viewer.Handle("test", h)
		rsp, err := e.Call(context.Background(), "test", params)
		if err != nil {
			if got := err.Error(); got != etext {
				t.Fatalf("Call: got error %v, want %q", err, etext)
			}
		} else if etext != "" {
			t.Fatalf("Call: got %s, want error %q", rsp, etext)
		} else if got := string(rsp); got != want {
			t.Errorf("Call result: got %q, want %q", got, want)
		}
	}
	checkParams := func(t *testing.T, ctx context.Context, want string) {
		t.Helper()
		if got := string(handler.ContextParams(ctx)); got != want {
			t.Errorf("ContextParams: got %q, want %q", got, want)
		}
	}

	t.Run("PRE", func(t *testing.T) {
		t.Run("StringString", func(t *testing.T) {
			check(t, "input", `"input-ok"`, "", handler.ParamResultError(
				func(ctx context.Context, s string) (string, error) {
					checkParams(t, ctx, `"input"`)
					return s + "-ok", nil
				},
			))
		})
		t.Run("StructNumber", func(t *testing.T) {
			check(t, part{PartUUID: "p1", Volume: 30}, `60`, "", handler.ParamResultError(
				func(ctx context.Context, p part) (float64, error) {
					if p.PartUUID != "p1" {
						t.Errorf("Part: got %q, want p1", p.PartUUID)
					}
					return 2 * p.Volume, nil
				},
			))
		})
		t.Run("Error", func(t *testing.T) {
			check(t, "input", "", `call test: remote error: bad robot`, handler.ParamResultError(
				func(ctx context.Context, s string) (string, error) {
					return "", errors.New("bad robot")
				},
			))
		})
		t.Run("BadParams", func(t *testing.T) {
			check(t, "input", "", `call test: remote error: invalid parameters: json: cannot unmarshal string into Go value of type int`,
				handler.ParamResultError(func(ctx context.Context, z int) (int, error) {
					t.Error("Handler should not have been called")
					return z, nil
				}),
			)
		})
	})

	t.Run("PR", func(t *testing.T) {
		check(t, []string{"a", "b"}, `2`, "", handler.ParamResult(
			func(ctx context.Context, ss []string) int { return len(ss) },
		))
	})

	t.Run("PE", func(t *testing.T) {
		t.Run("OK", func(t *testing.T) {
			check(t, true, ``, "", handler.ParamError(
				func(ctx context.Context, b bool) error {
					if !b {
						t.Error("Param: got false, want true")
					}
					return nil
				},
			))
		})
		t.Run("Remote", func(t *testing.T) {
			check(t, nil, "", `call test: remote error: {"code":"E_LOCKED"}`, handler.ParamError(
				func(ctx context.Context, _ json.RawMessage) error {
					checkParams(t, ctx, "")
					return &peers.RemoteError{Payload: map[string]string{"code": "E_LOCKED"}}
				},
			))
		})
	})

	t.Run("RE", func(t *testing.T) {
		check(t, nil, `["m1","m2"]`, "", handler.ResultError(
			func(ctx context.Context) ([]string, error) { return []string{"m1", "m2"}, nil },
		))
	})

	t.Run("RO", func(t *testing.T) {
		check(t, nil, `true`, "", handler.ResultOnly(
			func(ctx context.Context) bool { return true },
		))
	})

	t.Run("Value", func(t *testing.T) {
		check(t, 99, `{"ok":1}`, "", handler.Value(map[string]int{"ok": 1}))
	})

	t.Run("Echo", func(t *testing.T) {
		check(t, map[string]any{"x": []int{1, 2}}, `{"x":[1,2]}`, "", handler.Echo)
	})

	var cerr *flatembed.CallError
	loc.Viewer.Handle("test", nil)
	if _, err := e.Call(context.Background(), "test", nil); !errors.As(err, &cerr) || cerr.Remote == nil {
		t.Errorf("Call unhandled: got %v, want remote error", err)
	}
}
