// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package frame_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/creachadair/flatembed/frame"
	"github.com/google/go-cmp/cmp"
)

func TestURL(t *testing.T) {
	tests := []struct {
		name string
		p    frame.Params
		want string
	}{
		{"blank", frame.Params{}, "https://flat-embed.com/blank?jsapi=true"},
		{"score", frame.Params{Score: "56ae21579a127715a02901a6"},
			"https://flat-embed.com/56ae21579a127715a02901a6?jsapi=true"},
		{"base", frame.Params{BaseURL: "https://example.com/embed/", Score: "x"},
			"https://example.com/embed/x?jsapi=true"},
		{"custom", frame.Params{BaseURL: "https://example.com/my/viewer", IsCustomURL: true, Score: "ignored"},
			"https://example.com/my/viewer?jsapi=true"},
		{"params", frame.Params{Score: "s", EmbedParams: map[string]any{
			"mode": "edit", "appId": "abc 123", "jsapi": false, "controlsPosition": "bottom", "branding": false,
		}}, "https://flat-embed.com/s?jsapi=true&appId=abc+123&branding=false&controlsPosition=bottom&mode=edit"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := frame.URL(tc.p)
			if err != nil {
				t.Fatalf("URL: unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("URL:\n got %q\nwant %q", got, tc.want)
			}
		})
	}

	for _, bad := range []string{"flat-embed.com", "/relative", "://"} {
		if got, err := frame.URL(frame.Params{BaseURL: bad}); err == nil {
			t.Errorf("URL(%q): got %q, want error", bad, got)
		}
	}
}

func TestBuild(t *testing.T) {
	doc := frame.NewDocument()
	box := doc.CreateElement("DIV")
	doc.Append(doc.Body(), box)

	fr, err := frame.Resolve(box, frame.Params{Score: "s", Width: "640", Lazy: true})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !fr.IsFrame() {
		t.Fatalf("Resolve: got %q, want iframe", fr.Tag)
	}
	got := make(map[string]string)
	for _, name := range []string{"src", "width", "height", "allowfullscreen", "allow", "frameBorder", "loading"} {
		got[name] = fr.Attr(name)
	}
	want := map[string]string{
		"src":             "https://flat-embed.com/s?jsapi=true",
		"width":           "640",
		"height":          "100%",
		"allowfullscreen": "true",
		"allow":           "autoplay; midi",
		"frameBorder":     "0",
		"loading":         "lazy",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Attributes (-want, +got):\n%s", diff)
	}

	// Resolving the frame itself returns it without building another.
	if again, err := frame.Resolve(fr, frame.Params{}); err != nil || again != fr {
		t.Errorf("Resolve(frame): got (%v, %v), want (%v, nil)", again, err, fr)
	}
	if n := len(box.Children()); n != 1 {
		t.Errorf("Container has %d children, want 1", n)
	}

	if _, err := frame.Resolve(box, frame.Params{BaseURL: "bogus"}); err == nil {
		t.Error("Resolve with a bad base URL: got nil error")
	}
}

func TestAttachment(t *testing.T) {
	doc := frame.NewDocument()
	outer := doc.CreateElement("div")
	outer.ID = "outer"
	fr := doc.CreateElement("iframe")
	fr.ID = "viewer"

	if fr.ContentWindow() != nil {
		t.Error("Detached frame has a content window")
	}
	doc.Append(outer, fr)
	if fr.Attached() || fr.ContentWindow() != nil {
		t.Error("Frame in a detached subtree is attached")
	}
	doc.Append(doc.Body(), outer)
	w := fr.ContentWindow()
	if w == nil || w.ID == "" {
		t.Fatalf("Attached frame: got window %v, want non-empty", w)
	}
	if outer.ContentWindow() != nil {
		t.Error("Non-frame element has a content window")
	}

	for sel, want := range map[string]*frame.Element{
		"#viewer": fr, "#outer": outer, "iframe": fr, "IFRAME": fr, "div": outer, "body": doc.Body(),
	} {
		if got, err := doc.Query(sel); err != nil || got != want {
			t.Errorf("Query(%q): got (%v, %v), want %v", sel, got, err, want)
		}
	}
	for _, sel := range []string{"#nobody", "span", ""} {
		if got, err := doc.Query(sel); !errors.Is(err, frame.ErrNotFound) {
			t.Errorf("Query(%q): got (%v, %v), want %v", sel, got, err, frame.ErrNotFound)
		}
	}

	doc.Remove(outer)
	if fr.ContentWindow() != nil {
		t.Error("Removed frame has a content window")
	}
	if _, err := doc.Query("#viewer"); err == nil {
		t.Error("Query found a removed element")
	}

	// The window identity survives reattachment.
	doc.Append(doc.Body(), outer)
	if got := fr.ContentWindow(); got != w {
		t.Errorf("Reattached window: got %v, want %v", got, w)
	}

	other := doc.CreateElement("iframe")
	doc.Append(doc.Body(), other)
	if other.ContentWindow().ID == w.ID {
		t.Errorf("Distinct frames share window ID %q", w.ID)
	}
}

func TestParams(t *testing.T) {
	const input = `
base_url: https://flat-embed.com
score: 56ae21579a127715a02901a6
width: "800"
lazy: true
embed_params:
  appId: my-app
  mode: view
  controlsFloating: false
`
	p, err := frame.ParseParams([]byte(input))
	if err != nil {
		t.Fatalf("ParseParams: %v", err)
	}
	want := frame.Params{
		BaseURL: "https://flat-embed.com",
		Score:   "56ae21579a127715a02901a6",
		Width:   "800",
		Lazy:    true,
		EmbedParams: map[string]any{
			"appId": "my-app", "mode": "view", "controlsFloating": false,
		},
	}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("ParseParams (-want, +got):\n%s", diff)
	}

	path := filepath.Join(t.TempDir(), "params.yaml")
	if err := os.WriteFile(path, []byte(input), 0600); err != nil {
		t.Fatal(err)
	}
	q, err := frame.LoadParams(path)
	if err != nil {
		t.Fatalf("LoadParams: %v", err)
	}
	if diff := cmp.Diff(p, q); diff != "" {
		t.Errorf("LoadParams (-want, +got):\n%s", diff)
	}

	if _, err := frame.ParseParams([]byte("score: [")); err == nil {
		t.Error("ParseParams: got nil error for bad input")
	}
	if _, err := frame.LoadParams(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadParams: got nil error for a missing file")
	}
}
