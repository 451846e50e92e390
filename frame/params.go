// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package frame

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strings"

	"github.com/creachadair/mds/value"
	"gopkg.in/yaml.v3"
)

// DefaultBaseURL is the viewer origin used when Params.BaseURL is empty.
const DefaultBaseURL = "https://flat-embed.com"

// Params configure the iframe created for a container.
type Params struct {
	// BaseURL is the viewer location. If IsCustomURL is false, the score
	// identifier is appended as a path element.
	BaseURL     string `yaml:"base_url"`
	IsCustomURL bool   `yaml:"is_custom_url"`

	// Score is the hosted score identifier; "blank" if empty.
	Score string `yaml:"score"`

	Width  string `yaml:"width"`  // default "100%"
	Height string `yaml:"height"` // default "100%"
	Lazy   bool   `yaml:"lazy"`

	// EmbedParams are passed to the viewer as query parameters, for example
	// appId, mode, or controlsPosition.
	EmbedParams map[string]any `yaml:"embed_params"`
}

// URL constructs the iframe source URL for p.
func URL(p Params) (string, error) {
	base := value.Cond(p.BaseURL != "", p.BaseURL, DefaultBaseURL)
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid base URL %q: must be absolute", base)
	}

	var sb strings.Builder
	sb.WriteString(strings.TrimSuffix(base, "/"))
	if !p.IsCustomURL {
		sb.WriteString("/")
		sb.WriteString(url.PathEscape(value.Cond(p.Score != "", p.Score, "blank")))
	}

	// jsapi enables the message interface in the viewer, and comes first.
	sb.WriteString("?jsapi=true")
	keys := make([]string, 0, len(p.EmbedParams))
	for k := range p.EmbedParams {
		if k != "jsapi" {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, "&%s=%s", url.QueryEscape(k), url.QueryEscape(fmt.Sprint(p.EmbedParams[k])))
	}
	return sb.String(), nil
}

// ParseParams decodes YAML-formatted parameters from data.
func ParseParams(data []byte) (Params, error) {
	var p Params
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Params{}, fmt.Errorf("parse params: %w", err)
	}
	return p, nil
}

// LoadParams reads YAML-formatted parameters from the named file.
func LoadParams(path string) (Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Params{}, err
	}
	return ParseParams(data)
}
