// Package payload defines the value carried between nodes during a traversal.
// A payload is treated as an immutable snapshot once handed to a step; every
// consumer that needs its own copy must take one via Clone.
package payload

import (
	"fmt"
	"sort"
	"strings"
)

// Payload is the structured value produced by one node and consumed by the
// next. Media fields hold references (paths or URLs), never embedded data.
type Payload struct {
	Text     string
	Values   map[string]any
	ImageRef string
	AudioRef string
	VideoRef string
	URL      string
}

// Empty returns a payload with no content. An empty payload is a valid node
// output, not a failure.
func Empty() *Payload {
	return &Payload{Values: map[string]any{}}
}

// ErrorTagged returns the payload substituted for a node's output when its
// script fails. The failure is recorded as data so traversal can continue.
func ErrorTagged(kind, message string) *Payload {
	return &Payload{
		Values: map[string]any{
			"error": fmt.Sprintf("%s: %s", kind, message),
		},
	}
}

// IsErrorTagged reports whether this payload was produced by ErrorTagged.
func (p *Payload) IsErrorTagged() bool {
	if p == nil || p.Values == nil {
		return false
	}
	_, ok := p.Values["error"]
	return ok
}

// Clone returns a deep copy of the payload. Forked children each receive
// their own clone so sibling branches never share mutable state.
func (p *Payload) Clone() *Payload {
	if p == nil {
		return Empty()
	}
	return &Payload{
		Text:     p.Text,
		Values:   cloneValue(p.Values).(map[string]any),
		ImageRef: p.ImageRef,
		AudioRef: p.AudioRef,
		VideoRef: p.VideoRef,
		URL:      p.URL,
	}
}

// cloneValue deep-copies the subset of Go values a script can produce:
// maps, slices and scalars.
func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return val
	}
}

// ToMap converts the payload into the map handed to a script as its input
// binding. The map is built fresh on every call, so scripts can never mutate
// the payload they were given.
func (p *Payload) ToMap() map[string]any {
	if p == nil {
		return Empty().ToMap()
	}
	m := map[string]any{
		"text":   p.Text,
		"values": cloneValue(p.Values),
	}
	if p.ImageRef != "" {
		m["image_ref"] = p.ImageRef
	}
	if p.AudioRef != "" {
		m["audio_ref"] = p.AudioRef
	}
	if p.VideoRef != "" {
		m["video_ref"] = p.VideoRef
	}
	if p.URL != "" {
		m["url"] = p.URL
	}
	return m
}

// FromMap interprets a script's result map as a payload. Unknown keys are
// folded into Values so script output is never silently dropped. A nil map
// yields an empty payload.
func FromMap(m map[string]any) *Payload {
	p := Empty()
	if m == nil {
		return p
	}
	for k, v := range m {
		switch k {
		case "text":
			if s, ok := v.(string); ok {
				p.Text = s
				continue
			}
		case "values":
			if vals, ok := v.(map[string]any); ok {
				for vk, vv := range vals {
					p.Values[vk] = cloneValue(vv)
				}
				continue
			}
		case "image_ref":
			if s, ok := v.(string); ok {
				p.ImageRef = s
				continue
			}
		case "audio_ref":
			if s, ok := v.(string); ok {
				p.AudioRef = s
				continue
			}
		case "video_ref":
			if s, ok := v.(string); ok {
				p.VideoRef = s
				continue
			}
		case "url":
			if s, ok := v.(string); ok {
				p.URL = s
				continue
			}
		}
		p.Values[k] = cloneValue(v)
	}
	return p
}

// Summary renders the payload for the oracle's output-data section. Values
// are sorted by key so the summary is deterministic.
func (p *Payload) Summary() string {
	if p == nil {
		return "(empty)"
	}

	var b strings.Builder
	if p.Text != "" {
		b.WriteString(p.Text)
	}
	if len(p.Values) > 0 {
		keys := make([]string, 0, len(p.Values))
		for k := range p.Values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		for _, k := range keys {
			fmt.Fprintf(&b, "%s = %v\n", k, p.Values[k])
		}
	}
	for _, ref := range []struct{ label, v string }{
		{"image", p.ImageRef},
		{"audio", p.AudioRef},
		{"video", p.VideoRef},
		{"url", p.URL},
	} {
		if ref.v != "" {
			fmt.Fprintf(&b, "[%s: %s]\n", ref.label, ref.v)
		}
	}
	if b.Len() == 0 {
		return "(empty)"
	}
	return strings.TrimRight(b.String(), "\n")
}
