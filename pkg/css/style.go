package css

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Style is one style record: property name to raw value. Dimension values
// stay unresolved strings ("20rpx", "calc(a.bottom + 10px)") until a layout
// pass resolves them against a scale context.
type Style struct {
	Properties map[string]string
}

func NewStyle() *Style {
	return &Style{Properties: make(map[string]string)}
}

// StyleOf builds a style from alternating name/value pairs. Empty values
// are kept, so the result can serve as a patch that clears properties.
func StyleOf(kv ...string) *Style {
	s := NewStyle()
	for i := 0; i+1 < len(kv); i += 2 {
		s.Properties[kv[i]] = kv[i+1]
	}
	return s
}

func (s *Style) Get(property string) (string, bool) {
	if s == nil {
		return "", false
	}
	val, ok := s.Properties[property]
	return val, ok
}

// Set stores a value. An empty value removes the property, which is how a
// patch clears an earlier layer's value (e.g. dropping "right" after a drag).
func (s *Style) Set(property, value string) {
	if value == "" {
		delete(s.Properties, property)
		return
	}
	s.Properties[property] = value
}

// Has reports whether the property is present and non-empty.
func (s *Style) Has(property string) bool {
	v, ok := s.Get(property)
	return ok && v != ""
}

// GetBool reads flag-like properties such as scalable and deletable.
func (s *Style) GetBool(property string) bool {
	v, ok := s.Get(property)
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

func (s *Style) Clone() *Style {
	c := &Style{Properties: make(map[string]string, len(s.Properties))}
	for k, v := range s.Properties {
		c.Properties[k] = v
	}
	return c
}

// Keys returns property names in sorted order.
func (s *Style) Keys() []string {
	keys := make([]string, 0, len(s.Properties))
	for k := range s.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Style) String() string {
	var b strings.Builder
	for i, k := range s.Keys() {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(s.Properties[k])
	}
	return b.String()
}

// Layers is an ordered sequence of style records. Later records override
// earlier ones property by property. A single record is a one-element
// sequence, so every style in the system merges the same way.
type Layers []*Style

// Single wraps one record as Layers.
func Single(s *Style) Layers {
	if s == nil {
		return Layers{}
	}
	return Layers{s}
}

// Effective merges all layers left to right into a fresh record.
func (l Layers) Effective() *Style {
	out := NewStyle()
	for _, layer := range l {
		if layer == nil {
			continue
		}
		for k, v := range layer.Properties {
			out.Set(k, v)
		}
	}
	return out
}

// Merge applies patch over l and collapses the result into one record.
func (l Layers) Merge(patch Layers) Layers {
	all := make(Layers, 0, len(l)+len(patch))
	all = append(all, l...)
	all = append(all, patch...)
	return Layers{all.Effective()}
}

// Clone deep-copies every record.
func (l Layers) Clone() Layers {
	if l == nil {
		return nil
	}
	out := make(Layers, len(l))
	for i, s := range l {
		if s != nil {
			out[i] = s.Clone()
		}
	}
	return out
}

// Get is shorthand for Effective().Get when only one property is needed.
func (l Layers) Get(property string) (string, bool) {
	for i := len(l) - 1; i >= 0; i-- {
		if l[i] == nil {
			continue
		}
		if v, ok := l[i].Properties[property]; ok {
			return v, true
		}
	}
	return "", false
}

// MarshalJSON writes a one-layer style as a plain object and anything else
// as an array.
func (l Layers) MarshalJSON() ([]byte, error) {
	if len(l) == 1 {
		return json.Marshal(l[0].Properties)
	}
	props := make([]map[string]string, 0, len(l))
	for _, s := range l {
		if s == nil {
			props = append(props, map[string]string{})
			continue
		}
		props = append(props, s.Properties)
	}
	return json.Marshal(props)
}

// UnmarshalJSON accepts either a style object or an array of them. Numbers
// and booleans are kept in their literal text form.
func (l *Layers) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*l = nil
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var raw []map[string]json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("parsing style list: %w", err)
		}
		out := make(Layers, 0, len(raw))
		for _, m := range raw {
			s, err := styleFromRaw(m)
			if err != nil {
				return err
			}
			out = append(out, s)
		}
		*l = out
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parsing style: %w", err)
	}
	s, err := styleFromRaw(raw)
	if err != nil {
		return err
	}
	*l = Layers{s}
	return nil
}

func styleFromRaw(raw map[string]json.RawMessage) (*Style, error) {
	s := NewStyle()
	for k, v := range raw {
		// empty strings and nulls are kept so a patch layer can clear
		// the property when merged
		var str string
		if err := json.Unmarshal(v, &str); err == nil {
			s.Properties[k] = str
			continue
		}
		lit := strings.TrimSpace(string(v))
		if lit == "null" {
			s.Properties[k] = ""
			continue
		}
		if strings.HasPrefix(lit, "{") || strings.HasPrefix(lit, "[") {
			return nil, fmt.Errorf("style property %q: nested values are not supported", k)
		}
		s.Set(k, lit)
	}
	return s, nil
}
