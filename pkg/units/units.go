// Package units converts palette dimension strings into device pixels.
//
// Three suffixes are understood: rpx (design units on a 750-wide reference
// screen), px (device pixels) and % (relative to a caller supplied base).
// A value may also be a calc() expression over those literals and over the
// resolved boxes of views laid out earlier in the same pass.
package units

import (
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
)

// ReferenceWidth is the design width that one full screen maps to in rpx.
const ReferenceWidth = 750.0

const (
	defaultScreenK = 0.5
	defaultScale   = 1.0
)

// Context carries the scale used by every resolution call. It is a value
// type so the interactive pass and the export pass can each hold their own.
type Context struct {
	// ScreenK is device pixels per rpx (screen width / 750). Zero means 0.5.
	ScreenK float64
	// Scale multiplies both rpx and px values. Zero means 1.
	Scale float64
}

// NewContext derives a Context from the host screen width in device pixels.
func NewContext(screenWidth, scale float64) Context {
	c := Context{Scale: scale}
	if screenWidth > 0 {
		c.ScreenK = screenWidth / ReferenceWidth
	}
	return c
}

// WithScale returns a copy of c using a different scale override.
func (c Context) WithScale(scale float64) Context {
	c.Scale = scale
	return c
}

// PxScale is the effective multiplier applied to px values.
func (c Context) PxScale() float64 {
	return c.scale()
}

func (c Context) screenK() float64 {
	if c.ScreenK == 0 {
		return defaultScreenK
	}
	return c.ScreenK
}

func (c Context) scale() float64 {
	if c.Scale == 0 {
		return defaultScale
	}
	return c.Scale
}

// Refs looks up an attribute (left, right, top, bottom, width, height) of a
// view box that has already been resolved.
type Refs interface {
	RefAttr(id, attr string) (float64, bool)
}

// ResolutionError reports a dimension string that could not be converted.
type ResolutionError struct {
	Value  string
	Reason string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve size %q: %s", e.Value, e.Reason)
}

// Resolve converts value to whole device pixels. base is the size that %
// values are taken against.
func (c Context) Resolve(value string, base float64) (int, error) {
	return c.ResolveRefs(value, base, nil)
}

// ResolveRefs is Resolve with calc() references looked up in refs.
func (c Context) ResolveRefs(value string, base float64, refs Refs) (int, error) {
	v := strings.TrimSpace(value)
	if v == "0" {
		return 0, nil
	}
	if strings.HasPrefix(v, "calc(") && strings.HasSuffix(v, ")") {
		res, err := c.evalCalc(v[len("calc("):len(v)-1], base, refs)
		if err != nil {
			if re, ok := err.(*ResolutionError); ok {
				re.Value = value
				return 0, re
			}
			return 0, err
		}
		return round(res), nil
	}
	px, err := c.literal(v, base)
	if err != nil {
		return 0, &ResolutionError{Value: value, Reason: err.Error()}
	}
	return round(px), nil
}

// ToPx resolves value and falls back to 0 on failure, logging the error.
// This is the degradation path used while painting.
func (c Context) ToPx(value string, base float64, refs Refs) int {
	px, err := c.ResolveRefs(value, base, refs)
	if err != nil {
		log.Printf("painter: %v", err)
		return 0
	}
	return px
}

// literal converts a single "<number><unit>" token. Each literal is rounded
// individually so calc() sums match the pixel values of their parts.
func (c Context) literal(v string, base float64) (float64, error) {
	var unit string
	switch {
	case strings.HasSuffix(v, "rpx"):
		unit = "rpx"
	case strings.HasSuffix(v, "px"):
		unit = "px"
	case strings.HasSuffix(v, "%"):
		unit = "%"
	default:
		return 0, errBadUnit
	}
	num, err := parseNumber(v[:len(v)-len(unit)])
	if err != nil {
		return 0, err
	}
	switch unit {
	case "rpx":
		return float64(round(num * c.screenK() * c.scale())), nil
	case "px":
		return float64(round(num * c.scale())), nil
	default:
		return float64(round(num * base / 100)), nil
	}
}

type unitError string

func (e unitError) Error() string { return string(e) }

const (
	errBadUnit   unitError = "unit must be rpx, px or %"
	errBadNumber unitError = "malformed number"
)

func parseNumber(s string) (float64, error) {
	if s == "" {
		return 0, errBadNumber
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, errBadNumber
	}
	return n, nil
}

// round rounds halves toward +Inf, so -0.5 becomes 0.
func round(v float64) int {
	return int(math.Floor(v + 0.5))
}
