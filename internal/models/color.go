package models

import (
	"fmt"
	"regexp"
	"strconv"

	"gonum.org/v1/gonum/floats"
)

// Color is an 8-bit RGB triple.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

func (c Color) vec() []float64 {
	return []float64{float64(c.R), float64(c.G), float64(c.B)}
}

// Distance is the Euclidean distance between two colors in RGB space.
func (c Color) Distance(o Color) float64 {
	return floats.Distance(c.vec(), o.vec(), 2)
}

func (c Color) Hex() string {
	return fmt.Sprintf("%02X%02X%02X", c.R, c.G, c.B)
}

func (c Color) String() string {
	return fmt.Sprintf("(%d, %d, %d)", c.R, c.G, c.B)
}

// Vector returns the color as float32 components, the layout stored by pgvector.
func (c Color) Vector() []float32 {
	return []float32{float32(c.R), float32(c.G), float32(c.B)}
}

var colorComponent = regexp.MustCompile(`-?\d+`)

// ParseColor reads three integer components from text such as "(34, 34, 34)",
// "[34 34 34]" or "34,34,34".
func ParseColor(s string) (Color, error) {
	parts := colorComponent.FindAllString(s, -1)
	if len(parts) != 3 {
		return Color{}, fmt.Errorf("parse color %q: want 3 components, got %d", s, len(parts))
	}
	var out [3]uint8
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 || v > 255 {
			return Color{}, fmt.Errorf("parse color %q: component %q out of range", s, p)
		}
		out[i] = uint8(v)
	}
	return Color{R: out[0], G: out[1], B: out[2]}, nil
}
