package game

import "github.com/ayusman/kaiplay/internal/interaction"

// ShapeKind is a draw primitive.
type ShapeKind string

const (
	ShapeRect   ShapeKind = "rect"
	ShapeText   ShapeKind = "text"
	ShapeCircle ShapeKind = "circle"
)

// Color is an RGB colour.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

var (
	White  = Color{255, 255, 255}
	Green  = Color{0, 255, 0}
	Red    = Color{255, 60, 60}
	Yellow = Color{255, 255, 0}
	Cyan   = Color{0, 255, 255}
	Blue   = Color{100, 100, 255}
	Grey   = Color{160, 160, 160}
)

// Shape is one draw command for the render layer.
type Shape struct {
	Kind      ShapeKind         `json:"kind"`
	Rect      interaction.Rect  `json:"rect,omitzero"`
	At        interaction.Point `json:"at,omitzero"`
	Radius    float64           `json:"radius,omitempty"`
	Text      string            `json:"text,omitempty"`
	Scale     float64           `json:"scale,omitempty"`
	Color     Color             `json:"color"`
	Thickness int               `json:"thickness"`
}

func rectShape(r interaction.Rect, c Color, thickness int) Shape {
	return Shape{Kind: ShapeRect, Rect: r, Color: c, Thickness: thickness}
}

func textShape(text string, at interaction.Point, c Color, scale float64) Shape {
	return Shape{Kind: ShapeText, Text: text, At: at, Color: c, Scale: scale, Thickness: 2}
}

// Filled circles use a negative thickness.
func circleShape(at interaction.Point, radius float64, c Color, thickness int) Shape {
	return Shape{Kind: ShapeCircle, At: at, Radius: radius, Color: c, Thickness: thickness}
}
