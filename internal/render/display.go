// Package render holds the shared display contract and the per-region diff
// cache that keeps screen updates incremental.
package render

// Screen geometry of the handheld in landscape orientation.
const (
	ScreenWidth  = 240
	ScreenHeight = 135
)

// Color is a display palette entry.
type Color uint8

const (
	Black Color = iota
	White
	Red
	Green
	Yellow
	DarkGrey
)

// String returns the palette name.
func (c Color) String() string {
	switch c {
	case Black:
		return "black"
	case White:
		return "white"
	case Red:
		return "red"
	case Green:
		return "green"
	case Yellow:
		return "yellow"
	case DarkGrey:
		return "darkgrey"
	default:
		return "unknown"
	}
}

// Rect is an axis-aligned pixel rectangle.
type Rect struct {
	X, Y, W, H int
}

// Contains reports whether the point lies inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Display is the drawing surface shared by the recorder and the
// connectivity indicator.
type Display interface {
	FillScreen(c Color)
	FillRect(r Rect, c Color)
	FillCircle(cx, cy, radius int, c Color)
	DrawCircle(cx, cy, radius int, c Color)
	// DrawText prints s with its top-left corner at (x, y). size scales the
	// 6x8 base font.
	DrawText(x, y, size int, c Color, s string)
}

// Discard is a Display that draws nothing.
var Discard Display = discard{}

type discard struct{}

func (discard) FillScreen(Color)                      {}
func (discard) FillRect(Rect, Color)                  {}
func (discard) FillCircle(int, int, int, Color)       {}
func (discard) DrawCircle(int, int, int, Color)       {}
func (discard) DrawText(int, int, int, Color, string) {}
