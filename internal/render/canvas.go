package render

import (
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Terminal cell size in screen pixels used by Canvas.Render.
const (
	cellWidth  = 4
	cellHeight = 8
)

const baseGlyphWidth = 6

var palette = map[Color]lipgloss.Color{
	Black:    lipgloss.Color("#000000"),
	White:    lipgloss.Color("#ffffff"),
	Red:      lipgloss.Color("#ff0000"),
	Green:    lipgloss.Color("#00ff00"),
	Yellow:   lipgloss.Color("#ffff00"),
	DarkGrey: lipgloss.Color("#7b7d7b"),
}

type textItem struct {
	size  int
	color Color
	text  string
}

type point struct{ x, y int }

// Canvas is an in-memory framebuffer implementing Display. Shapes are
// rasterised into pixels; text is kept as a separate layer anchored at its
// top-left corner. Render turns the canvas into a coloured terminal frame.
type Canvas struct {
	mu     sync.Mutex
	width  int
	height int
	pixels []Color
	text   map[point]textItem
	dirty  bool
	ops    int
}

// NewCanvas returns a black canvas of the handheld's screen size.
func NewCanvas() *Canvas {
	return &Canvas{
		width:  ScreenWidth,
		height: ScreenHeight,
		pixels: make([]Color, ScreenWidth*ScreenHeight),
		text:   make(map[point]textItem),
	}
}

// FillScreen implements Display.
func (cv *Canvas) FillScreen(c Color) {
	cv.FillRect(Rect{0, 0, cv.width, cv.height}, c)
}

// FillRect implements Display. Text anchored inside r is erased.
func (cv *Canvas) FillRect(r Rect, c Color) {
	cv.mu.Lock()
	defer cv.mu.Unlock()

	for y := max(r.Y, 0); y < min(r.Y+r.H, cv.height); y++ {
		for x := max(r.X, 0); x < min(r.X+r.W, cv.width); x++ {
			cv.pixels[y*cv.width+x] = c
		}
	}
	for p := range cv.text {
		if r.Contains(p.x, p.y) {
			delete(cv.text, p)
		}
	}
	cv.touch()
}

// FillCircle implements Display.
func (cv *Canvas) FillCircle(cx, cy, radius int, c Color) {
	cv.mu.Lock()
	defer cv.mu.Unlock()

	r2 := radius * radius
	for y := cy - radius; y <= cy+radius; y++ {
		for x := cx - radius; x <= cx+radius; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= r2 {
				cv.set(x, y, c)
			}
		}
	}
	cv.touch()
}

// DrawCircle implements Display.
func (cv *Canvas) DrawCircle(cx, cy, radius int, c Color) {
	cv.mu.Lock()
	defer cv.mu.Unlock()

	outer := radius * radius
	inner := (radius - 1) * (radius - 1)
	for y := cy - radius; y <= cy+radius; y++ {
		for x := cx - radius; x <= cx+radius; x++ {
			dx, dy := x-cx, y-cy
			d := dx*dx + dy*dy
			if d <= outer && d > inner {
				cv.set(x, y, c)
			}
		}
	}
	cv.touch()
}

// DrawText implements Display.
func (cv *Canvas) DrawText(x, y, size int, c Color, s string) {
	cv.mu.Lock()
	defer cv.mu.Unlock()

	if size < 1 {
		size = 1
	}
	cv.text[point{x, y}] = textItem{size: size, color: c, text: s}
	cv.touch()
}

func (cv *Canvas) set(x, y int, c Color) {
	if x < 0 || y < 0 || x >= cv.width || y >= cv.height {
		return
	}
	cv.pixels[y*cv.width+x] = c
}

func (cv *Canvas) touch() {
	cv.dirty = true
	cv.ops++
}

// Pixel returns the colour at (x, y); out-of-bounds reads are Black.
func (cv *Canvas) Pixel(x, y int) Color {
	cv.mu.Lock()
	defer cv.mu.Unlock()

	if x < 0 || y < 0 || x >= cv.width || y >= cv.height {
		return Black
	}
	return cv.pixels[y*cv.width+x]
}

// TextAt returns the text anchored at (x, y) and its colour.
func (cv *Canvas) TextAt(x, y int) (string, Color, bool) {
	cv.mu.Lock()
	defer cv.mu.Unlock()

	item, ok := cv.text[point{x, y}]
	return item.text, item.color, ok
}

// Ops returns the number of drawing operations applied so far.
func (cv *Canvas) Ops() int {
	cv.mu.Lock()
	defer cv.mu.Unlock()
	return cv.ops
}

// TakeDirty reports whether the canvas changed since the last call and
// clears the flag.
func (cv *Canvas) TakeDirty() bool {
	cv.mu.Lock()
	defer cv.mu.Unlock()

	d := cv.dirty
	cv.dirty = false
	return d
}

// Render draws the canvas as rows of coloured terminal cells, each cell
// covering a 4x8 pixel block.
func (cv *Canvas) Render() string {
	cv.mu.Lock()
	defer cv.mu.Unlock()

	cols := (cv.width + cellWidth - 1) / cellWidth
	rows := (cv.height + cellHeight - 1) / cellHeight

	// Overlay text onto a rune grid first.
	glyphs := make([]rune, cols*rows)
	glyphColor := make([]Color, cols*rows)
	for p, item := range cv.text {
		row := p.y / cellHeight
		col := p.x / cellWidth
		if row < 0 || row >= rows {
			continue
		}
		step := max(1, baseGlyphWidth*item.size/cellWidth)
		for _, r := range item.text {
			if col >= 0 && col < cols {
				glyphs[row*cols+col] = r
				glyphColor[row*cols+col] = item.color
			}
			col += step
		}
	}

	var sb strings.Builder
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			bg := cv.cellColor(col, row)
			style := lipgloss.NewStyle().Background(palette[bg])
			ch := " "
			if g := glyphs[row*cols+col]; g != 0 {
				ch = string(g)
				style = style.Foreground(palette[glyphColor[row*cols+col]])
			}
			sb.WriteString(style.Render(ch))
		}
		if row < rows-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// cellColor picks the dominant non-black colour of a cell, or Black when
// less than a quarter of the cell is lit.
func (cv *Canvas) cellColor(col, row int) Color {
	var counts [DarkGrey + 1]int
	total := 0
	for y := row * cellHeight; y < min((row+1)*cellHeight, cv.height); y++ {
		for x := col * cellWidth; x < min((col+1)*cellWidth, cv.width); x++ {
			counts[cv.pixels[y*cv.width+x]]++
			total++
		}
	}
	best, bestN := Black, 0
	for c := White; c <= DarkGrey; c++ {
		if counts[c] > bestN {
			best, bestN = c, counts[c]
		}
	}
	if bestN*4 < total {
		return Black
	}
	return best
}
