package wifi

import "github.com/safebite/handheld/internal/render"

// RegionGlyph is the status indicator in the top-right corner.
const RegionGlyph render.RegionID = "wifi-glyph"

const (
	glyphX      = 225
	glyphY      = 5
	glyphRadius = 5
)

type glyph struct {
	state   State
	visible bool
}

// Render draws the status glyph when the state changed since the last draw,
// and on every call while connecting so the blink is shown.
func (m *Manager) Render(d render.Display) {
	if m.mode == ModeOffline {
		return
	}
	g := glyph{state: m.state, visible: m.blinkOn}
	draw := func(g glyph) { drawGlyph(d, g) }
	if m.state == StateConnecting {
		render.Force(m.cache, RegionGlyph, g, draw)
		return
	}
	render.Update(m.cache, RegionGlyph, g, draw)
}

// InvalidateGlyph forces the next Render to draw, after another component
// repainted the whole screen.
func (m *Manager) InvalidateGlyph() {
	m.cache.Forget(RegionGlyph)
}

func drawGlyph(d render.Display, g glyph) {
	cy := glyphY + glyphRadius
	d.FillCircle(glyphX, cy, glyphRadius+1, render.Black)

	switch g.state {
	case StateConnected:
		d.FillCircle(glyphX, cy, glyphRadius, render.Green)
	case StateConnecting:
		if g.visible {
			d.FillCircle(glyphX, cy, glyphRadius, render.Yellow)
		}
	case StateDisconnected:
		d.DrawCircle(glyphX, cy, glyphRadius, render.Red)
	}
}
