package audio

import (
	"fmt"

	"github.com/safebite/handheld/internal/render"
)

// Progress screen regions.
const (
	RegionDot     render.RegionID = "rec-dot"
	RegionSeconds render.RegionID = "seconds"
	RegionBars    render.RegionID = "bars"
)

// Progress screen geometry.
var (
	dotRect     = render.Rect{X: 9, Y: 6, W: 14, H: 14}
	secondsRect = render.Rect{X: 90, Y: 108, W: 50, H: 16}
	barsRect    = render.Rect{X: 0, Y: barsTop, W: render.ScreenWidth, H: barsHeight}
)

const (
	dotX, dotY, dotRadius = 15, 12, 6
	labelX, labelY        = 25, 8
	hintX, hintY          = 5, 125

	barsTop    = 52
	barsHeight = 48
	barWidth   = 12
	barGap     = 3
)

func drawDot(d render.Display, visible bool) {
	d.FillRect(dotRect, render.Black)
	label := render.DarkGrey
	if visible {
		d.FillCircle(dotX, dotY, dotRadius, render.Red)
		label = render.Red
	}
	d.DrawText(labelX, labelY, 1, label, "REC")
}

func drawSeconds(d render.Display, seconds int) {
	d.FillRect(secondsRect, render.Black)
	d.DrawText(secondsRect.X, secondsRect.Y, 2, render.Yellow, fmt.Sprintf("%ds", seconds))
}

func drawBars(d render.Display, h LevelHistory) {
	d.FillRect(barsRect, render.Black)

	x := 0
	bottom := barsTop + barsHeight
	for _, level := range h.Values() {
		height := int(level) * barsHeight / 255
		if height > 0 {
			d.FillRect(render.Rect{X: x, Y: bottom - height, W: barWidth, H: height}, render.Green)
		}
		x += barWidth + barGap
	}
}

func drawHint(d render.Display) {
	d.DrawText(hintX, hintY, 1, render.DarkGrey, "B: Cancel")
}
