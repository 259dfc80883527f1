package service

import (
	"fmt"

	"github.com/safebite/handheld/internal/audio"
	"github.com/safebite/handheld/internal/render"
)

func drawIdle(d render.Display, status audio.Status, seconds int) {
	d.FillScreen(render.Black)

	switch status {
	case audio.StatusComplete:
		d.DrawText(10, 40, 2, render.Green, "Recorded")
		d.DrawText(10, 70, 1, render.White, fmt.Sprintf("%ds clip ready", seconds))
	case audio.StatusError:
		d.DrawText(10, 40, 2, render.Red, "Mic error")
		d.DrawText(10, 70, 1, render.White, "Try again")
	default:
		d.DrawText(10, 40, 2, render.White, "Ready")
		d.DrawText(10, 70, 1, render.White, fmt.Sprintf("Record a %ds voice note", seconds))
	}
	d.DrawText(5, 125, 1, render.DarkGrey, "A: Record")
}
