package render

import (
	"strings"
	"testing"
)

func TestCanvas_Shapes(t *testing.T) {
	cv := NewCanvas()

	cv.FillCircle(15, 12, 6, Red)
	if cv.Pixel(15, 12) != Red {
		t.Errorf("Expected centre red, got %v", cv.Pixel(15, 12))
	}
	if cv.Pixel(15+7, 12) != Black {
		t.Error("Expected pixel outside radius to stay black")
	}

	cv.FillRect(Rect{9, 6, 14, 14}, Black)
	if cv.Pixel(15, 12) != Black {
		t.Error("Expected FillRect to clear the dot")
	}

	cv.DrawCircle(225, 10, 5, Red)
	if cv.Pixel(225, 10) != Black {
		t.Error("Expected outline circle to leave centre empty")
	}
	if cv.Pixel(230, 10) != Red {
		t.Errorf("Expected outline at radius, got %v", cv.Pixel(230, 10))
	}
}

func TestCanvas_TextLayer(t *testing.T) {
	cv := NewCanvas()
	cv.DrawText(90, 108, 2, Yellow, "6s")

	s, c, ok := cv.TextAt(90, 108)
	if !ok || s != "6s" || c != Yellow {
		t.Errorf("Expected yellow '6s', got %q %v %v", s, c, ok)
	}

	cv.FillRect(Rect{90, 108, 50, 16}, Black)
	if _, _, ok := cv.TextAt(90, 108); ok {
		t.Error("Expected FillRect to erase anchored text")
	}
}

func TestCanvas_Dirty(t *testing.T) {
	cv := NewCanvas()
	if cv.TakeDirty() {
		t.Error("Expected fresh canvas to be clean")
	}
	cv.FillScreen(Black)
	if !cv.TakeDirty() {
		t.Error("Expected canvas to be dirty after drawing")
	}
	if cv.TakeDirty() {
		t.Error("Expected TakeDirty to clear the flag")
	}
	if cv.Ops() != 1 {
		t.Errorf("Expected 1 op, got %d", cv.Ops())
	}
}

func TestCanvas_Render(t *testing.T) {
	cv := NewCanvas()
	cv.DrawText(25, 8, 1, Red, "REC")

	out := cv.Render()
	lines := strings.Split(out, "\n")
	if len(lines) != 17 {
		t.Errorf("Expected 17 rows, got %d", len(lines))
	}
	if !strings.Contains(out, "R") || !strings.Contains(out, "E") || !strings.Contains(out, "C") {
		t.Error("Expected rendered frame to contain the REC label")
	}
}
