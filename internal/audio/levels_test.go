package audio

import (
	"math"
	"testing"
	"time"

	"github.com/safebite/handheld/internal/clock"
	"github.com/safebite/handheld/internal/config"
)

func TestPeakLevel(t *testing.T) {
	tests := []struct {
		name     string
		samples  []int16
		expected uint8
	}{
		{"empty", nil, 0},
		{"silence", []int16{0, 0, 0}, 0},
		{"full scale", []int16{0, math.MaxInt16}, 255},
		{"int16 min clamps", []int16{math.MinInt16}, 255},
		{"half scale", []int16{-16384, 100}, 127},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := PeakLevel(test.samples); got != test.expected {
				t.Errorf("Expected %d, got %d", test.expected, got)
			}
		})
	}
}

func TestLevelHistory(t *testing.T) {
	h, err := NewLevelHistory(4)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	for _, v := range []uint8{1, 2, 3, 4, 5} {
		h.Push(v)
	}
	got := h.Values()
	want := []uint8{2, 3, 4, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, got)
		}
	}

	snapshot := h
	h.Push(9)
	if snapshot == h {
		t.Error("Expected push to change the comparable value")
	}

	h.Clear()
	zero, _ := NewLevelHistory(4)
	if h != zero {
		t.Errorf("Expected cleared history to equal a fresh one, got %v", h.Values())
	}

	for _, n := range []int{0, MaxBars + 1} {
		if _, err := NewLevelHistory(n); err == nil {
			t.Errorf("Expected error for size %d", n)
		}
	}
}

func TestSyntheticDriver(t *testing.T) {
	clk := clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	d := NewSyntheticDriver(440)
	d.SetClock(clk)
	buf := make([]int16, 240)

	if d.Request(buf, 240, 8000) {
		t.Error("Expected request before start to fail")
	}
	d.Configure(8000, 32)
	if err := d.Start(); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if d.Request(buf, 240, 16000) {
		t.Error("Expected request at the wrong rate to fail")
	}
	if d.Request(buf, 241, 8000) {
		t.Error("Expected oversize request to fail")
	}
	clk.Advance(30 * time.Millisecond)
	if !d.Request(buf, 240, 8000) {
		t.Fatal("Expected request to succeed")
	}
	if PeakLevel(buf) == 0 {
		t.Error("Expected non-silent tone")
	}

	d.Stop()
	if d.Running() || d.Stops != 1 {
		t.Errorf("Expected stopped driver, got running=%v stops=%d", d.Running(), d.Stops)
	}
}

func TestSyntheticDriver_DeliversAtSampleRate(t *testing.T) {
	clk := clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	d := NewSyntheticDriver(440)
	d.SetClock(clk)
	d.Configure(8000, 1)
	if err := d.Start(); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	buf := make([]int16, 240)

	if d.Request(buf, 240, 8000) {
		t.Error("Expected request at start to be refused")
	}

	// 20ms at 8000 Hz is 160 samples, short of one chunk.
	clk.Advance(20 * time.Millisecond)
	if d.Request(buf, 240, 8000) {
		t.Error("Expected request before 30ms to be refused")
	}
	if !d.Request(buf, 160, 8000) {
		t.Error("Expected the 160 elapsed samples to be delivered")
	}

	clk.Advance(10 * time.Millisecond)
	if d.Request(buf, 240, 8000) {
		t.Error("Expected request beyond elapsed samples to be refused")
	}
	if !d.Request(buf, 80, 8000) {
		t.Error("Expected the remaining 80 samples to be delivered")
	}
	if d.Requests != 2 {
		t.Errorf("Expected refused requests not counted, got %d", d.Requests)
	}

	// One second of samples after a restart, no more.
	d.Stop()
	d.Start()
	clk.Advance(time.Second)
	delivered := 0
	for d.Request(buf, 240, 8000) {
		delivered += 240
	}
	if delivered != 7920 {
		t.Errorf("Expected 7920 samples in whole chunks, got %d", delivered)
	}
}

func TestDetermineBackend(t *testing.T) {
	tests := map[string]BackendType{
		"":          BackendTypeSynthetic,
		"synthetic": BackendTypeSynthetic,
		"MALGO":     BackendTypeMalgo,
		"auto":      BackendTypeMalgo,
	}
	for driver, expected := range tests {
		cfg := config.Default()
		cfg.Audio.Driver = driver
		if got := determineBackend(cfg); got != expected {
			t.Errorf("determineBackend(%q) = %s, expected %s", driver, got, expected)
		}
	}

	cfg := config.Default()
	cfg.Audio.Driver = "jack"
	if _, err := NewDriver(cfg); err == nil {
		t.Error("Expected error for unknown driver")
	}
	cfg.Audio.Driver = "synthetic"
	if d, err := NewDriver(cfg); err != nil {
		t.Errorf("Expected no error, got: %v", err)
	} else if _, ok := d.(*SyntheticDriver); !ok {
		t.Errorf("Expected *SyntheticDriver, got %T", d)
	}
}

func TestBackendsFor(t *testing.T) {
	if got := BackendsFor(nil); len(got) != 1 || got[0] != BackendTypeSynthetic {
		t.Errorf("Expected [synthetic] without devices, got %v", got)
	}
	got := BackendsFor([]string{"USB Mic"})
	if len(got) != 2 || got[1] != BackendTypeMalgo {
		t.Errorf("Expected [synthetic malgo] with a device, got %v", got)
	}
}
