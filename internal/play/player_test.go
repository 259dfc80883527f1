package play

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/safebite/handheld/internal/wav"
)

func testClip(t *testing.T) []byte {
	t.Helper()
	clip := make([]byte, wav.HeaderSize+2*800)
	if err := wav.NewPCM16Mono(8000, 800).Put(clip); err != nil {
		t.Fatalf("Failed to write header: %v", err)
	}
	return clip
}

func TestPlay_InvalidClip(t *testing.T) {
	err := New().Play(context.Background(), []byte("not a wav"))
	if err == nil || !strings.Contains(err.Error(), "invalid clip") {
		t.Errorf("Expected invalid clip error, got: %v", err)
	}
}

func TestPlay_NoPlayer(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	err := New().Play(context.Background(), testClip(t))
	if err == nil || !strings.Contains(err.Error(), "no audio player found") {
		t.Errorf("Expected no player error, got: %v", err)
	}
}

func TestPlay_PipesClipToStdin(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "received.wav")
	script := "#!/bin/sh\ncat > " + out + "\n"
	if err := os.WriteFile(filepath.Join(dir, "aplay"), []byte(script), 0755); err != nil {
		t.Fatalf("Failed to write fake player: %v", err)
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+"/bin"+string(os.PathListSeparator)+"/usr/bin")

	clip := testClip(t)
	if err := New().Play(context.Background(), clip); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("Expected player to receive the clip: %v", err)
	}
	if len(got) != len(clip) {
		t.Errorf("Expected %d bytes on stdin, got %d", len(clip), len(got))
	}
}
