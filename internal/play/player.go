package play

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/safebite/handheld/internal/wav"
)

// Player pipes an in-memory WAV clip into an external audio player. Nothing
// is written to disk.
type Player struct {
	players []string
}

func New() *Player {
	// List of preferred audio players in order of preference
	return &Player{players: []string{"aplay", "ffplay", "mpv", "vlc"}}
}

// Play blocks until the player exits or ctx is cancelled.
func (p *Player) Play(ctx context.Context, clip []byte) error {
	header, err := wav.Parse(clip)
	if err != nil {
		return fmt.Errorf("invalid clip: %w", err)
	}

	player, err := p.findAudioPlayer()
	if err != nil {
		return fmt.Errorf("no suitable audio player found: %w", err)
	}

	cmd := exec.CommandContext(ctx, player, playerArgs(player)...)
	cmd.Stdin = bytes.NewReader(clip)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	slog.Info("Playing clip", "player", player, "samples", header.Samples(), "sample_rate", header.SampleRate)
	if err := cmd.Run(); err != nil {
		slog.Debug("Player output", "stderr", strings.TrimSpace(stderr.String()))
		return fmt.Errorf("playback failed with %s: %w", player, err)
	}

	slog.Debug("Playback completed", "player", player)
	return nil
}

func playerArgs(player string) []string {
	switch player {
	case "aplay":
		return []string{"-q", "-"}
	case "ffplay":
		return []string{"-nodisp", "-autoexit", "-loglevel", "error", "-"}
	case "mpv":
		return []string{"--no-video", "--really-quiet", "-"}
	case "vlc":
		return []string{"--intf", "dummy", "--play-and-exit", "-"}
	}
	return []string{"-"}
}

func (p *Player) findAudioPlayer() (string, error) {
	for _, player := range p.players {
		if _, err := exec.LookPath(player); err == nil {
			return player, nil
		}
	}

	return "", fmt.Errorf("no audio player found (tried: %s)", strings.Join(p.players, ", "))
}
