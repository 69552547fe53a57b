package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
)

// ErrLocked is returned by an audible Play before the audio was unlocked
// by a silent play triggered from a user gesture.
var ErrLocked = errors.New("audio locked until first user interaction")

// Audio is the notification sound. Play with volume 0 is the silent unlock
// play; any other volume is audible.
type Audio interface {
	Load() error
	Play(ctx context.Context, volume float64) error
	Pause()
	Rewind()
}

// gate tracks the unlock state shared by the Audio implementations.
type gate struct {
	mu       sync.Mutex
	unlocked bool
}

// admit records a silent play, or reports whether an audible one may proceed.
func (g *gate) admit(volume float64) (silent bool, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if volume == 0 {
		g.unlocked = true
		return true, nil
	}
	if !g.unlocked {
		return false, ErrLocked
	}
	return false, nil
}

// BellAudio rings the terminal bell.
type BellAudio struct {
	gate
	w      io.Writer
	loaded bool
}

// NewBellAudio creates a bell writing to w.
func NewBellAudio(w io.Writer) *BellAudio {
	return &BellAudio{w: w}
}

func (b *BellAudio) Load() error {
	b.mu.Lock()
	b.loaded = true
	b.mu.Unlock()
	return nil
}

func (b *BellAudio) Play(_ context.Context, volume float64) error {
	silent, err := b.admit(volume)
	if err != nil || silent {
		return err
	}
	_, err = io.WriteString(b.w, "\a")
	return err
}

func (b *BellAudio) Pause()  {}
func (b *BellAudio) Rewind() {}

// players are tried in order when no player is configured.
var players = []string{"paplay", "pw-play", "aplay", "afplay"}

// CommandAudio plays a sound file through an external player.
type CommandAudio struct {
	gate
	player string
	file   string

	cmdMu sync.Mutex
	cmd   *exec.Cmd
}

// NewCommandAudio prepares file for playback with player, or with the first
// available known player when player is empty.
func NewCommandAudio(file, player string) (*CommandAudio, error) {
	if player == "" {
		for _, p := range players {
			if _, err := exec.LookPath(p); err == nil {
				player = p
				break
			}
		}
		if player == "" {
			return nil, errors.New("no audio player found")
		}
	}
	path, err := exec.LookPath(player)
	if err != nil {
		return nil, fmt.Errorf("audio player %q: %w", player, err)
	}
	return &CommandAudio{player: path, file: file}, nil
}

// Load checks that the sound file is readable.
func (a *CommandAudio) Load() error {
	f, err := os.Open(a.file)
	if err != nil {
		return fmt.Errorf("loading sound: %w", err)
	}
	return f.Close()
}

func (a *CommandAudio) Play(_ context.Context, volume float64) error {
	silent, err := a.admit(volume)
	if err != nil || silent {
		return err
	}

	a.cmdMu.Lock()
	defer a.cmdMu.Unlock()
	a.stopLocked()
	cmd := exec.Command(a.player, a.file)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", a.player, err)
	}
	a.cmd = cmd
	go cmd.Wait()
	return nil
}

func (a *CommandAudio) Pause() {
	a.cmdMu.Lock()
	defer a.cmdMu.Unlock()
	a.stopLocked()
}

// Rewind stops playback; the next Play starts from the beginning.
func (a *CommandAudio) Rewind() { a.Pause() }

func (a *CommandAudio) stopLocked() {
	if a.cmd != nil && a.cmd.Process != nil {
		a.cmd.Process.Kill()
	}
	a.cmd = nil
}
