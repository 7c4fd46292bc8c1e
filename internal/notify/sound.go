package notify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// players are tried in order when no player command is configured.
var players = [][]string{
	{"afplay"},
	{"mpg123", "-q"},
	{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet"},
	{"paplay"},
	{"aplay", "-q"},
}

// Sound plays an audio file through an external player program.
type Sound struct {
	Path string
	// Player is the command line used to play Path, e.g. "mpg123 -q".
	// Empty means the first known player found on PATH.
	Player string

	lookPath func(string) (string, error)
	run      func(ctx context.Context, name string, args ...string) error
}

func NewSound(path, player string) *Sound {
	return &Sound{Path: path, Player: player}
}

func (s *Sound) Send(ctx context.Context, _, _ string) error {
	if _, err := os.Stat(s.Path); err != nil {
		return &AlertError{Channel: "sound", Err: err}
	}
	argv, err := s.Command()
	if err != nil {
		return &AlertError{Channel: "sound", Err: err}
	}
	if err := s.runner()(ctx, argv[0], argv[1:]...); err != nil {
		return &AlertError{Channel: "sound", Err: fmt.Errorf("%s: %w", argv[0], err)}
	}
	return nil
}

// Command returns the full player invocation for Path.
func (s *Sound) Command() ([]string, error) {
	look := s.lookPath
	if look == nil {
		look = exec.LookPath
	}
	if p := strings.Fields(s.Player); len(p) > 0 {
		if _, err := look(p[0]); err != nil {
			return nil, err
		}
		return append(p, s.Path), nil
	}
	for _, p := range players {
		if _, err := look(p[0]); err == nil {
			return append(append([]string{}, p...), s.Path), nil
		}
	}
	return nil, errors.New("no audio player found on PATH")
}

func (s *Sound) runner() func(ctx context.Context, name string, args ...string) error {
	if s.run != nil {
		return s.run
	}
	return func(ctx context.Context, name string, args ...string) error {
		return exec.CommandContext(ctx, name, args...).Run()
	}
}
