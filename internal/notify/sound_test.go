package notify

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hamed0406/slotwatch/internal/domain"
)

func onlyOnPath(names ...string) func(string) (string, error) {
	return func(name string) (string, error) {
		for _, n := range names {
			if n == name {
				return "/usr/bin/" + name, nil
			}
		}
		return "", errors.New("not found")
	}
}

func writeSoundFile(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "alarm.mp3")
	if err := os.WriteFile(p, []byte("ID3"), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestSound_MissingFileIsAlertError(t *testing.T) {
	s := NewSound(filepath.Join(t.TempDir(), "missing.mp3"), "")
	s.lookPath = onlyOnPath("mpg123")
	err := s.Send(context.Background(), "", "")
	var ae *AlertError
	if !errors.As(err, &ae) || ae.Channel != "sound" {
		t.Fatalf("want sound AlertError, got %v", err)
	}
}

func TestSound_NoPlayerIsAlertError(t *testing.T) {
	s := NewSound(writeSoundFile(t), "")
	s.lookPath = onlyOnPath()
	err := s.Send(context.Background(), "", "")
	if err == nil || !strings.Contains(err.Error(), "no audio player") {
		t.Fatalf("want no player error, got %v", err)
	}
}

func TestSound_PicksFirstAvailablePlayer(t *testing.T) {
	path := writeSoundFile(t)
	var gotName string
	var gotArgs []string
	s := NewSound(path, "")
	s.lookPath = onlyOnPath("ffplay", "paplay")
	s.run = func(ctx context.Context, name string, args ...string) error {
		gotName, gotArgs = name, args
		return nil
	}
	if err := s.Send(context.Background(), "", ""); err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotName != "ffplay" || gotArgs[len(gotArgs)-1] != path {
		t.Fatalf("unexpected command %s %v", gotName, gotArgs)
	}
}

func TestSound_ConfiguredPlayer(t *testing.T) {
	path := writeSoundFile(t)
	s := NewSound(path, "cvlc --play-and-exit")
	s.lookPath = onlyOnPath("cvlc")
	argv, err := s.Command()
	if err != nil {
		t.Fatalf("command: %v", err)
	}
	if strings.Join(argv, " ") != "cvlc --play-and-exit "+path {
		t.Fatalf("argv=%v", argv)
	}

	s.lookPath = onlyOnPath()
	if _, err := s.Command(); err == nil {
		t.Fatalf("missing configured player should fail")
	}
}

func TestSound_PlayerFailureIsAlertError(t *testing.T) {
	s := NewSound(writeSoundFile(t), "afplay")
	s.lookPath = onlyOnPath("afplay")
	s.run = func(ctx context.Context, name string, args ...string) error { return errors.New("exit status 1") }
	var ae *AlertError
	if err := s.Send(context.Background(), "", ""); !errors.As(err, &ae) {
		t.Fatalf("want AlertError, got %v", err)
	}
}

func TestConsole_Blocks(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)
	at := time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC)
	if err := c.Found(5020, at); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "APPOINTMENT FOUND") || !strings.Contains(out, "Location ID:   5020") ||
		!strings.Contains(out, "Date & Time: 2025-03-01 14:00:00") {
		t.Fatalf("found block wrong:\n%s", out)
	}

	buf.Reset()
	w := domain.Window{Start: at, End: at.Add(24 * time.Hour)}
	if err := c.NotFound(5020, w); err != nil {
		t.Fatal(err)
	}
	out = buf.String()
	if !strings.Contains(out, "Start Time: 2025-03-01 14:00:00") || !strings.Contains(out, "End Time:   2025-03-02 14:00:00") ||
		!strings.Contains(out, "No appointments found") {
		t.Fatalf("not found block wrong:\n%s", out)
	}
}

func TestAlertText(t *testing.T) {
	title, text := AlertText(5020, time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC))
	if title != "Appointment found" || text != "Location ID: 5020\nDate & Time: 2025-03-01 14:00:00" {
		t.Fatalf("unexpected alert text %q %q", title, text)
	}
}
