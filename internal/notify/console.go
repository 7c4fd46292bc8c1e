package notify

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/hamed0406/slotwatch/internal/domain"
)

const displayLayout = "2006-01-02 15:04:05"

var rule = strings.Repeat("-", 50)

// Console prints the per-location status blocks to a terminal.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Found(loc domain.LocationID, at time.Time) error {
	return c.printf("\n✨ APPOINTMENT FOUND\nLocation ID: %6d\nDate & Time: %s\n%s\n\n",
		int(loc), at.Format(displayLayout), rule)
}

func (c *Console) NotFound(loc domain.LocationID, w domain.Window) error {
	return c.printf("\nLocation ID: %6d\nStart Time: %s\nEnd Time:   %s\nStatus:     No appointments found\n%s\n\n",
		int(loc), w.Start.Format(displayLayout), w.End.Format(displayLayout), rule)
}

func (c *Console) Warn(msg string) error {
	return c.printf("⚠ %s\n", msg)
}

func (c *Console) Println(msg string) error {
	return c.printf("%s\n", msg)
}

func (c *Console) printf(format string, args ...any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.w, format, args...)
	return err
}

// AlertText is the body sent to alert channels for a found slot.
func AlertText(loc domain.LocationID, at time.Time) (title, text string) {
	return "Appointment found", fmt.Sprintf("Location ID: %d\nDate & Time: %s", int(loc), at.Format(displayLayout))
}
