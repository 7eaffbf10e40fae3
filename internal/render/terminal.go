package render

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/V-SK/moltboard/infrastructure/retry"
	"github.com/V-SK/moltboard/internal/dashboard"
)

// clearScreen moves the cursor home and clears the terminal.
const clearScreen = "\033[H\033[2J"

// Terminal is a dashboard.Sink that redraws the whole dashboard on every
// update. Failure notices are printed below the last frame and disappear
// with the next redraw.
type Terminal struct {
	mu      sync.Mutex
	out     io.Writer
	siteURL string
	clear   bool
	color   bool
	now     func() time.Time
}

// TerminalOption configures a Terminal.
type TerminalOption func(*Terminal)

// WithClear clears the screen before each frame.
func WithClear(clear bool) TerminalOption {
	return func(t *Terminal) { t.clear = clear }
}

// WithColor colors failure notices.
func WithColor(color bool) TerminalOption {
	return func(t *Terminal) { t.color = color }
}

// WithNow replaces time.Now for relative timestamps.
func WithNow(now func() time.Time) TerminalOption {
	return func(t *Terminal) { t.now = now }
}

// NewTerminal creates a Terminal writing to out.
func NewTerminal(out io.Writer, siteURL string, opts ...TerminalOption) *Terminal {
	t := &Terminal{out: out, siteURL: siteURL, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

var _ dashboard.Sink = (*Terminal)(nil)

// Update draws snap.
func (t *Terminal) Update(snap dashboard.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.clear {
		_, _ = io.WriteString(t.out, clearScreen)
	}
	_, _ = io.WriteString(t.out, Dashboard(snap, t.siteURL, t.now()))
}

// Failed prints a one-line notice about a failed refresh.
func (t *Terminal) Failed(err error, decision retry.Decision) {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, _ = fmt.Fprintln(t.out, t.paint(FailureNotice(err, decision)))
}

func (t *Terminal) paint(s string) string {
	if !t.color {
		return s
	}
	return text.FgYellow.Sprint(s)
}

// FailureNotice describes a failed refresh and what happens next.
func FailureNotice(err error, decision retry.Decision) string {
	if decision.Retry {
		return fmt.Sprintf("Refresh failed (attempt %d): %v. Retrying in %s.", decision.Attempt, err, decision.Delay)
	}
	return fmt.Sprintf("Refresh failed (attempt %d): %v. Waiting for the next scheduled refresh.", decision.Attempt, err)
}
