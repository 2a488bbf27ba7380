package output

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/fatih/color"
)

// Console prints one line per file to Out, prefixed with "+" for added, "-"
// for deleted and "~" for changed files.
type Console struct {
	Out io.Writer

	// NoColor disables colored output.
	NoColor bool

	mu sync.Mutex
}

var prefixes = map[string]struct {
	prefix string
	attr   color.Attribute
}{
	"added":   {"+", color.FgGreen},
	"deleted": {"-", color.FgRed},
	"changed": {"~", color.FgYellow},
}

// Send prints rec.
func (c *Console) Send(ctx context.Context, rec Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := prefixes[rec.Event]
	if !ok {
		p.prefix = "?"
		p.attr = color.FgMagenta
	}

	col := color.New(p.attr)
	if c.NoColor {
		col.DisableColor()
	}

	for _, file := range rec.Files {
		_, err := col.Fprintf(c.Out, "%s %s\n", p.prefix, filepath.Join(rec.Dir, file))
		if err != nil {
			return fmt.Errorf("write: %w", err)
		}
	}

	return nil
}
