package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var noColor bool

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable coloured output")
}

// palette holds the colours used for human-readable output.
type palette struct {
	heading *color.Color
	source  *color.Color
	muted   *color.Color
	warn    *color.Color
	good    *color.Color
}

// newPalette colours output only when w is a terminal.
func newPalette(w io.Writer) palette {
	p := palette{
		heading: color.New(color.Bold),
		source:  color.New(color.FgCyan),
		muted:   color.New(color.Faint),
		warn:    color.New(color.FgYellow, color.Bold),
		good:    color.New(color.FgGreen),
	}
	enable := !noColor && isTerminal(w)
	for _, c := range []*color.Color{p.heading, p.source, p.muted, p.warn, p.good} {
		if enable {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
