package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/attnlab/dopamind/internal/daemon"
)

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// output prints v as JSON under --json, otherwise calls text.
func output(v any, text func(w io.Writer) error) error {
	if jsonOutput {
		return printJSON(os.Stdout, v)
	}
	return text(os.Stdout)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func checkmark(ok bool) string {
	if ok {
		return "yes"
	}
	return "-"
}

// warnPersistence reports a failed save; the command itself succeeded in memory.
func warnPersistence(d *daemon.Daemon) {
	if err := d.Engine.PersistenceErr(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: progress not saved: %v\n", err)
	}
}
