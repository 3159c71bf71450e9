package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// printer writes either a human readable line set or indented JSON.
type printer struct {
	w    io.Writer
	json bool
}

// newPrinter prints JSON when forced or when stdout is not a terminal.
func newPrinter(cmd *cobra.Command, forceJSON bool) printer {
	w := cmd.OutOrStdout()
	return printer{w: w, json: forceJSON || !isTerminal(w)}
}

func (p printer) print(v interface{}, format string, args ...interface{}) error {
	if p.json {
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintf(p.w, format, args...)
	return err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
