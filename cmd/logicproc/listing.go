package main

import (
	"strings"

	"github.com/fatih/color"
)

var (
	dimColor      = color.New(color.Faint)
	mnemonicColor = color.New(color.Bold, color.FgCyan)
)

// colorize dims comment lines and highlights mnemonics in a listing.
// Instruction lines are "NNNN  mnemonic   operands". Nothing is added
// when color.NoColor is set.
func colorize(listing string) string {
	var b strings.Builder
	for _, line := range strings.SplitAfter(listing, "\n") {
		body := strings.TrimSuffix(line, "\n")
		nl := line[len(body):]
		switch {
		case body == "":
		case strings.HasPrefix(body, ";"):
			body = dimColor.Sprint(body)
		case len(body) > 6 && body[4:6] == "  ":
			rest := body[6:]
			end := strings.IndexByte(rest, ' ')
			if end < 0 {
				end = len(rest)
			}
			body = dimColor.Sprint(body[:6]) + mnemonicColor.Sprint(rest[:end]) + rest[end:]
		}
		b.WriteString(body)
		b.WriteString(nl)
	}
	return b.String()
}
