package library

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// WriteReport prints the most-borrowed and per-user tables.
func WriteReport(w io.Writer, counts []BookCount, totals []UserTotal) {
	if len(counts) == 0 {
		fmt.Fprintln(w, "No checkouts recorded yet.")
		return
	}
	fmt.Fprintln(w, "Most borrowed books:")
	fmt.Fprintf(w, "%-14s %-40s %s\n", "ISBN", "Title", "Checkouts")
	fmt.Fprintln(w, strings.Repeat("-", 65))
	for _, c := range counts {
		fmt.Fprintf(w, "%-14s %-40s %d\n", c.ISBN, TruncateString(c.Title, 40), c.Count)
	}

	fmt.Fprintln(w, "\nBorrowing by user:")
	fmt.Fprintf(w, "%-30s %-10s %s\n", "User", "Total", "Open")
	fmt.Fprintln(w, strings.Repeat("-", 50))
	for _, t := range totals {
		fmt.Fprintf(w, "%-30s %-10d %d\n", TruncateString(t.UserName, 30), t.Total, t.Open)
	}
}

// TruncateString shortens s to at most maxLen runes, ending in "..." when cut.
func TruncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	r := []rune(s)
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
