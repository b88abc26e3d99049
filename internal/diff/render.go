// Package diff computes line diffs between two texts and renders them as
// compact reports.
package diff

import (
	"strings"

	"github.com/aymanbagabas/go-udiff"
)

// NoChanges is the whole report when nothing differs.
const NoChanges = "No changes."

// Report output formats.
const (
	FormatGrouped = "grouped"
	FormatUnified = "unified"
)

// Render compares previous with current line by line and returns the
// grouped report.
func Render(previous, current string) string {
	return Format(Compare(SplitLines(previous), SplitLines(current)))
}

// Format keeps only added and removed lines, each trimmed and prefixed with
// its tag character. A run-boundary counter goes up every time the tag
// changes; when it reaches two a blank separator line follows and the counter
// restarts, so each removed/added exchange reads as one block.
func Format(lines []Line) string {
	var b strings.Builder
	var prev Tag = Unchanged
	threshold := 0

	for _, line := range lines {
		if line.Tag == Unchanged || line.Tag == Hint {
			continue
		}

		b.WriteByte(line.Tag.Char())
		b.WriteByte(' ')
		b.WriteString(strings.TrimSpace(line.Text))
		b.WriteByte('\n')

		if line.Tag != prev {
			threshold++
			if threshold >= 2 {
				b.WriteByte('\n')
				threshold = 0
			}
		}
		prev = line.Tag
	}

	if b.Len() == 0 {
		return NoChanges
	}
	return b.String()
}

// Unified renders a unified diff with the given labels, or NoChanges.
func Unified(previousLabel, currentLabel, previous, current string) string {
	previous = ensureTrailingNewline(previous)
	current = ensureTrailingNewline(current)
	if previous == current {
		return NoChanges
	}
	out := udiff.Unified(previousLabel, currentLabel, previous, current)
	if strings.TrimSpace(out) == "" {
		return NoChanges
	}
	return out
}

// RenderFormat dispatches on a format name; unknown names fall back to the
// grouped report.
func RenderFormat(format, previous, current string) string {
	if format == FormatUnified {
		return Unified("previous", "current", previous, current)
	}
	return Render(previous, current)
}

func ensureTrailingNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
