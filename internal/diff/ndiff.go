package diff

import (
	"strings"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"
)

// Tag marks what happened to a line between the two texts.
type Tag int

const (
	Unchanged Tag = iota
	Added
	Removed
	// Hint lines point at changed character spans of the line above.
	Hint
)

// Char is the one-character prefix used when a line is printed.
func (t Tag) Char() byte {
	switch t {
	case Added:
		return '+'
	case Removed:
		return '-'
	case Hint:
		return '?'
	}
	return ' '
}

func (t Tag) String() string {
	switch t {
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Hint:
		return "hint"
	}
	return "unchanged"
}

// Line is one entry of the compare stream.
type Line struct {
	Tag  Tag
	Text string
}

func (l Line) String() string {
	return string(l.Tag.Char()) + " " + l.Text
}

// Similar lines inside a replaced block are paired when their character
// similarity ratio beats cutoff.
const (
	cutoff    = 0.75
	bestStart = 0.74
)

// SplitLines splits on "\n" only; carriage returns stay with the line.
func SplitLines(s string) []string {
	return strings.Split(s, "\n")
}

// Compare produces an ndiff-style stream: unchanged, removed and added lines,
// plus hint lines under pairs of similar replaced lines.
func Compare(a, b []string) []Line {
	c := &comparer{a: a, b: b}
	m := difflib.NewMatcher(a, b)
	for _, op := range m.GetOpCodes() {
		switch op.Tag {
		case 'r':
			c.fancyReplace(op.I1, op.I2, op.J1, op.J2)
		case 'd':
			c.dump(Removed, a, op.I1, op.I2)
		case 'i':
			c.dump(Added, b, op.J1, op.J2)
		case 'e':
			c.dump(Unchanged, a, op.I1, op.I2)
		}
	}
	return c.out
}

type comparer struct {
	a, b []string
	out  []Line
}

func (c *comparer) emit(tag Tag, text string) {
	c.out = append(c.out, Line{Tag: tag, Text: text})
}

func (c *comparer) dump(tag Tag, lines []string, lo, hi int) {
	for i := lo; i < hi; i++ {
		c.emit(tag, lines[i])
	}
}

// plainReplace dumps the shorter block first.
func (c *comparer) plainReplace(alo, ahi, blo, bhi int) {
	if bhi-blo < ahi-alo {
		c.dump(Added, c.b, blo, bhi)
		c.dump(Removed, c.a, alo, ahi)
		return
	}
	c.dump(Removed, c.a, alo, ahi)
	c.dump(Added, c.b, blo, bhi)
}

func (c *comparer) fancyReplace(alo, ahi, blo, bhi int) {
	bestRatio := bestStart
	bestI, bestJ := -1, -1
	eqI, eqJ := -1, -1

	cruncher := difflib.NewMatcherWithJunk(nil, nil, true, isCharJunk)
	for j := blo; j < bhi; j++ {
		cruncher.SetSeq2(chars(c.b[j]))
		for i := alo; i < ahi; i++ {
			if c.a[i] == c.b[j] {
				if eqI < 0 {
					eqI, eqJ = i, j
				}
				continue
			}
			cruncher.SetSeq1(chars(c.a[i]))
			if cruncher.RealQuickRatio() > bestRatio &&
				cruncher.QuickRatio() > bestRatio &&
				cruncher.Ratio() > bestRatio {
				bestRatio, bestI, bestJ = cruncher.Ratio(), i, j
			}
		}
	}

	identical := false
	if bestRatio < cutoff {
		if eqI < 0 {
			c.plainReplace(alo, ahi, blo, bhi)
			return
		}
		bestI, bestJ, identical = eqI, eqJ, true
	}

	c.fancyHelper(alo, bestI, blo, bestJ)

	aLine, bLine := c.a[bestI], c.b[bestJ]
	if identical {
		c.emit(Unchanged, aLine)
	} else {
		c.hintPair(aLine, bLine)
	}

	c.fancyHelper(bestI+1, ahi, bestJ+1, bhi)
}

func (c *comparer) fancyHelper(alo, ahi, blo, bhi int) {
	switch {
	case alo < ahi && blo < bhi:
		c.fancyReplace(alo, ahi, blo, bhi)
	case alo < ahi:
		c.dump(Removed, c.a, alo, ahi)
	case blo < bhi:
		c.dump(Added, c.b, blo, bhi)
	}
}

// hintPair emits a removed/added pair with markers under the changed runes:
// '^' replaced, '-' deleted, '+' inserted.
func (c *comparer) hintPair(aLine, bLine string) {
	aRunes, bRunes := []rune(aLine), []rune(bLine)
	var aTags, bTags strings.Builder

	m := difflib.NewMatcherWithJunk(chars(aLine), chars(bLine), true, isCharJunk)
	for _, op := range m.GetOpCodes() {
		la, lb := op.I2-op.I1, op.J2-op.J1
		switch op.Tag {
		case 'r':
			aTags.WriteString(strings.Repeat("^", la))
			bTags.WriteString(strings.Repeat("^", lb))
		case 'd':
			aTags.WriteString(strings.Repeat("-", la))
		case 'i':
			bTags.WriteString(strings.Repeat("+", lb))
		case 'e':
			aTags.WriteString(strings.Repeat(" ", la))
			bTags.WriteString(strings.Repeat(" ", lb))
		}
	}

	c.emit(Removed, aLine)
	if tags := keepOriginalWhitespace(aRunes, aTags.String()); tags != "" {
		c.emit(Hint, tags)
	}
	c.emit(Added, bLine)
	if tags := keepOriginalWhitespace(bRunes, bTags.String()); tags != "" {
		c.emit(Hint, tags)
	}
}

// keepOriginalWhitespace copies tabs and other whitespace from the line into
// unmarked tag positions so markers stay aligned, then trims the right side.
func keepOriginalWhitespace(line []rune, tags string) string {
	out := []rune(tags)
	for i, t := range out {
		if i >= len(line) {
			break
		}
		if t == ' ' && unicode.IsSpace(line[i]) {
			out[i] = line[i]
		}
	}
	return strings.TrimRightFunc(string(out), unicode.IsSpace)
}

func isCharJunk(s string) bool {
	return s == " " || s == "\t"
}

func chars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
