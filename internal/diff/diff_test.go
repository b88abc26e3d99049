package diff

import (
	"reflect"
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		previous string
		current  string
		want     string
	}{
		{name: "identical", previous: "a\nb\n", current: "a\nb\n", want: NoChanges},
		{name: "both_empty", previous: "", current: "", want: NoChanges},
		{name: "replace_one_line", previous: "a\nb\nc", current: "a\nx\nc", want: "- b\n+ x\n\n"},
		{name: "replace_then_extra_add", previous: "a\nb", current: "a\nx\ny", want: "- b\n+ x\n\n+ y\n"},
		{name: "replace_within_context", previous: "a\nb\nc", current: "a\nx\ny\nc", want: "- b\n+ x\n\n+ y\n"},
		{name: "pure_addition", previous: "a", current: "a\nb", want: "+ b\n"},
		{name: "pure_removal", previous: "a\nb", current: "a", want: "- b\n"},
		{name: "two_separate_changes", previous: "1\nk\n3", current: "2\nk\n4", want: "- 1\n+ 2\n\n- 3\n+ 4\n\n"},
		{name: "indentation_trimmed", previous: "{\n    \"a\": 1\n}", current: "{\n    \"a\": 2\n}", want: "- \"a\": 1\n+ \"a\": 2\n\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Render(tt.previous, tt.current); got != tt.want {
				t.Fatalf("Render() = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestRenderSameInputAlwaysNoChanges(t *testing.T) {
	inputs := []string{"", "x", "{\n    \"a\": [\n        1\n    ]\n}", "line\r\nother\r\n", "\n\n\n"}
	for _, in := range inputs {
		if got := Render(in, in); got != NoChanges {
			t.Fatalf("Render(%q, same) = %q; want %q", in, got, NoChanges)
		}
	}
}

func TestCompareEmitsHints(t *testing.T) {
	got := Compare([]string{"abcdef"}, []string{"abcxef"})
	want := []Line{
		{Tag: Removed, Text: "abcdef"},
		{Tag: Hint, Text: "   ^"},
		{Tag: Added, Text: "abcxef"},
		{Tag: Hint, Text: "   ^"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Compare() = %+v; want %+v", got, want)
	}
}

func TestComparePairsSimilarLinesInsideBlock(t *testing.T) {
	a := []string{"header", "value: 100", "footer"}
	b := []string{"header", "unrelated", "value: 101", "footer"}

	var tags []Tag
	for _, l := range Compare(a, b) {
		if l.Tag != Hint {
			tags = append(tags, l.Tag)
		}
	}
	want := []Tag{Unchanged, Added, Removed, Added, Unchanged}
	if !reflect.DeepEqual(tags, want) {
		t.Fatalf("tags = %v; want %v", tags, want)
	}
}

func TestFormatSkipsUnchangedAndHints(t *testing.T) {
	lines := []Line{
		{Tag: Unchanged, Text: "same"},
		{Tag: Removed, Text: "  old  "},
		{Tag: Hint, Text: "  ^"},
		{Tag: Added, Text: "\tnew"},
	}
	if got, want := Format(lines), "- old\n+ new\n\n"; got != want {
		t.Fatalf("Format() = %q; want %q", got, want)
	}
	if got := Format([]Line{{Tag: Unchanged, Text: "x"}}); got != NoChanges {
		t.Fatalf("Format(unchanged) = %q", got)
	}
}

func TestTagChars(t *testing.T) {
	for tag, want := range map[Tag]string{Unchanged: "  x", Added: "+ x", Removed: "- x", Hint: "? x"} {
		if got := (Line{Tag: tag, Text: "x"}).String(); got != want {
			t.Fatalf("%s line = %q; want %q", tag, got, want)
		}
	}
}

func TestUnified(t *testing.T) {
	got := Unified("prev", "curr", "a\nb\n", "a\nc")
	for _, want := range []string{"--- prev", "+++ curr", "@@", "-b", "+c"} {
		if !strings.Contains(got, want) {
			t.Fatalf("Unified() missing %q:\n%s", want, got)
		}
	}
	if got := Unified("prev", "curr", "a", "a\n"); got != NoChanges {
		t.Fatalf("Unified() of texts differing only by final newline = %q", got)
	}
	if got := RenderFormat(FormatUnified, "x\n", "x\n"); got != NoChanges {
		t.Fatalf("RenderFormat(unified, same) = %q", got)
	}
	if got := RenderFormat("bogus", "x", "y"); got != "- x\n+ y\n\n" {
		t.Fatalf("RenderFormat(unknown) = %q; want grouped report", got)
	}
}

func TestColorizeKeepsText(t *testing.T) {
	report := "- old\n+ new\n\n"
	got := Colorize(report)
	for _, want := range []string{"- old", "+ new"} {
		if !strings.Contains(got, want) {
			t.Fatalf("Colorize() lost %q: %q", want, got)
		}
	}
	if strings.Count(got, "\n") != strings.Count(report, "\n") {
		t.Fatalf("Colorize() changed line count")
	}
}
