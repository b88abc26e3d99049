// diffjam-compare renders the Diff JAM report for two saved HTTP messages.
//
// Each file holds a raw message (status or request line, headers, blank
// line, body) or, with --raw-body, only a body. JSON bodies are normalized
// before comparing, so formatting-only changes report "No changes.".
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/dgnsrekt/diffjam/internal/diff"
	"github.com/dgnsrekt/diffjam/internal/httpmsg"
	"github.com/dgnsrekt/diffjam/internal/normalize"
	"github.com/dgnsrekt/diffjam/internal/session"
	"github.com/dgnsrekt/diffjam/internal/types"
)

// exitError carries a process exit code out of run.
type exitError struct{ code int }

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }
func (e exitError) ExitCode() int { return e.code }

type options struct {
	format   string
	color    bool
	lenient  bool
	rawBody  bool
	exitCode bool
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
}

func run(args []string, stdout io.Writer) error {
	var opts options

	flagSet := pflag.NewFlagSet("diffjam-compare", pflag.ContinueOnError)
	flagSet.StringVarP(&opts.format, "format", "f", diff.FormatGrouped, "report format: grouped or unified")
	flagSet.BoolVar(&opts.color, "color", false, "colourize added and removed lines")
	flagSet.BoolVar(&opts.lenient, "lenient", false, "accept JSON with comments and trailing commas")
	flagSet.BoolVar(&opts.rawBody, "raw-body", false, "files hold bare bodies with no header section")
	flagSet.BoolVar(&opts.exitCode, "exit-code", false, "exit with status 1 when the messages differ")
	flagSet.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: diffjam-compare [flags] PREVIOUS CURRENT\n\nFlags:\n%s", flagSet.FlagUsages())
	}

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if flagSet.NArg() != 2 {
		flagSet.Usage()
		return fmt.Errorf("expected PREVIOUS and CURRENT, got %d argument(s)", flagSet.NArg())
	}
	if opts.format != diff.FormatGrouped && opts.format != diff.FormatUnified {
		return fmt.Errorf("unknown format %q", opts.format)
	}

	previous, err := os.ReadFile(flagSet.Arg(0))
	if err != nil {
		return fmt.Errorf("read previous: %w", err)
	}
	current, err := os.ReadFile(flagSet.Arg(1))
	if err != nil {
		return fmt.Errorf("read current: %w", err)
	}

	report, warnings := compare(previous, current, opts)
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %v\n", w)
	}

	changed := report != diff.NoChanges
	if opts.color {
		report = diff.Colorize(report)
	}
	if _, err := io.WriteString(stdout, report); err != nil {
		return err
	}
	if report != "" && report[len(report)-1] != '\n' {
		_, _ = io.WriteString(stdout, "\n")
	}

	if opts.exitCode && changed {
		return exitError{code: 1}
	}
	return nil
}

// compare returns the report and any recoverable normalization problems.
func compare(previous, current []byte, opts options) (string, []error) {
	n := normalize.Normalizer{Lenient: opts.lenient}

	var warnings []error
	texts := make([]string, 0, 2)
	for i, raw := range [][]byte{previous, current} {
		offset := 0
		if !opts.rawBody {
			offset = httpmsg.FindBodyOffset(raw)
		}
		text, err := session.Text(n, types.NewPayload(raw, offset, false))
		if err != nil {
			warnings = append(warnings, fmt.Errorf("%s: %w", [2]string{"previous", "current"}[i], err))
		}
		texts = append(texts, text)
	}

	return diff.RenderFormat(opts.format, texts[0], texts[1]), warnings
}
