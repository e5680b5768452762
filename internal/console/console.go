// Package console prints the installer's tagged, coloured status lines.
package console

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

var (
	infoTag    = tag(color.FgCyan, "[INFO]")
	successTag = tag(color.FgGreen, "[SUCCESS]")
	warnTag    = tag(color.FgYellow, "[WARN]")
	crashTag   = tag(color.FgRed, "[CRASH]")

	crashText  = color.New(color.FgRed).SprintFunc()
	accentText = color.New(color.FgYellow).SprintFunc()
	cyanText   = color.New(color.FgCyan).SprintFunc()
	grayText   = color.New(color.FgHiBlack).SprintFunc()
	badgeText  = color.New(color.BgMagenta, color.FgWhite).SprintFunc()
)

// tag is evaluated at print time so color.NoColor changes take effect.
func tag(attr color.Attribute, text string) func() string {
	c := color.New(attr)
	return func() string { return c.Sprint(text) }
}

// Printer writes status lines to Out and failures to Err.
type Printer struct {
	Out io.Writer
	Err io.Writer
}

// New returns a Printer on the process's stdout and stderr.
func New() *Printer {
	return &Printer{Out: os.Stdout, Err: os.Stderr}
}

// Stdout is where status lines and progress bars go; never nil.
func (p *Printer) Stdout() io.Writer {
	if p.Out == nil {
		return io.Discard
	}
	return p.Out
}

// Stderr is where failures go; it falls back to Stdout.
func (p *Printer) Stderr() io.Writer {
	if p.Err == nil {
		return p.Stdout()
	}
	return p.Err
}

func (p *Printer) Logo() {
	_, _ = fmt.Fprintf(p.Stdout(), "\n%s%s%s\n", cyanText("QweesCore"), grayText(" PHP "), cyanText("CLI"))
}

func (p *Printer) Info(format string, args ...any) {
	_, _ = fmt.Fprintf(p.Stdout(), "%s %s\n", infoTag(), fmt.Sprintf(format, args...))
}

func (p *Printer) Success(format string, args ...any) {
	_, _ = fmt.Fprintf(p.Stdout(), "%s %s\n", successTag(), fmt.Sprintf(format, args...))
}

func (p *Printer) Warn(label, format string, args ...any) {
	_, _ = fmt.Fprintf(p.Stderr(), "%s %s %s\n", warnTag(), label, fmt.Sprintf(format, args...))
}

// Crash reports a failure; label is the machine-matchable outcome category.
func (p *Printer) Crash(label, format string, args ...any) {
	_, _ = fmt.Fprintln(p.Stderr(), CrashLine(label, fmt.Sprintf(format, args...)))
}

// CrashLine formats a failure line without printing it.
func CrashLine(label, msg string) string {
	return fmt.Sprintf("%s %s %s", crashTag(), label, crashText(msg))
}

// Finish prints the closing banner with the next steps. clean is false when
// the install finished with warnings.
func (p *Printer) Finish(clean bool) {
	w := p.Stdout()
	if clean {
		_, _ = fmt.Fprintf(w, "\n🎉 %s\n", color.New(color.FgGreen).Sprint("Project successfully installed!"))
	} else {
		_, _ = fmt.Fprintf(w, "\n🎉 %s\n", color.New(color.FgYellow).Sprint("Project installed with warnings, see above."))
	}
	_, _ = fmt.Fprintf(w, "✨ %s\n\n", color.New(color.FgWhite).Sprint("Welcome to QweesCore!"))
	_, _ = fmt.Fprintf(w, "%s\n", color.New(color.FgWhite).Sprint("❇️ Your next steps:"))
	_, _ = fmt.Fprintf(w, "   %s %s\n\n", color.New(color.BgHiBlack).Sprint("[START COMMAND]"), color.New(color.BgWhite, color.FgBlack).Sprint(" qwees start|run "))
	_, _ = fmt.Fprintf(w, "%s %s\n", grayText("[INFO] Documentation:"), color.New(color.FgBlue).Sprint("https://github.com/timqwees/qweescore"))
}

// Accent highlights a value inside a message.
func Accent(s string) string {
	return accentText(s)
}

// Usage prints the command synopsis.
func (p *Printer) Usage() {
	p.Logo()
	_, _ = fmt.Fprintf(p.Stderr(), "%s %s %s\n", crashTag(), crashText("Please, usage command:"), "qwees install "+badgeText(" <project name> "))
}
