package console

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

const (
	barWidth    = 54
	barInterval = 60 * time.Millisecond
)

var barColor = color.New(color.FgYellow).SprintFunc()

// Bar is a progress indicator owned by a single pipeline stage. It must be
// stopped on every exit path of that stage; Stop is safe to call more than
// once.
type Bar struct {
	w    io.Writer
	text string

	mu      sync.Mutex
	stopped bool
	done    chan struct{}
	exited  chan struct{}
}

// StartBar starts a bar for a stage described by text. Only an animated bar
// draws anything before Stop; it redraws every 60ms on its own goroutine.
func StartBar(w io.Writer, text string, animate bool) *Bar {
	b := &Bar{w: w, text: text, done: make(chan struct{}), exited: make(chan struct{})}
	if !animate {
		close(b.exited)
		return b
	}
	_, _ = fmt.Fprintln(w)
	go b.run()
	return b
}

func (b *Bar) run() {
	defer close(b.exited)
	ticker := time.NewTicker(barInterval)
	defer ticker.Stop()

	pos := 0
	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			bar := strings.Repeat("=", pos) + ">" + strings.Repeat(" ", barWidth-pos-1)
			b.mu.Lock()
			if !b.stopped {
				_, _ = fmt.Fprintf(b.w, "\r%s %s", barColor("["+bar+"]"), b.text)
			}
			b.mu.Unlock()
			pos = (pos + 1) % barWidth
		}
	}
}

// Stop halts the animation, waits for it to finish and prints the final
// line, tagged as success or failure. Calls after the first are no-ops.
func (b *Bar) Stop(final string, ok bool) {
	if ok {
		b.finish(successTag(), final)
		return
	}
	b.finish(crashTag(), crashText(final))
}

// Warn stops the bar like Stop, tagging the final line as a warning.
func (b *Bar) Warn(final string) {
	b.finish(warnTag(), final)
}

func (b *Bar) finish(tag, final string) {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	b.stopped = true
	b.mu.Unlock()

	close(b.done)
	<-b.exited

	_, _ = fmt.Fprintf(b.w, "\r%s %s\n", tag, final)
}
