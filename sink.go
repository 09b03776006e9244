package sandclock

import (
	"fmt"
	"io"
	"sync"

	"github.com/zeromicro/go-zero/core/color"
	"github.com/zeromicro/go-zero/core/logx"
)

type (
	// Sink receives the reports of timed runs.
	Sink interface {
		Emit(e Event)
	}

	// SinkFunc adapts a function to a Sink.
	SinkFunc func(e Event)

	consoleWriter struct {
		w       io.Writer
		colored bool
		lock    sync.Mutex
	}

	logWriter struct{}

	teeSink []Sink
)

func (f SinkFunc) Emit(e Event) {
	f(e)
}

// ConsoleSink writes one line per event to w, colored by event kind if colored is set.
func ConsoleSink(w io.Writer, colored bool) Sink {
	return &consoleWriter{
		w:       w,
		colored: colored,
	}
}

func (c *consoleWriter) Emit(e Event) {
	line := e.String()
	if c.colored {
		line = color.WithColor(line, colorOf(e.Kind))
	}

	c.lock.Lock()
	defer c.lock.Unlock()
	fmt.Fprintln(c.w, line)
}

// LogSink writes events through logx.
func LogSink() Sink {
	return logWriter{}
}

func (logWriter) Emit(e Event) {
	fields := []logx.LogField{
		logx.Field("kind", e.Kind.String()),
		logx.Field("name", e.Name),
	}
	switch e.Kind {
	case IterationStarted:
		fields = append(fields, logx.Field("iteration", e.Index))
	case IterationFinished:
		fields = append(fields, logx.Field("iteration", e.Index), logx.Field("duration", e.Duration))
	case RunFinished:
		fields = append(fields, logx.Field("total", e.Total), logx.Field("iterations", e.Iterations))
	}

	logx.Infow(e.String(), fields...)
}

// Tee sends every event to all the given sinks, in order.
func Tee(sinks ...Sink) Sink {
	return teeSink(sinks)
}

func (t teeSink) Emit(e Event) {
	for _, sink := range t {
		sink.Emit(e)
	}
}

func colorOf(kind EventKind) color.Color {
	switch kind {
	case RunStarted:
		return color.FgBlue
	case IterationStarted, IterationFinished:
		return color.FgCyan
	case RunFinished:
		return color.FgGreen
	default:
		return color.NoColor
	}
}
