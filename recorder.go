package sandclock

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/threading"
)

const (
	defaultHost = "localhost"
	defaultPath = "/"
)

var ErrUnsupportedPlatform = errors.New("sandclock: cannot open a browser on this platform")

type (
	// ChartConf is the config of the chart server.
	ChartConf struct {
		Title       string `json:",optional"`
		Host        string `json:",default=localhost"`
		Port        int    `json:",optional"`
		OpenBrowser bool   `json:",default=true"`
	}

	// Recorder is a Sink that keeps the iteration durations of the runs it sees,
	// to be charted. Only verbose clocks report iterations.
	// Runs are kept in the order they started, even when they overlap.
	Recorder struct {
		next      Sink
		sampleSys bool
		open      func(url string) error
		runs      []*recordedRun
		index     map[uint64]*recordedRun
		lock      sync.Mutex
	}

	// RecorderOption customizes a Recorder.
	RecorderOption func(r *Recorder)

	recordedRun struct {
		samples []sample
	}

	sample struct {
		Duration time.Duration
		Cpu      float64
		Memory   float64
	}
)

// NewRecorder returns a Recorder.
func NewRecorder(opts ...RecorderOption) *Recorder {
	r := &Recorder{
		open:  openBrowser,
		index: make(map[uint64]*recordedRun),
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// WithForward makes the Recorder pass every event on to sink.
func WithForward(sink Sink) RecorderOption {
	return func(r *Recorder) {
		r.next = sink
	}
}

// WithSystemStats makes the Recorder sample cpu and memory usage after each iteration.
func WithSystemStats() RecorderOption {
	return func(r *Recorder) {
		r.sampleSys = true
	}
}

// WithBrowser replaces the function Serve uses to show the chart.
func WithBrowser(open func(url string) error) RecorderOption {
	return func(r *Recorder) {
		r.open = open
	}
}

func (r *Recorder) Emit(e Event) {
	switch e.Kind {
	case RunStarted:
		r.lock.Lock()
		r.runOf(e.Run)
		r.lock.Unlock()
	case IterationFinished:
		s := sample{Duration: e.Duration}
		if r.sampleSys {
			s.Cpu = getCpuUsage()
			s.Memory = getMemoryUsage()
		}

		r.lock.Lock()
		run := r.runOf(e.Run)
		run.samples = append(run.samples, s)
		r.lock.Unlock()
	case RunFinished:
		// the samples stay, only the lookup entry goes
		r.lock.Lock()
		delete(r.index, e.Run)
		r.lock.Unlock()
	}

	if r.next != nil {
		r.next.Emit(e)
	}
}

// Durations returns the recorded iteration durations, one slice per run.
func (r *Recorder) Durations() [][]time.Duration {
	runs := r.snapshot()
	durations := make([][]time.Duration, 0, len(runs))
	for _, run := range runs {
		each := make([]time.Duration, 0, len(run))
		for _, s := range run {
			each = append(each, s.Duration)
		}
		durations = append(durations, each)
	}

	return durations
}

// Handler returns the handler that renders the recorded runs as a line chart.
func (r *Recorder) Handler(title string) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		generateChart(title, r.snapshot(), r.sampleSys)(w, req)
	}
}

// Serve serves the chart on the configured address in the background,
// and returns the address it listens on.
func (r *Recorder) Serve(c ChartConf) (string, error) {
	listener, err := net.Listen("tcp", chartAddr(c))
	if err != nil {
		return "", err
	}

	addr := listener.Addr().String()
	mux := http.NewServeMux()
	mux.HandleFunc(defaultPath, r.Handler(c.Title))
	threading.GoSafe(func() {
		if err := http.Serve(listener, mux); err != nil {
			logx.Error(err)
		}
	})

	if c.OpenBrowser {
		if err := r.open("http://" + addr); err != nil {
			logx.Errorf("chart is on %s, failed to open browser: %v", addr, err)
		}
	}

	return addr, nil
}

// runOf must be called with r.lock held.
func (r *Recorder) runOf(id uint64) *recordedRun {
	run, ok := r.index[id]
	if !ok {
		run = new(recordedRun)
		r.index[id] = run
		r.runs = append(r.runs, run)
	}

	return run
}

func (r *Recorder) snapshot() [][]sample {
	r.lock.Lock()
	defer r.lock.Unlock()

	runs := make([][]sample, 0, len(r.runs))
	for _, run := range r.runs {
		runs = append(runs, append([]sample(nil), run.samples...))
	}

	return runs
}

func chartAddr(c ChartConf) string {
	host := c.Host
	if len(host) == 0 {
		host = defaultHost
	}

	return net.JoinHostPort(host, fmt.Sprint(c.Port))
}

func openBrowser(url string) error {
	cmd, err := browserCommand(runtime.GOOS, url)
	if err != nil {
		return err
	}

	return cmd.Start()
}

func browserCommand(goos, url string) (*exec.Cmd, error) {
	switch goos {
	case "linux", "freebsd", "openbsd":
		return exec.Command("xdg-open", url), nil
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url), nil
	case "darwin":
		return exec.Command("open", url), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, goos)
	}
}
