// Package speedtest implements the simulated speed test sequence.
//
// A run measures one real round-trip latency sample (a single small HTTP
// fetch), then walks a fixed list of nominal payload sizes, sleeping a
// randomized duration per step and deriving a fabricated throughput figure
// from the elapsed time. No actual payload is transferred.
package speedtest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"
)

// Phase identifies the current stage of a test run.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhasePinging     Phase = "pinging"
	PhaseDownloading Phase = "downloading"
	PhaseCompleted   Phase = "completed"
)

// Fallback range for the latency sample when the probe fetch fails.
// A failed probe never yields a zero or missing latency.
const (
	FallbackLatencyMinMs = 20
	FallbackLatencyMaxMs = 100
)

// Randomized per-step delay bounds for the fabricated download phase.
const (
	minStepDelay = 350 * time.Millisecond
	maxStepDelay = 1250 * time.Millisecond
)

// PayloadSizesMB is the fixed sequence of nominal payload sizes the
// download phase walks through, in megabytes.
var PayloadSizesMB = []float64{1, 2, 5, 10, 25}

// ErrAlreadyRunning is returned when Run is invoked while a previous run on
// the same Runner has not finished.
var ErrAlreadyRunning = errors.New("speedtest: a test is already running")

// Sample describes one completed download step.
type Sample struct {
	SizeMB  float64       `json:"size_mb"`
	Elapsed time.Duration `json:"elapsed"`
	Mbps    float64       `json:"mbps"`
	AvgMbps float64       `json:"avg_mbps"`
}

// Progress is delivered to the progress callback after each phase change and
// after each completed download step.
type Progress struct {
	Phase      Phase
	Step       int
	TotalSteps int
	Percent    float64
	LatencyMs  int
	Sample     *Sample
}

// Result is the outcome of a completed run.
type Result struct {
	LatencyMs       int
	DownloadMbps    float64
	LatencyFallback bool
	Samples         []Sample
}

// Runner executes simulated speed test runs. A Runner is safe for use from
// multiple goroutines but executes at most one run at a time.
type Runner struct {
	probeURL string
	client   *http.Client
	logger   *slog.Logger

	// sleep and rng are injection points for tests.
	sleep func(time.Duration)
	rng   *rand.Rand
	rngMu sync.Mutex

	mu      sync.Mutex
	running bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithClient sets the HTTP client used for the latency probe.
func WithClient(client *http.Client) Option {
	return func(r *Runner) {
		r.client = client
	}
}

// WithSleep replaces the delay function used between download steps.
func WithSleep(sleep func(time.Duration)) Option {
	return func(r *Runner) {
		r.sleep = sleep
	}
}

// WithRand sets the random source used for fallback latency and step delays.
func WithRand(rng *rand.Rand) Option {
	return func(r *Runner) {
		r.rng = rng
	}
}

// NewRunner creates a Runner probing the given URL for the latency sample.
func NewRunner(probeURL string, logger *slog.Logger, opts ...Option) *Runner {
	r := &Runner{
		probeURL: probeURL,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
		sleep:    time.Sleep,
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Running reports whether a run is currently in progress.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Run executes one full test sequence: pinging, then the fabricated download
// steps. onProgress may be nil. A second concurrent Run returns
// ErrAlreadyRunning; the sequence itself has no internal concurrency.
func (r *Runner) Run(ctx context.Context, onProgress func(Progress)) (*Result, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	r.running = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	report := func(p Progress) {
		if onProgress != nil {
			onProgress(p)
		}
	}

	total := len(PayloadSizesMB)

	report(Progress{Phase: PhasePinging, TotalSteps: total})

	latencyMs, fallback := r.measureLatency(ctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report(Progress{Phase: PhaseDownloading, TotalSteps: total, LatencyMs: latencyMs})

	result := &Result{
		LatencyMs:       latencyMs,
		LatencyFallback: fallback,
		Samples:         make([]Sample, 0, total),
	}

	var sum float64
	for i, sizeMB := range PayloadSizesMB {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		delay := r.stepDelay()
		r.sleep(delay)

		// Fabricated rate: nominal size over the elapsed artificial delay.
		mbps := sizeMB * 8 / delay.Seconds()
		sum += mbps

		sample := Sample{
			SizeMB:  sizeMB,
			Elapsed: delay,
			Mbps:    mbps,
			AvgMbps: sum / float64(i+1),
		}
		result.Samples = append(result.Samples, sample)
		result.DownloadMbps = sample.AvgMbps

		report(Progress{
			Phase:      PhaseDownloading,
			Step:       i + 1,
			TotalSteps: total,
			Percent:    float64(i+1) / float64(total) * 100,
			LatencyMs:  latencyMs,
			Sample:     &sample,
		})
	}

	report(Progress{
		Phase:      PhaseCompleted,
		Step:       total,
		TotalSteps: total,
		Percent:    100,
		LatencyMs:  latencyMs,
	})

	r.logger.Info("Speed test completed",
		slog.Int("latency_ms", result.LatencyMs),
		slog.Bool("latency_fallback", result.LatencyFallback),
		slog.Float64("download_mbps", result.DownloadMbps))

	return result, nil
}

// measureLatency fetches the probe URL once and returns the wall-clock
// round trip in milliseconds. On any failure it substitutes a uniform random
// value in [FallbackLatencyMinMs, FallbackLatencyMaxMs) and reports fallback.
func (r *Runner) measureLatency(ctx context.Context) (int, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.probeURL, nil)
	if err != nil {
		r.logger.Warn("Failed to build probe request", slog.Any("error", err))
		return r.fallbackLatency(), true
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Debug("Latency probe failed, using fallback",
			slog.String("url", r.probeURL),
			slog.Any("error", err))
		return r.fallbackLatency(), true
	}
	resp.Body.Close()

	elapsed := time.Since(start)
	latencyMs := int(elapsed.Milliseconds())
	if latencyMs < 1 {
		latencyMs = 1
	}

	r.logger.Debug("Latency probe completed",
		slog.String("url", r.probeURL),
		slog.Int("latency_ms", latencyMs))

	return latencyMs, false
}

func (r *Runner) fallbackLatency() int {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	return FallbackLatencyMinMs + r.rng.IntN(FallbackLatencyMaxMs-FallbackLatencyMinMs)
}

func (r *Runner) stepDelay() time.Duration {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	spread := int64(maxStepDelay - minStepDelay)
	return minStepDelay + time.Duration(r.rng.Int64N(spread))
}

// FormatSpeed renders a throughput figure the way the dashboard shows it.
func FormatSpeed(mbps float64) string {
	return fmt.Sprintf("%.2f Mbps", mbps)
}
