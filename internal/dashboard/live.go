package dashboard

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	apperrors "github.com/ZanzyTHEbar/batchmind/internal/errors"
	"github.com/ZanzyTHEbar/batchmind/internal/monitoring"
	"github.com/ZanzyTHEbar/batchmind/internal/stream"
)

const DefaultLiveInterval = 3 * time.Second

// Publisher pushes live updates to subscribers
type Publisher interface {
	Publish(msgType stream.MessageType, payload interface{}) error
}

// LiveStatus describes the live loop for status endpoints and subscribers
type LiveStatus struct {
	Running    bool       `json:"running"`
	Interval   string     `json:"interval"`
	Passes     int64      `json:"passes"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	LastReport *Report    `json:"last_report,omitempty"`
}

// LiveLoop repeatedly scores simulated batches. Each pass runs to
// completion before the delay starts, so passes never overlap.
type LiveLoop struct {
	service   *Service
	interval  time.Duration
	publisher Publisher
	metrics   *monitoring.Metrics
	logger    *monitoring.Logger

	// lifecycle is held for the whole of Start and Stop
	lifecycle sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}

	mu        sync.RWMutex
	startedAt time.Time
	last      *Report
	passes    atomic.Int64
	running   atomic.Bool
}

// NewLiveLoop builds a stopped loop; publisher and metrics may be nil
func NewLiveLoop(service *Service, interval time.Duration, publisher Publisher, metrics *monitoring.Metrics) *LiveLoop {
	if interval <= 0 {
		interval = DefaultLiveInterval
	}
	return &LiveLoop{
		service:   service,
		interval:  interval,
		publisher: publisher,
		metrics:   metrics,
		logger:    service.deps.Logger,
	}
}

// Start launches the loop. The loop lives until Stop or until ctx is done.
func (l *LiveLoop) Start(ctx context.Context) error {
	l.lifecycle.Lock()
	defer l.lifecycle.Unlock()

	if l.done != nil {
		return apperrors.NewStateError("Live mode is already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})

	l.mu.Lock()
	l.startedAt = time.Now().UTC()
	l.last = nil
	l.mu.Unlock()
	l.passes.Store(0)

	l.running.Store(true)
	go l.run(loopCtx, l.done)

	monitoring.SetLiveModeRunning(true)
	l.logger.SystemLogger("live_mode_started", "interval "+l.interval.String())
	l.publish(stream.MsgLiveStatus, l.Status())
	return nil
}

// Stop cancels the loop and waits for the in-flight pass to finish
func (l *LiveLoop) Stop() error {
	l.lifecycle.Lock()
	defer l.lifecycle.Unlock()

	if l.done == nil {
		return apperrors.NewStateError("Live mode is not running")
	}

	l.cancel()
	<-l.done
	l.cancel, l.done = nil, nil
	l.running.Store(false)

	monitoring.SetLiveModeRunning(false)
	l.logger.SystemLogger("live_mode_stopped", "passes "+strconv.FormatInt(l.passes.Load(), 10))
	l.publish(stream.MsgLiveStatus, l.Status())
	return nil
}

// Running reports whether the loop is active. A loop that is stopping
// reports true until its last pass has finished.
func (l *LiveLoop) Running() bool { return l.running.Load() }

// Status snapshots the loop without waiting on Start or Stop
func (l *LiveLoop) Status() LiveStatus {
	status := LiveStatus{
		Running:  l.running.Load(),
		Interval: l.interval.String(),
		Passes:   l.passes.Load(),
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.startedAt.IsZero() {
		started := l.startedAt
		status.StartedAt = &started
	}
	status.LastReport = l.last
	return status
}

func (l *LiveLoop) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		l.pass(ctx)

		timer := time.NewTimer(l.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (l *LiveLoop) pass(ctx context.Context) {
	report, err := l.service.Run(ctx, l.service.SimulateBatch(), SourceLive)
	if err != nil {
		l.logger.Error("Live pass failed", "error", err)
		return
	}

	l.mu.Lock()
	l.last = report
	l.mu.Unlock()
	l.passes.Add(1)

	if l.metrics != nil {
		l.metrics.IncrementLivePass()
	}
	l.publish(stream.MsgReport, report)
}

func (l *LiveLoop) publish(msgType stream.MessageType, payload interface{}) {
	if l.publisher == nil {
		return
	}
	if err := l.publisher.Publish(msgType, payload); err != nil {
		l.logger.Warn("Failed to publish live update", "type", msgType, "error", err)
	}
}
