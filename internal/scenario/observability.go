package scenario

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// TrialEvent is reported once per executed trial, whether it completed or not.
type TrialEvent struct {
	Scenario string
	Posture  Posture
	Index    int
	Elapsed  time.Duration
	Err      error
}

// TrialObserver receives trial events from simulator workers. Implementations
// must not block for long; wrap slow observers in AsyncTrialObserver.
type TrialObserver interface {
	ObserveTrial(ev TrialEvent)
}

type TrialLogger struct {
	logger *slog.Logger
}

func NewTrialLogger(logger *slog.Logger) *TrialLogger {
	return &TrialLogger{logger: logger}
}

func (l *TrialLogger) ObserveTrial(ev TrialEvent) {
	if l == nil || l.logger == nil {
		return
	}
	attrs := []slog.Attr{
		slog.String("scenario", ev.Scenario),
		slog.String("posture", string(ev.Posture)),
		slog.Int("trial", ev.Index),
		slog.Float64("duration_ms", float64(ev.Elapsed.Microseconds())/1000.0),
	}
	if ev.Err != nil {
		attrs = append(attrs, slog.String("error", ev.Err.Error()))
	}
	l.logger.LogAttrs(context.Background(), slog.LevelDebug, "scenario_trial", attrs...)
}

// AsyncTrialObserver forwards events to next on a single goroutine. When the
// buffer is full the event is dropped and counted.
type AsyncTrialObserver struct {
	next    TrialObserver
	events  chan TrialEvent
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	dropped atomic.Uint64
}

func NewAsyncTrialObserver(next TrialObserver, buffer int) *AsyncTrialObserver {
	if buffer <= 0 {
		buffer = 1
	}

	o := &AsyncTrialObserver{
		next:   next,
		events: make(chan TrialEvent, buffer),
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		for ev := range o.events {
			if o.next == nil {
				continue
			}
			o.next.ObserveTrial(ev)
		}
	}()

	return o
}

func (o *AsyncTrialObserver) ObserveTrial(ev TrialEvent) {
	if o == nil {
		return
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		o.dropped.Add(1)
		return
	}
	select {
	case o.events <- ev:
	default:
		o.dropped.Add(1)
	}
}

func (o *AsyncTrialObserver) Dropped() uint64 {
	if o == nil {
		return 0
	}
	return o.dropped.Load()
}

// Close drains pending events. Events observed afterwards are dropped.
func (o *AsyncTrialObserver) Close() {
	if o == nil {
		return
	}
	o.once.Do(func() {
		o.mu.Lock()
		o.closed = true
		close(o.events)
		o.mu.Unlock()
		o.wg.Wait()
	})
}
