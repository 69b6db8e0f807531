package screenshot

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/TechnicallyShaun/askollama/internal/screenshot/logging"
	"github.com/TechnicallyShaun/askollama/internal/screenshot/metrics"
	"github.com/TechnicallyShaun/askollama/internal/screenshot/pubsub"
	"github.com/TechnicallyShaun/askollama/internal/screenshot/status"
	"github.com/TechnicallyShaun/askollama/internal/screenshot/watcher"
)

// Dispatcher turns create events into pipeline tasks. Each task runs in its
// own goroutine; failures are logged and dropped.
type Dispatcher struct {
	settings  *SettingsStore
	waiter    Waiter
	extractor Extractor
	explainer Explainer
	publisher Publisher
	logger    *logging.FileLogger
	metrics   *metrics.Metrics

	// sem bounds the number of tasks doing external work at once. Nil means
	// unbounded.
	sem chan struct{}
	wg  sync.WaitGroup
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger sets the dispatcher logger.
func WithLogger(l *logging.FileLogger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithMetrics records task metrics.
func WithMetrics(m *metrics.Metrics) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithMaxWorkers bounds how many tasks run extraction or explanation at once.
// Zero or negative leaves tasks unbounded.
func WithMaxWorkers(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.sem = make(chan struct{}, n)
		} else {
			d.sem = nil
		}
	}
}

// NewDispatcher creates a dispatcher. The settings store is read once per
// task, after extraction, to decide whether to explain.
func NewDispatcher(settings *SettingsStore, waiter Waiter, extractor Extractor, explainer Explainer, publisher Publisher, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		settings:  settings,
		waiter:    waiter,
		extractor: extractor,
		explainer: explainer,
		publisher: publisher,
		logger:    logging.Discard(),
		sem:       make(chan struct{}, DefaultMaxWorkers),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch schedules a task for ev if it is a create event with at least one
// path and reports whether it did. It never blocks on the task itself.
func (d *Dispatcher) Dispatch(ctx context.Context, ev watcher.FileEvent) bool {
	d.metrics.EventReceived(ev.Kind.String())

	if ev.Kind != watcher.KindCreate || len(ev.Paths) == 0 {
		return false
	}

	received := ev.Timestamp
	if received.IsZero() {
		received = time.Now()
	}

	taskID := uuid.NewString()
	d.metrics.TaskStarted()
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() { d.metrics.TaskFinished(time.Since(received)) }()
		d.process(ctx, taskID, ev.Paths[0])
	}()
	return true
}

// Wait blocks until every scheduled task has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// process runs debounce, extraction and the optional explanation for path.
func (d *Dispatcher) process(ctx context.Context, taskID, path string) {
	log := d.logger.WithComponent("pipeline")
	start := time.Now()

	log.Debug("task scheduled",
		logging.String("task", taskID),
		logging.String("path", path),
	)

	if err := d.waiter.Wait(ctx, path); err != nil {
		log.Error("debounce interrupted", err,
			logging.String("task", taskID),
			logging.String("path", path),
		)
		return
	}

	if !d.acquire(ctx) {
		log.Debug("task abandoned before start",
			logging.String("task", taskID),
			logging.String("path", path),
		)
		return
	}
	defer d.release()

	result, err := d.extractor.Extract(ctx, path)
	if err != nil {
		d.metrics.Extraction(metrics.ResultError)
		log.Error("text extraction failed", err,
			logging.String("task", taskID),
			logging.String("path", path),
		)
		return
	}
	d.metrics.Extraction(metrics.ResultOK)

	d.publish(pubsub.TopicOCR, path, result.Text)
	log.Info(status.MsgScreenshotProcessed,
		logging.String("task", taskID),
		logging.String("path", path),
		logging.Int("chars", len(result.Text)),
	)

	if !d.settings.Get().AutoExplain {
		d.metrics.Explanation(metrics.ResultSkipped)
		return
	}

	explanation, err := d.explainer.Explain(ctx, result.Text, "")
	if err != nil {
		d.metrics.Explanation(metrics.ResultError)
		log.Error("explanation failed", err,
			logging.String("task", taskID),
			logging.String("path", path),
		)
		return
	}
	d.metrics.Explanation(metrics.ResultOK)

	d.publish(pubsub.TopicExplanation, path, explanation.Text)
	log.Info(status.MsgExplanationPublished,
		logging.String("task", taskID),
		logging.String("path", path),
		logging.Duration("elapsed", time.Since(start)),
	)
}

func (d *Dispatcher) publish(topic, source, payload string) {
	d.publisher.Publish(pubsub.Event{
		ID:      uuid.NewString(),
		Topic:   topic,
		Source:  source,
		Payload: payload,
		Time:    time.Now(),
	})
	d.metrics.Published(topic)
}

func (d *Dispatcher) acquire(ctx context.Context) bool {
	if d.sem == nil {
		return true
	}
	select {
	case d.sem <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	}
}

func (d *Dispatcher) release() {
	if d.sem != nil {
		<-d.sem
	}
}
