package observer

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DiagnosisEvent represents a pipeline event
type DiagnosisEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	DiagnosisID    string                 `json:"diagnosis_id,omitempty"`
	Source         string                 `json:"source,omitempty"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Label          string                 `json:"label,omitempty"`
	Confidence     float64                `json:"confidence,omitempty"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of pipeline event
type EventType string

const (
	DiagnosisStarted   EventType = "diagnosis_started"
	DiagnosisCompleted EventType = "diagnosis_completed"
	// DiagnosisRejected when the confidence floor rejects the prediction
	DiagnosisRejected EventType = "diagnosis_rejected"
	// DiagnosisDegraded when the classifier result was padded or replaced by the neutral fallback
	DiagnosisDegraded EventType = "diagnosis_degraded"
	DiagnosisFailed   EventType = "diagnosis_failed"
	ImageFetched      EventType = "image_fetched"
	ImageFetchFailed  EventType = "image_fetch_failed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event DiagnosisEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event DiagnosisEvent)
}

// LoggingObserver logs pipeline events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles pipeline events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event DiagnosisEvent) {
	fields := logrus.Fields{
		"event_type":      event.EventType,
		"processing_time": event.ProcessingTime.String(),
	}
	if event.DiagnosisID != "" {
		fields["diagnosis_id"] = event.DiagnosisID
	}
	if event.Source != "" {
		fields["source"] = event.Source
	}
	if event.Label != "" {
		fields["label"] = event.Label
		fields["confidence"] = event.Confidence
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case DiagnosisStarted:
		entry.Info("Diagnosis started")
	case DiagnosisCompleted:
		entry.Info("Diagnosis completed")
	case DiagnosisRejected:
		entry.Info("Diagnosis rejected below confidence floor")
	case DiagnosisDegraded:
		entry.Warn("Diagnosis used a degraded classifier result")
	case DiagnosisFailed:
		entry.Error("Diagnosis failed")
	case ImageFetched:
		entry.Debug("Image fetched successfully")
	case ImageFetchFailed:
		entry.Error("Image fetch failed")
	default:
		entry.Info("Diagnosis event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver collects counters from pipeline events
type MetricsObserver struct {
	mu                  sync.RWMutex
	totalDiagnoses      int64
	completedDiagnoses  int64
	rejectedDiagnoses   int64
	degradedDiagnoses   int64
	failedDiagnoses     int64
	imagesFetched       int64
	imageFetchFailures  int64
	totalProcessingTime time.Duration
	finishedDiagnoses   int64
	labelCounts         map[string]int64
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{labelCounts: make(map[string]int64)}
}

// OnEvent handles pipeline events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event DiagnosisEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case DiagnosisStarted:
		o.totalDiagnoses++
	case DiagnosisCompleted:
		o.completedDiagnoses++
		o.labelCounts[event.Label]++
		o.finish(event)
	case DiagnosisRejected:
		o.rejectedDiagnoses++
		o.finish(event)
	case DiagnosisDegraded:
		o.degradedDiagnoses++
	case DiagnosisFailed:
		o.failedDiagnoses++
	case ImageFetched:
		o.imagesFetched++
	case ImageFetchFailed:
		o.imageFetchFailures++
	}
}

func (o *MetricsObserver) finish(event DiagnosisEvent) {
	o.finishedDiagnoses++
	o.totalProcessingTime += event.ProcessingTime
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// Metrics is a snapshot of the collected counters.
type Metrics struct {
	TotalDiagnoses     int64            `json:"total_diagnoses"`
	CompletedDiagnoses int64            `json:"completed_diagnoses"`
	RejectedDiagnoses  int64            `json:"rejected_diagnoses"`
	DegradedDiagnoses  int64            `json:"degraded_diagnoses"`
	FailedDiagnoses    int64            `json:"failed_diagnoses"`
	ImagesFetched      int64            `json:"images_fetched"`
	ImageFetchFailures int64            `json:"image_fetch_failures"`
	AvgProcessingMs    float64          `json:"avg_processing_ms"`
	LabelCounts        map[string]int64 `json:"label_counts"`
	Labels             []string         `json:"labels_seen"`
}

// GetMetrics returns current metrics
func (o *MetricsObserver) GetMetrics() Metrics {
	o.mu.RLock()
	defer o.mu.RUnlock()

	m := Metrics{
		TotalDiagnoses:     o.totalDiagnoses,
		CompletedDiagnoses: o.completedDiagnoses,
		RejectedDiagnoses:  o.rejectedDiagnoses,
		DegradedDiagnoses:  o.degradedDiagnoses,
		FailedDiagnoses:    o.failedDiagnoses,
		ImagesFetched:      o.imagesFetched,
		ImageFetchFailures: o.imageFetchFailures,
		LabelCounts:        make(map[string]int64, len(o.labelCounts)),
	}
	if o.finishedDiagnoses > 0 {
		avg := o.totalProcessingTime / time.Duration(o.finishedDiagnoses)
		m.AvgProcessingMs = float64(avg) / float64(time.Millisecond)
	}
	for label, n := range o.labelCounts {
		m.LabelCounts[label] = n
		m.Labels = append(m.Labels, label)
	}
	sort.Strings(m.Labels)
	return m
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() Subject {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers fans the event out to every observer concurrently and
// returns once all have handled it.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event DiagnosisEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	var wg sync.WaitGroup
	for _, observer := range observers {
		wg.Add(1)
		go func(obs Observer) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					logrus.WithField("observer", obs.GetObserverName()).
						WithField("panic", r).
						Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(ctx, event)
		}(observer)
	}
	wg.Wait()
}
