package otel

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	goShelf "github.com/MrEthical07/goShelf"
	"github.com/MrEthical07/goShelf/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrNilMeter is returned when no meter is supplied.
	ErrNilMeter = errors.New("nil meter")
	// ErrNilSource is returned when no metrics source is supplied.
	ErrNilSource = errors.New("nil metrics source")
)

// BucketKey labels histogram bucket observations with their upper bound.
const BucketKey = attribute.Key("le")

type metricsSource interface {
	MetricsSnapshot() goShelf.MetricsSnapshot
	AuditDropped() uint64
}

// Option customizes an [Exporter].
type Option func(*Exporter)

// WithAttributes adds attrs to every observation, e.g. a front-end instance id.
func WithAttributes(attrs ...attribute.KeyValue) Option {
	return func(e *Exporter) { e.common = append(e.common, attrs...) }
}

type counterInstrument struct {
	id  goShelf.MetricID
	ins metric.Int64ObservableCounter
}

type histogramInstrument struct {
	id      goShelf.MetricID
	buckets metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

// Exporter observes the session manager's counters and request latency
// buckets on each collection.
type Exporter struct {
	source       metricsSource
	common       []attribute.KeyValue
	counters     []counterInstrument
	histograms   []histogramInstrument
	auditDropped metric.Int64ObservableCounter
	registration metric.Registration

	// one attribute set per bucket, including +Inf
	bucketSets []attribute.Set
	baseSet    attribute.Set
}

// NewExporter registers instruments on meter reading from m.
func NewExporter(meter metric.Meter, m *goShelf.Manager, opts ...Option) (*Exporter, error) {
	if m == nil {
		return nil, ErrNilSource
	}
	return NewExporterFromSource(meter, m, opts...)
}

// NewExporterFromSource registers instruments on meter reading from source.
func NewExporterFromSource(meter metric.Meter, source metricsSource, opts ...Option) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{source: source}
	for _, opt := range opts {
		opt(e)
	}
	e.baseSet = attribute.NewSet(e.common...)
	for i := range internaldefs.HistogramBoundSuffix {
		bound := "+Inf"
		if i < len(internaldefs.HistogramUpperBounds) {
			bound = strconv.FormatFloat(internaldefs.HistogramUpperBounds[i], 'g', -1, 64)
		}
		kvs := append([]attribute.KeyValue{BucketKey.String(bound)}, e.common...)
		e.bucketSets = append(e.bucketSets, attribute.NewSet(kvs...))
	}

	var observables []metric.Observable
	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", def.Name, err)
		}
		e.counters = append(e.counters, counterInstrument{id: def.ID, ins: ins})
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.HistogramDefs {
		buckets, err := meter.Int64ObservableGauge(def.Name+"_bucket",
			metric.WithDescription(def.Help+" Cumulative count per upper bound."))
		if err != nil {
			return nil, fmt.Errorf("histogram %s: %w", def.Name, err)
		}
		count, err := meter.Int64ObservableGauge(def.Name+"_count",
			metric.WithDescription(def.Help+" Total samples."))
		if err != nil {
			return nil, fmt.Errorf("histogram %s: %w", def.Name, err)
		}
		e.histograms = append(e.histograms, histogramInstrument{id: def.ID, buckets: buckets, count: count})
		observables = append(observables, buckets, count)
	}

	dropped, err := meter.Int64ObservableCounter(internaldefs.AuditDroppedName,
		metric.WithDescription(internaldefs.AuditDroppedHelp))
	if err != nil {
		return nil, fmt.Errorf("counter %s: %w", internaldefs.AuditDroppedName, err)
	}
	e.auditDropped = dropped
	observables = append(observables, dropped)

	reg, err := meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	e.registration = reg
	return e, nil
}

func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()
	base := metric.WithAttributeSet(e.baseSet)

	for _, c := range e.counters {
		o.ObserveInt64(c.ins, int64(snap.Counters[c.id]), base)
	}
	for _, h := range e.histograms {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snap.Histograms[h.id]))
		for i, v := range cumulative {
			o.ObserveInt64(h.buckets, int64(v), metric.WithAttributeSet(e.bucketSets[i]))
		}
		o.ObserveInt64(h.count, int64(cumulative[len(cumulative)-1]), base)
	}
	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()), base)
	return nil
}

// Close unregisters the callback.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
