package speclib

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    lookupCounter   prometheus.Counter
//	    lookupHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordLookup(duration time.Duration, err error) {
//	    p.lookupCounter.Inc()
//	    // ... record error state, duration, etc.
//	}
type MetricsCollector interface {
	// RecordOpen is called after each library open.
	// duration is the total time taken, err is nil if successful.
	RecordOpen(duration time.Duration, err error)

	// RecordLookup is called after each spectrum lookup, whether by
	// ordinal, key, or name.
	RecordLookup(duration time.Duration, err error)

	// RecordRead is called after each sequential read of a spectrum.
	RecordRead(duration time.Duration, err error)

	// RecordConvert is called after each library conversion.
	// spectra is the number of spectra written.
	RecordConvert(spectra uint64, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordOpen(time.Duration, error)            {}
func (NoopMetricsCollector) RecordLookup(time.Duration, error)          {}
func (NoopMetricsCollector) RecordRead(time.Duration, error)            {}
func (NoopMetricsCollector) RecordConvert(uint64, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	OpenCount        atomic.Int64
	OpenErrors       atomic.Int64
	OpenTotalNanos   atomic.Int64
	LookupCount      atomic.Int64
	LookupErrors     atomic.Int64
	LookupTotalNanos atomic.Int64
	ReadCount        atomic.Int64
	ReadErrors       atomic.Int64
	ConvertCount     atomic.Int64
	ConvertErrors    atomic.Int64
	ConvertSpectra   atomic.Int64
}

// RecordOpen implements MetricsCollector.
func (b *BasicMetricsCollector) RecordOpen(duration time.Duration, err error) {
	b.OpenCount.Add(1)
	b.OpenTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.OpenErrors.Add(1)
	}
}

// RecordLookup implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLookup(duration time.Duration, err error) {
	b.LookupCount.Add(1)
	b.LookupTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.LookupErrors.Add(1)
	}
}

// RecordRead implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRead(duration time.Duration, err error) {
	b.ReadCount.Add(1)
	if err != nil {
		b.ReadErrors.Add(1)
	}
}

// RecordConvert implements MetricsCollector.
func (b *BasicMetricsCollector) RecordConvert(spectra uint64, duration time.Duration, err error) {
	b.ConvertCount.Add(1)
	b.ConvertSpectra.Add(int64(spectra))
	if err != nil {
		b.ConvertErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		OpenCount:      b.OpenCount.Load(),
		OpenErrors:     b.OpenErrors.Load(),
		OpenAvgNanos:   b.getAvgOpenNanos(),
		LookupCount:    b.LookupCount.Load(),
		LookupErrors:   b.LookupErrors.Load(),
		LookupAvgNanos: b.getAvgLookupNanos(),
		ReadCount:      b.ReadCount.Load(),
		ReadErrors:     b.ReadErrors.Load(),
		ConvertCount:   b.ConvertCount.Load(),
		ConvertErrors:  b.ConvertErrors.Load(),
		ConvertSpectra: b.ConvertSpectra.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgOpenNanos() int64 {
	count := b.OpenCount.Load()
	if count == 0 {
		return 0
	}
	return b.OpenTotalNanos.Load() / count
}

func (b *BasicMetricsCollector) getAvgLookupNanos() int64 {
	count := b.LookupCount.Load()
	if count == 0 {
		return 0
	}
	return b.LookupTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	OpenCount      int64
	OpenErrors     int64
	OpenAvgNanos   int64
	LookupCount    int64
	LookupErrors   int64
	LookupAvgNanos int64
	ReadCount      int64
	ReadErrors     int64
	ConvertCount   int64
	ConvertErrors  int64
	ConvertSpectra int64
}
