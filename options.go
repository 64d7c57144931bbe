package speclib

import (
	"log/slog"

	"github.com/hupe1980/speclib/backend"
	"github.com/hupe1980/speclib/blobstore"
)

type options struct {
	format           string
	indexMode        backend.IndexMode
	blobStore        blobstore.BlobStore
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures Open behavior.
//
// Today options primarily exist to avoid exploding the API surface
// (e.g. format-specific constructor variants).
type Option func(*options)

// WithFormat pins the library format instead of guessing it from the
// filename and file contents. The name must match a registered format,
// e.g. "text", "msp", or "json".
func WithFormat(name string) Option {
	return func(o *options) {
		o.format = name
	}
}

// WithIndexMode selects where scanned formats keep their offset index.
//
// IndexAuto loads an existing sidecar and otherwise scans into memory.
// IndexSQL persists a freshly built index next to the library so later
// opens skip the scan. Database formats ignore the mode.
func WithIndexMode(mode backend.IndexMode) Option {
	return func(o *options) {
		o.indexMode = mode
	}
}

// WithBlobStore opens the library through the given blob store instead of
// the local filesystem, so libraries in object storage can be range-read in
// place. SQLite-backed formats need a local file and reject remote stores.
//
// Example with S3:
//
//	store, _ := s3.New(ctx, "my-bucket", s3.WithPrefix("libraries/"))
//	lib, _ := speclib.Open(ctx, "consensus.mzlb.txt", speclib.WithBlobStore(store))
func WithBlobStore(store blobstore.BlobStore) Option {
	return func(o *options) {
		o.blobStore = store
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &speclib.BasicMetricsCollector{}
//	lib, _ := speclib.Open(ctx, path, speclib.WithMetricsCollector(metrics))
//	// ... use lib ...
//	stats := metrics.GetStats()
//	fmt.Printf("Lookups: %d, Avg latency: %dns\n", stats.LookupCount, stats.LookupAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := speclib.NewJSONLogger(slog.LevelInfo)
//	lib, _ := speclib.Open(ctx, path, speclib.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		indexMode:        backend.IndexAuto,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}

	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}

	if o.logger == nil {
		o.logger = NoopLogger()
	}

	return o
}
