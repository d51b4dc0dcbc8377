package wav

import "log/slog"

// Option configures Summarize and the functions built on it.
//
// Example:
//
//	s, err := wav.SummarizeFile("take1.wav",
//	    wav.WithLogger(slog.Default()),
//	    wav.WithStrict(),
//	)
type Option func(*options)

type options struct {
	logger   *slog.Logger
	registry *ChunkRegistry // nil disables metadata decoding
	strict   bool           // anomalies fail the parse
}

func defaultOptions() *options {
	return &options{
		logger:   slog.New(slog.DiscardHandler),
		registry: newDefaultChunkRegistry(),
	}
}

func applyOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	return o
}

// WithLogger sets the logger anomalies are reported to. By default nothing is
// logged.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithChunkHandler adds a handler for non-core chunks. It is consulted after
// the built-in fact and LIST/INFO handlers.
func WithChunkHandler(h ChunkHandler) Option {
	return func(o *options) {
		if o.registry == nil {
			o.registry = &ChunkRegistry{}
		}

		o.registry.Register(h)
	}
}

// WithoutMetadata skips decoding of non-core chunks. Their ids are still
// listed in the summary.
func WithoutMetadata() Option {
	return func(o *options) {
		o.registry = nil
	}
}

// WithStrict turns every anomaly into an error.
func WithStrict() Option {
	return func(o *options) {
		o.strict = true
	}
}
