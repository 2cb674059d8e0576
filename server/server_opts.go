package server

import "log/slog"

// Option configures a Server.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

func defaultOptions() options {
	return options{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger used for request diagnostics.
// Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
