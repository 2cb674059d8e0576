package otaserve

import "log/slog"

// LocateOption configures Locate and LocateRaw.
type LocateOption func(*locateConfig)

type locateConfig struct {
	payloadEntry    string
	propertiesEntry string
	strict          bool
	logger          *slog.Logger
}

func newLocateConfig(opts []LocateOption) *locateConfig {
	cfg := &locateConfig{
		payloadEntry:    PayloadEntry,
		propertiesEntry: PropertiesEntry,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(cfg)
	}
	return cfg
}

// WithSecondary selects the secondary payload pair of entries instead of the
// primary one. A server instance serves one or the other, never both.
func WithSecondary() LocateOption {
	return func(cfg *locateConfig) {
		cfg.payloadEntry = SecondaryPayloadEntry
		cfg.propertiesEntry = SecondaryPropertiesEntry
	}
}

// WithEntryNames overrides the payload and properties entry names.
func WithEntryNames(payload, properties string) LocateOption {
	return func(cfg *locateConfig) {
		cfg.payloadEntry = payload
		cfg.propertiesEntry = properties
	}
}

// WithStrict turns the magic and compression-method checks into hard errors
// instead of logged warnings.
func WithStrict() LocateOption {
	return func(cfg *locateConfig) {
		cfg.strict = true
	}
}

// WithLogger sets the logger used for locate diagnostics.
// Defaults to slog.Default.
func WithLogger(logger *slog.Logger) LocateOption {
	return func(cfg *locateConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}
