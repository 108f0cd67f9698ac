// Package logging builds the structured logger every store component
// takes a reference to. It standardizes on go.uber.org/zap, used
// throughout this module's internal packages via *zap.SugaredLogger.
package logging

import "go.uber.org/zap"

// New builds a production-configured, sugared logger tagged with service.
// Callers that want a different configuration (development mode, a custom
// sink, a no-op logger for tests) can build their own *zap.SugaredLogger
// and pass it in directly wherever this package's callers accept one.
func New(service string) *zap.SugaredLogger {
	logger, err := zap.NewProduction()
	if err != nil {
		// zap.NewProduction only fails on a broken sink configuration,
		// which cannot happen with the default config used here.
		panic(err)
	}
	return logger.Sugar().With("service", service)
}

// Noop returns a logger that discards everything, for tests and embedders
// that do not want store log output.
func Noop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
