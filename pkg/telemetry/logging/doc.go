// Package logging builds the log/slog loggers used across the tooling.
//
//	logger, err := logging.New(cfg.Telemetry.Logging, os.Stderr, logging.Verbose())
//	combiner := combine.NewCombiner(combine.WithLogger(logging.WithComponent(logger, "combine")))
//
// Loggers travel through contexts with WithLogger and FromContext.
package logging
