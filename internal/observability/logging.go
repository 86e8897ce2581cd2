// Package observability provides logger construction and the structured
// fields the daemon logs for each step.
package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/construct/internal/config"
	"github.com/cory-johannsen/construct/internal/game/construct"
)

// NewLogger creates a structured logger from the given logging configuration,
// tagged with the given service name.
//
// Precondition: cfg.Level must be one of "debug", "info", "warn", "error".
// Precondition: cfg.Format must be "json" or "console".
// Postcondition: Returns a configured zap.Logger or a non-nil error.
func NewLogger(cfg config.LoggingConfig, service string) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}

	var zapCfg zap.Config
	switch cfg.Format {
	case "json":
		zapCfg = zap.NewProductionConfig()
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if service != "" {
		zapCfg.InitialFields = map[string]any{"service": service}
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}

// ReportFields summarizes a step report for a single log line.
func ReportFields(rep construct.Report) []zap.Field {
	fields := []zap.Field{
		zap.Stringer("run_id", rep.RunID),
		zap.Int64("height", rep.Height),
		zap.Int("actions", rep.Actions),
		zap.Int("attacks", len(rep.Turns)),
		zap.Int("commands", len(rep.Commands)),
		zap.Int("refunds", len(rep.Refunded)),
		zap.Int64("damage", rep.Damage()),
		zap.Int64("hitpoints", rep.Hitpoints),
	}
	if rep.Regenerated > 0 {
		fields = append(fields, zap.Int64("regenerated", rep.Regenerated))
	}
	if rep.Deactivated {
		fields = append(fields, zap.Bool("deactivated", true))
	}
	if s := rep.Settlement; s != nil {
		fields = append(fields,
			zap.Stringer("final_blow", s.FinalBlow),
			zap.Int64("burned", s.Burned),
		)
	}
	return fields
}
