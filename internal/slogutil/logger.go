// Package slogutil provides a component-scoped log/slog wrapper so that
// different parts of the admission pipeline (candidate, amplification,
// transportparameters) can be muted or turned up independently without
// separate logger instances.
package slogutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LevelNone disables all logging.
const LevelNone slog.Level = slog.LevelError + 1

// ComponentKey is the slog attribute key that identifies which package
// emitted a record.
const ComponentKey = "component"

type logLevels struct {
	Level      slog.Level
	Components map[string]slog.Level
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "none":
		return LevelNone, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("slogutil: unknown log level %q", s)
	}
}

// parseConfig parses the QUICACCEPT_LOG_LEVEL environment variable format.
//
// Valid formats:
//   - "info"                                 - top-level only
//   - "debug,candidate=info"                 - top-level + component
//   - "debug,candidate=info,amplification=error" - multiple components
//   - "candidate=info"                       - components only, no top-level
func parseConfig(config string) (logLevels, error) {
	levels := logLevels{Level: LevelNone}
	if config == "" {
		return levels, nil
	}

	for _, part := range strings.Split(config, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.Contains(part, "=") {
			kv := strings.SplitN(part, "=", 2)
			component := strings.TrimSpace(kv[0])
			level, err := parseLevel(strings.TrimSpace(kv[1]))
			if err != nil {
				return logLevels{}, fmt.Errorf("component %s: %w", component, err)
			}
			if levels.Components == nil {
				levels.Components = make(map[string]slog.Level)
			}
			levels.Components[component] = level
			continue
		}
		level, err := parseLevel(part)
		if err != nil {
			return logLevels{}, err
		}
		levels.Level = level
	}
	return levels, nil
}

type levelFilterHandler struct {
	component string
	slog.Handler
	levels logLevels
}

var _ slog.Handler = (*levelFilterHandler)(nil)

func (h *levelFilterHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if h.levels.Components != nil {
		if min, ok := h.levels.Components[h.component]; ok {
			return level >= min
		}
	}
	return level >= h.levels.Level
}

func (h *levelFilterHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	component := h.component
	for _, a := range attrs {
		if a.Key == ComponentKey {
			component = a.Value.String()
			break
		}
	}
	return &levelFilterHandler{
		Handler:   h.Handler.WithAttrs(attrs),
		levels:    h.levels,
		component: component,
	}
}

func (h *levelFilterHandler) WithGroup(name string) slog.Handler {
	return &levelFilterHandler{
		Handler:   h.Handler.WithGroup(name),
		levels:    h.levels,
		component: h.component,
	}
}

func newHandler(w io.Writer, levels logLevels) slog.Handler {
	return &levelFilterHandler{
		Handler: slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}),
		levels:  levels,
	}
}

// New builds a component-filtering logger reading its configuration from the
// QUICACCEPT_LOG_LEVEL environment variable, writing to w.
func New(w io.Writer) *slog.Logger {
	levels, err := parseConfig(os.Getenv("QUICACCEPT_LOG_LEVEL"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "slogutil: failed to parse QUICACCEPT_LOG_LEVEL: %v\n", err)
		levels = logLevels{Level: slog.LevelInfo}
	}
	return slog.New(newHandler(w, levels))
}

// Component returns a child logger tagged with the given component name, for
// use with QUICACCEPT_LOG_LEVEL's per-component overrides.
func Component(logger *slog.Logger, name string) *slog.Logger {
	return logger.With(slog.String(ComponentKey, name))
}
