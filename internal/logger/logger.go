package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

var (
	defaultLogger *slog.Logger
	once          sync.Once
)

// bannerRule frames banner messages so they stand out from regular lines.
var bannerRule = strings.Repeat("!", 72)

// LevelBanner is above every configurable level. Handlers never filter it.
const LevelBanner = slog.Level(16)

// Init initializes the global logger on stdout at INFO level.
func Init() {
	InitWithWriter(os.Stdout, slog.LevelInfo)
}

// InitWithWriter initializes the global logger once with the given writer and minimum level.
func InitWithWriter(out io.Writer, level slog.Level) {
	once.Do(func() {
		handler := NewHandler(out, level)
		defaultLogger = slog.New(handler)
		slog.SetDefault(defaultLogger)
	})
}

// ParseLevel parses debug, info, warn or error.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("parse log level %q:\n%w", s, err)
	}

	return level, nil
}

// Handler is a custom slog handler with millisecond timestamps.
type Handler struct {
	out   io.Writer
	mu    *sync.Mutex
	level slog.Leveler
	attrs []slog.Attr
	group string // group is the dotted key prefix set by WithGroup
}

// NewHandler creates a new handler writing records at or above level to out.
func NewHandler(out io.Writer, level slog.Leveler) *Handler {
	return &Handler{out: out, mu: &sync.Mutex{}, level: level}
}

// Enabled reports whether records at l are written. Banner records always are.
func (h *Handler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= LevelBanner || l >= h.level.Level()
}

// Handle formats and writes a log record.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	// Format: 2024-01-15 14:30:45.123 [INF] message key=value
	ts := r.Time.Format("2006-01-02 15:04:05.000")
	level := levelString(r.Level)

	h.mu.Lock()
	defer h.mu.Unlock()

	fmt.Fprintf(h.out, "%s [%s] %s", ts, level, r.Message)

	for _, a := range h.attrs {
		fmt.Fprintf(h.out, " %s=%v", a.Key, a.Value)
	}

	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(h.out, " %s%s=%v", h.group, a.Key, a.Value)
		return true
	})

	fmt.Fprintln(h.out)

	return nil
}

// WithAttrs returns a handler that prefixes every record with attrs.
// Keys are qualified with the current group.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)

	for _, a := range attrs {
		merged = append(merged, slog.Attr{Key: h.group + a.Key, Value: a.Value})
	}

	return &Handler{out: h.out, mu: h.mu, level: h.level, attrs: merged, group: h.group}
}

// WithGroup returns a handler that writes later keys as name.key.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	return &Handler{out: h.out, mu: h.mu, level: h.level, attrs: h.attrs, group: h.group + name + "."}
}

// levelString returns a short string for the log level.
func levelString(l slog.Level) string {
	switch l {
	case slog.LevelDebug:
		return "DBG"
	case slog.LevelInfo:
		return "INF"
	case slog.LevelWarn:
		return "WRN"
	case slog.LevelError:
		return "ERR"
	case LevelBanner:
		return "WRN"
	default:
		return "???"
	}
}

// Info logs at INFO level.
func Info(msg string, args ...any) {
	slog.Info(msg, args...)
}

// Debug logs at DEBUG level.
func Debug(msg string, args ...any) {
	slog.Debug(msg, args...)
}

// Warn logs at WARN level.
func Warn(msg string, args ...any) {
	slog.Warn(msg, args...)
}

// Error logs at ERROR level.
func Error(msg string, args ...any) {
	slog.Error(msg, args...)
}

// Banner logs msg framed by rule lines at LevelBanner, so it is written
// whatever minimum level the handler was configured with.
func Banner(msg string, args ...any) {
	ctx := context.Background()
	log := slog.Default()

	log.Log(ctx, LevelBanner, bannerRule)
	log.Log(ctx, LevelBanner, "⚠ "+msg, args...)
	log.Log(ctx, LevelBanner, bannerRule)
}

// With returns a logger with the given attributes.
func With(args ...any) *slog.Logger {
	return slog.Default().With(args...)
}

// Timed returns elapsed time since start for logging duration.
func Timed(start time.Time) slog.Attr {
	return slog.Duration("elapsed", time.Since(start))
}
