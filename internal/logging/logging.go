// Package logging はlog/slogによる構造化ロガーを構築する。
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options はロガーの出力形式とレベル。
type Options struct {
	// Format は"json"または"text"。空ならjson。
	Format string
	// Level は"debug"・"info"・"warn"・"error"のいずれか。空ならinfo。
	Level string
	// Writer は出力先。nilなら標準出力。
	Writer io.Writer
	// Command はログに付与するサブコマンド名。
	Command string
}

// New はOptionsから構造化ロガーを生成する。
func New(opts Options) (*slog.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", "json":
		handler = slog.NewJSONHandler(w, handlerOpts)
	case "text":
		handler = slog.NewTextHandler(w, handlerOpts)
	default:
		return nil, fmt.Errorf("LOG_FORMATはjsonまたはtextである必要があります: %q", opts.Format)
	}

	logger := slog.New(handler).With("app", "projecthub")
	if cmd := strings.TrimSpace(opts.Command); cmd != "" {
		logger = logger.With("command", cmd)
	}
	return logger, nil
}

// Setup はロガーを生成してslogの既定ロガーに設定する。
func Setup(opts Options) (*slog.Logger, error) {
	logger, err := New(opts)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}

// ParseLevel はログレベル名をslog.Levelに変換する。
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("LOG_LEVELはdebug, info, warn, errorのいずれかである必要があります: %q", s)
	}
}
