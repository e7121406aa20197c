// Package logger はzerologベースの構造化ロガーを生成する。
//
// コンソール向けの整形出力とJSON出力を切り替えられ、ファイル出力は
// lumberjackでローテーションする。
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Format はログの出力形式。
type Format string

const (
	// FormatConsole は人間向けの整形出力。
	FormatConsole Format = "console"
	// FormatJSON は1行1イベントのJSON出力。
	FormatJSON Format = "json"
)

// ParseFormat は文字列を出力形式に変換する。不明な値はFormatConsoleになる。
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), string(FormatJSON)) {
		return FormatJSON
	}
	return FormatConsole
}

// ParseLevel は文字列をログレベルに変換する。不明な値はInfoLevelになる。
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error", "err":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Config はロガーの設定。
type Config struct {
	// Level はログレベル。
	Level string
	// Format は出力形式（console または json）。
	Format string
	// File はログファイルのパス。空ならファイルには出力しない。
	File string
	// MaxSizeMB はローテーションするファイルサイズ（MB）。
	MaxSizeMB int
	// MaxBackups は保持する世代数。
	MaxBackups int
	// MaxAgeDays は保持する日数。
	MaxAgeDays int
	// Output はコンソール出力先。nilなら標準エラー出力。
	Output io.Writer
}

// nopCloser は閉じるものがない場合のio.Closer。
type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New は設定に従ってロガーを生成する。
// 戻り値のio.Closerはファイル出力を閉じるために終了時に呼び出す。
func New(cfg Config) (zerolog.Logger, io.Closer, error) {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	format := ParseFormat(cfg.Format)
	var console io.Writer = out
	if format == FormatConsole {
		console = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	writers := []io.Writer{console}
	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("ログディレクトリの作成に失敗: %w", err)
		}
		fileWriter := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    orDefault(cfg.MaxSizeMB, 100),
			MaxBackups: orDefault(cfg.MaxBackups, 10),
			MaxAge:     orDefault(cfg.MaxAgeDays, 30),
			Compress:   true,
			LocalTime:  true,
		}
		// ファイルには常にJSONで出力する
		writers = append(writers, fileWriter)
		closer = fileWriter
	}

	var w io.Writer = writers[0]
	if len(writers) > 1 {
		w = zerolog.MultiLevelWriter(writers...)
	}

	l := zerolog.New(w).Level(ParseLevel(cfg.Level)).With().Timestamp().Logger()
	return l, closer, nil
}

// Bootstrap は設定読み込み前に使用する標準エラー出力のロガーを返す。
func Bootstrap() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		Level(zerolog.InfoLevel).
		With().Timestamp().Logger()
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
