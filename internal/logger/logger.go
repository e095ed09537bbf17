package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New ログレベル文字列からロガーを作成
//
// Lambda環境ではCloudWatch向けにJSON形式、ローカルでは人が読みやすい形式で出力する。
// 不明なレベルはINFOとして扱う。
func New(level string, isLambda bool) (*zap.Logger, error) {
	var cfg zap.Config
	if isLambda {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.DisableStacktrace = true
	}
	cfg.Level = zap.NewAtomicLevelAt(ParseLevel(level))

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("ロガーの初期化に失敗しました: %w", err)
	}
	return logger, nil
}

// ParseLevel "DEBUG" / "info" などをzapのレベルに変換
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
