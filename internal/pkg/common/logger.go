package common

import (
	"os"
	"strings"

	"github.com/labstack/gommon/log"
	"github.com/samber/do/v2"
)

func NewLogger(i do.Injector) (*log.Logger, error) {
	level := do.MustInvokeNamed[string](i, "log-level")

	return NewLoggerWithLevel("escrow", level), nil
}

func NewLoggerWithLevel(prefix string, level string) *log.Logger {
	logger := log.New(prefix)
	logger.SetOutput(os.Stdout)
	logger.SetLevel(ParseLevel(level))

	return logger
}

func ParseLevel(level string) log.Lvl {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DEBUG
	case "warn":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	default:
		return log.INFO
	}
}
