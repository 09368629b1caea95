// Package tokenlock implements a per-owner token-lock ledger. An owner locks
// funds into time-stamped slots of a ledger account whose address is derived
// from the owner's identity, and later unlocks part or all of a slot.
package tokenlock

import (
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// PromCollectors exposes the Prometheus collectors of the packages. A package
// appends its collectors in its init function.
var PromCollectors []prometheus.Collector

// EnvLogLevel is the name of the environment variable to change the logging
// level.
const EnvLogLevel = "LLVL"

const defaultLevel = zerolog.InfoLevel

var logout = zerolog.ConsoleWriter{
	Out:        os.Stdout,
	TimeFormat: time.RFC3339,
}

// Logger is a globally available logger instance. By default, it only prints
// info level logs but it can be changed through a environment variable.
var Logger = zerolog.New(logout).
	Level(levelFromEnv(os.Getenv(EnvLogLevel))).
	With().Timestamp().Logger().
	With().Caller().Logger()

func levelFromEnv(lvl string) zerolog.Level {
	switch strings.ToLower(lvl) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "off":
		return zerolog.Disabled
	default:
		return defaultLevel
	}
}
