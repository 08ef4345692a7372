// Package logging installs a dragonboat-compatible logger.Factory so every
// package in this module shares one log format and one set of levels,
// instead of each package reaching for its own *log.Logger.
package logging

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/lni/dragonboat/v4/logger"
)

// hbaseLogger implements logger.ILogger with a small, fixed text format.
type hbaseLogger struct {
	name   string
	level  logger.LogLevel
	logger *log.Logger
}

func (l *hbaseLogger) SetLevel(level logger.LogLevel) {
	l.level = level
}

func (l *hbaseLogger) Debugf(format string, args ...interface{}) {
	if l.level >= logger.DEBUG {
		l.log("DEBUG", format, args...)
	}
}

func (l *hbaseLogger) Infof(format string, args ...interface{}) {
	if l.level >= logger.INFO {
		l.log("INFO", format, args...)
	}
}

func (l *hbaseLogger) Warningf(format string, args ...interface{}) {
	if l.level >= logger.WARNING {
		l.log("WARN", format, args...)
	}
}

func (l *hbaseLogger) Errorf(format string, args ...interface{}) {
	if l.level >= logger.ERROR {
		l.log("ERROR", format, args...)
	}
}

func (l *hbaseLogger) Panicf(format string, args ...interface{}) {
	if l.level >= logger.CRITICAL {
		panic(fmt.Sprintf(format, args...))
	}
}

func (l *hbaseLogger) log(levelStr, format string, args ...interface{}) {
	l.logger.Printf("%-5s | %-18s | %s", levelStr, l.name, fmt.Sprintf(format, args...))
}

// Factory creates loggers for dragonboat's logger.SetLoggerFactory.
func Factory(pkgName string) logger.ILogger {
	return &hbaseLogger{
		name:   pkgName,
		level:  logger.INFO,
		logger: log.New(os.Stdout, "", log.Ldate|log.Ltime),
	}
}

// ParseLevel converts a string level ("debug", "info", "warn"/"warning", "error")
// into a logger.LogLevel, defaulting to INFO for unrecognized input.
func ParseLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG
	case "info":
		return logger.INFO
	case "warn", "warning":
		return logger.WARNING
	case "error":
		return logger.ERROR
	default:
		return logger.INFO
	}
}

// packages whose level Init adjusts; kept in one place so a new package
// only needs to be added here to pick up global level configuration.
var packages = []string{
	"ipc/conn",
	"ipc/pool",
	"ipc/client",
	"ipc/metrics",
}

// Init installs the custom factory and applies level to every package this
// module logs from.
func Init(level string) {
	logger.SetLoggerFactory(Factory)
	lvl := ParseLevel(level)
	for _, pkg := range packages {
		logger.GetLogger(pkg).SetLevel(lvl)
	}
}
