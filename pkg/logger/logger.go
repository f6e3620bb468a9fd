package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	log "github.com/sirupsen/logrus"
)

// LogFormatter renders entries as "timestamp [LEVEL] message".
type LogFormatter struct {
	TimestampFormat string
	LevelDesc       []string
}

// Format format entry in custom format
func (f *LogFormatter) Format(entry *log.Entry) ([]byte, error) {
	timestamp := entry.Time.Format(f.TimestampFormat)
	level := f.LevelDesc[entry.Level]
	msg := fmt.Sprintf("%s [%s] %s\n", timestamp, level, entry.Message)
	return []byte(msg), nil
}

// Init configures logrus with hourly file rotation under logDir. When the
// log directory cannot be prepared, output stays on stderr so the service
// still runs (matters on read-only serverless filesystems).
func Init(level, logDir string) {
	log.SetFormatter(&LogFormatter{
		TimestampFormat: "2006-01-02 15:04:05.000",
		LevelDesc:       []string{"PANIC", "FATAL", "ERROR", "WARN", "INFO", "DEBUG", "TRACE"},
	})

	if level == "DEBUG" {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}

	if logDir == "" {
		logDir = "./logs"
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.Warnf("cannot create log directory %s, logging to stderr: %v", logDir, err)
		return
	}

	logFile := filepath.Join(logDir, "deye-status.log")
	rl, err := rotatelogs.New(
		logFile+".%Y-%m-%d-%H",
		rotatelogs.WithLinkName(logFile),
		rotatelogs.WithRotationTime(time.Hour),
		rotatelogs.WithMaxAge(7*24*time.Hour),
	)
	if err != nil {
		log.Warnf("log rotation unavailable, logging to stderr: %v", err)
		return
	}
	log.SetOutput(rl)
}

// WriteLog writes a log entry at the specified level, tagged with the
// request ID and a short context key.
func WriteLog(level string, requestID string, key string, message interface{}) {
	if requestID == "" {
		requestID = "no-request-id"
	}

	line := fmt.Sprintf("[%v] [%v] | %+v", key, requestID, message)
	switch level {
	case "ERROR":
		log.Error(line)
	case "WARN":
		log.Warn(line)
	case "DEBUG":
		log.Debug(line)
	default:
		log.Info(line)
	}
}

// Info logs informational messages
func Info(message string) { log.Info(message) }

// Error logs error messages
func Error(message string) { log.Error(message) }

// Warn logs warning messages
func Warn(message string) { log.Warn(message) }

// Debug logs debug messages
func Debug(message string) { log.Debug(message) }

// Infof logs a formatted informational message
func Infof(format string, args ...interface{}) { log.Infof(format, args...) }

// Errorf logs a formatted error message
func Errorf(format string, args ...interface{}) { log.Errorf(format, args...) }
