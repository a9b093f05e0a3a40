package logger

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Environment variable to configure log file path.
const envLogPath = "GHPANEL_LOG"

var (
	mu      sync.RWMutex
	sugar   *zap.SugaredLogger
	logFile *os.File
)

// DefaultPath returns GHPANEL_LOG or ghpanel.log next to the executable.
func DefaultPath() string {
	if path := os.Getenv(envLogPath); path != "" {
		return path
	}
	if exePath, err := os.Executable(); err == nil {
		return filepath.Join(filepath.Dir(exePath), "ghpanel.log")
	}
	return "./ghpanel.log"
}

// Init initializes the logger to write to the provided file path at the
// given level. It creates parent directories if needed and opens the file
// in append mode. Calling Init twice keeps the first logger.
func Init(path, level string) error {
	mu.Lock()
	defer mu.Unlock()
	if sugar != nil {
		return nil
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return err
	}
	if err := ensureParentDir(path); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(f), lvl)

	logFile = f
	sugar = zap.New(core).Sugar()
	return nil
}

// Close flushes and closes the underlying log file, if open.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if sugar != nil {
		_ = sugar.Sync()
		sugar = nil
	}
	if logFile != nil {
		err := logFile.Close()
		logFile = nil
		return err
	}
	return nil
}

// L returns the structured logger. It is a no-op logger until Init runs.
func L() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	if sugar == nil {
		return zap.NewNop().Sugar()
	}
	return sugar
}

// Debugf logs verbose diagnostics.
func Debugf(format string, args ...any) { L().Debugf(format, args...) }

// Infof logs informational messages.
func Infof(format string, args ...any) { L().Infof(format, args...) }

// Warnf logs warnings.
func Warnf(format string, args ...any) { L().Warnf(format, args...) }

// Errorf logs errors.
func Errorf(format string, args ...any) { L().Errorf(format, args...) }

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
