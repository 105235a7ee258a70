package top

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logmu  sync.RWMutex
	logger = defaultLogger()
)

// defaultLogger writes warnings and above to stderr, so that non-fatal
// warnings reach the user with no configuration at all.
func defaultLogger() *zap.Logger {
	enc := zap.NewDevelopmentEncoderConfig()
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(os.Stderr), zap.WarnLevel)
	return zap.New(core)
}

// SetLogger replaces the logger used by gotop and its subpackages.
// A nil logger silences all output.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logmu.Lock()
	logger = l
	logmu.Unlock()
}

// Logger returns the logger currently in use.
func Logger() *zap.Logger {
	logmu.RLock()
	defer logmu.RUnlock()
	return logger
}
