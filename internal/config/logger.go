package config

import (
	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// NewLogger builds the process logger. Logs go to stderr so command output
// on stdout stays machine-readable.
func (c LogConfig) NewLogger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.Level)
	if err != nil {
		return nil, errors.Wrapf(err, "log level %q", c.Level)
	}

	zcfg := zap.NewProductionConfig()
	if c.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = level
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}

	lg, err := zcfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "build logger")
	}
	return lg, nil
}
