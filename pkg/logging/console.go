package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// ConsoleLogger returns a plain stderr logger, mainly for tests and CLIs.
func ConsoleLogger(level logrus.Level) *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetOutput(os.Stderr)
	return logger
}
