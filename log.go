package dataterm

import (
	"io"

	"github.com/sirupsen/logrus"
)

// NewLogger returns a text logger writing to w at the given level.
func NewLogger(level string, w io.Writer) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, invalidf("log level: %v", err)
	}
	log := logrus.New()
	log.Formatter = &logrus.TextFormatter{DisableTimestamp: true}
	log.Level = lvl
	log.Out = w
	return log, nil
}
