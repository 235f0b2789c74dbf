package app

import (
	"io"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the CLI logger. Output goes to w (stderr in the CLI) so it
// never mixes with command output.
func NewLogger(level string, w io.Writer) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(lvl)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})
	return log, nil
}
