package logger

import (
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var Logger = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		TimestampFormat: "02/Jan/2006:15:04:05 -0700",
		FullTimestamp:   true,
	})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// InitLogger resets the process logger to stdout at the given level.
func InitLogger(level string) error {
	Logger = newLogger()
	if level == "" {
		return nil
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return errors.Wrapf(err, "invalid log level %q", level)
	}
	Logger.SetLevel(lvl)
	return nil
}
