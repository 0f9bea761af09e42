// Package logging configures the process-wide structured logger: a dual
// stdout + daily-rotating-file sink with level controlled by the LOG_LEVEL
// environment variable, built on logrus and lumberjack.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Init configures logrus's standard logger with a text formatter, a level
// taken from LOG_LEVEL (default "info"), and output split across stdout and
// a file under dir that is rotated at each local midnight, and also
// whenever it exceeds lumberjack's MaxSize.
func Init(dir string) error {
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	fileSink := &lumberjack.Logger{
		Filename: dir + "/collector.log",
		MaxSize:  100, // megabytes
		MaxAge:   30,  // days
		Compress: true,
	}

	go func() {
		for {
			now := time.Now()
			midnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
			time.Sleep(time.Until(midnight))
			_ = fileSink.Rotate()
		}
	}()

	logrus.SetOutput(io.MultiWriter(os.Stdout, fileSink))
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetLevel(levelFromEnv())
	return nil
}

func levelFromEnv() logrus.Level {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	if raw == "" {
		raw = "info"
	}
	lvl, err := logrus.ParseLevel(raw)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}
