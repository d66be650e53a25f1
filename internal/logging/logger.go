package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logger     = newLogger(os.Stdout, colorEnabled(os.Stdout))
	loggerLock sync.Mutex
)

// Options controls where log lines go and how verbose they are.
type Options struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// CustomFormatter provides a clean, standard log format
type CustomFormatter struct {
	Color bool
}

func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	timestamp := entry.Time.Format("2006-01-02 15:04:05")

	var levelColor string
	var levelText string
	switch entry.Level {
	case logrus.InfoLevel:
		levelColor = "\033[36m" // Cyan
		levelText = " INFO"
	case logrus.WarnLevel:
		levelColor = "\033[33m" // Yellow
		levelText = " WARN"
	case logrus.ErrorLevel:
		levelColor = "\033[31m" // Red
		levelText = "ERROR"
	case logrus.DebugLevel:
		levelColor = "\033[37m" // White
		levelText = "DEBUG"
	default:
		levelColor = "\033[0m"
		levelText = strings.ToUpper(entry.Level.String())
	}

	reset := "\033[0m"
	if !f.Color {
		levelColor, reset = "", ""
	}

	module := "main"
	if moduleField, exists := entry.Data["module"]; exists {
		if moduleStr, ok := moduleField.(string); ok {
			module = moduleStr
		}
	}

	// Format: [LEVEL timestamp] [module] message
	return []byte(fmt.Sprintf("[%s%s%s %s] [%8s] %s\n",
		levelColor, levelText, reset, timestamp, module, entry.Message)), nil
}

func newLogger(out io.Writer, color bool) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&CustomFormatter{Color: color})
	return l
}

func colorEnabled(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Init reconfigures the process logger. A log file, when set, is rotated by
// lumberjack and receives the same lines as stdout.
func Init(opts Options) error {
	var output io.Writer = os.Stdout
	color := colorEnabled(os.Stdout)

	if opts.File != "" {
		maxSize := opts.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 10
		}
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    maxSize,
			MaxBackups: opts.MaxBackups,
			Compress:   true,
		}
		output = io.MultiWriter(os.Stdout, rotator)
		// escape codes would end up in the file
		color = false
	}

	level := logrus.InfoLevel
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	l := newLogger(output, color)
	l.SetLevel(level)

	loggerLock.Lock()
	logger = l
	loggerLock.Unlock()
	return nil
}

// SetOutput redirects the process logger, mostly for tests.
func SetOutput(w io.Writer) {
	loggerLock.Lock()
	defer loggerLock.Unlock()
	logger.SetOutput(w)
	logger.SetFormatter(&CustomFormatter{})
}

// SetLevel changes the level of the process logger.
func SetLevel(level logrus.Level) {
	loggerLock.Lock()
	defer loggerLock.Unlock()
	logger.SetLevel(level)
}

// Logger returns the process logger.
func Logger() *logrus.Logger {
	loggerLock.Lock()
	defer loggerLock.Unlock()
	return logger
}

// Module returns an entry tagged with the given module name.
func Module(module string) *logrus.Entry {
	return Logger().WithField("module", module)
}
