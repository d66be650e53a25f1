package logging

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomFormatterLayout(t *testing.T) {
	f := &CustomFormatter{}
	entry := &logrus.Entry{
		Logger:  logrus.New(),
		Time:    time.Date(2025, 6, 16, 9, 30, 0, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "cache insert dropped",
		Data:    logrus.Fields{"module": "badge"},
	}

	out, err := f.Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "[ WARN 2025-06-16 09:30:00] [   badge] cache insert dropped\n", string(out))
}

func TestCustomFormatterDefaultsModule(t *testing.T) {
	f := &CustomFormatter{Color: true}
	entry := &logrus.Entry{
		Logger:  logrus.New(),
		Time:    time.Now(),
		Level:   logrus.InfoLevel,
		Message: "hello",
		Data:    logrus.Fields{},
	}

	out, err := f.Format(entry)
	require.NoError(t, err)
	assert.Contains(t, string(out), "\033[36m INFO\033[0m")
	assert.Contains(t, string(out), "[    main] hello")
}

func TestModuleWritesThroughProcessLogger(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(logrus.DebugLevel)
	t.Cleanup(func() { require.NoError(t, Init(Options{})) })

	Module("sheet").Debugf("rendered %d tiles", 3)
	assert.Contains(t, buf.String(), "[   sheet] rendered 3 tiles")
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	err := Init(Options{Level: "chatty"})
	assert.Error(t, err)
}

func TestInitWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tagbadge.log")
	require.NoError(t, Init(Options{Level: "debug", File: path, MaxBackups: 1}))
	t.Cleanup(func() { require.NoError(t, Init(Options{})) })

	assert.Equal(t, logrus.DebugLevel, Logger().GetLevel())
	formatter, ok := Logger().Formatter.(*CustomFormatter)
	require.True(t, ok)
	assert.False(t, formatter.Color)
}
