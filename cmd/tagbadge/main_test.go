package main

import (
	"bytes"
	"encoding/json"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tagbadge/internal/stats"
)

const sheetJSON = `{
  "log_level": "warn",
  "tags": [{"title": "Work", "color": "#FF0000", "title_color": "#FFFFFF"}],
  "items": [{"tag": "Work", "count": 3, "x": 2, "y": 2, "width": 80, "height": 20}]
}`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	stdout = &buf
	t.Cleanup(func() { stdout = os.Stdout })

	var cli CLI
	parser, err := kong.New(&cli, kong.Name("tagbadge"), kong.Vars{"version": "test"})
	require.NoError(t, err)
	ctx, err := parser.Parse(args)
	if err != nil {
		return "", err
	}
	err = ctx.Run()
	return buf.String(), err
}

func configDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "week.json"), []byte(sheetJSON), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "month.toml"), []byte("items = []\n"), 0o644))
	return dir
}

func TestRenderCommand(t *testing.T) {
	dir := configDir(t)
	out := filepath.Join(t.TempDir(), "week.png")

	printed, err := run(t, "render", "--config-dir", dir, "-c", "week", "-o", out, "--stats")
	require.NoError(t, err)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 82, img.Bounds().Dx())
	assert.Equal(t, 22, img.Bounds().Dy())

	var snap stats.Snapshot
	require.NoError(t, json.Unmarshal([]byte(printed), &snap))
	assert.GreaterOrEqual(t, snap.Cache.Len, 2)
}

func TestRenderMissingConfig(t *testing.T) {
	_, err := run(t, "render", "--config-dir", configDir(t), "-c", "nope")
	assert.ErrorContains(t, err, "config file not found")
}

func TestListCommand(t *testing.T) {
	printed, err := run(t, "list", "--config-dir", configDir(t))
	require.NoError(t, err)
	assert.Equal(t, "month\nweek\n", printed)
}
