package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func runValidateWith(t *testing.T, arg, stdin string) (string, error) {
	t.Helper()
	logger = zap.NewNop()

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader(stdin))
	err := runValidate(cmd, []string{arg})
	return out.String(), err
}

func TestValidateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiles.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"regionId":1,"regionX":2,"regionY":3,"z":0,"color":"#FF00FF00"}]`), 0o644))

	out, err := runValidateWith(t, path, "")

	require.NoError(t, err)
	assert.Equal(t, "OK: 1 tiles\n", out)
}

func TestValidateStdinRejects(t *testing.T) {
	out, err := runValidateWith(t, "-", `{"not":"an array"}`)

	assert.ErrorIs(t, err, errInvalidTiles)
	assert.True(t, strings.HasPrefix(out, "Invalid tile data:"))
}

func TestValidateMissingFile(t *testing.T) {
	_, err := runValidateWith(t, filepath.Join(t.TempDir(), "missing.json"), "")

	assert.Error(t, err)
	assert.NotErrorIs(t, err, errInvalidTiles)
}

func TestValidateHelpNamesColorFormat(t *testing.T) {
	assert.Contains(t, validateCmd.Long, "#RRGGBBAA")
	assert.NotContains(t, validateCmd.Long, "#AARRGGBB")
}
