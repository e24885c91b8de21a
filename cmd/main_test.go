package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommands(t *testing.T) {
	root := newRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"chat", "tui", "serve", "ask", "index", "questions", "debug"})
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
	assert.NotNil(t, root.PersistentFlags().Lookup("verbose"))
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retriever:\n  k: 8\n  fetch_k: 4\n"), 0o644))

	cfgFile = path
	t.Cleanup(func() { cfgFile = "" })

	_, err := loadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch_k")
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", preview("short", 200))
	assert.Equal(t, "abc...", preview("abcdef", 3))
	assert.Equal(t, "ﷺﷺ...", preview("ﷺﷺﷺ", 2))
}
