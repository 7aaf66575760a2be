//go:build !windows

package autostart

import (
	"os"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnableDisable(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)

	e := Entry{Name: "winbridge-test", Executable: "/opt/winbridge/winbridge", Args: []string{"hotkeys", "--tray"}}

	ok, err := IsEnabled(e.Name)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, Enable(e))
	ok, err = IsEnabled(e.Name)
	require.NoError(t, err)
	assert.True(t, ok)

	path, err := entryPath(e.Name)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	if runtime.GOOS == "darwin" {
		assert.Contains(t, string(data), "<string>--tray</string>")
	} else {
		assert.Contains(t, string(data), "Exec=/opt/winbridge/winbridge hotkeys --tray\n")
	}

	require.NoError(t, Disable(e.Name))
	require.NoError(t, Disable(e.Name), "disabling twice is fine")
	ok, err = IsEnabled(e.Name)
	require.NoError(t, err)
	assert.False(t, ok)
}
