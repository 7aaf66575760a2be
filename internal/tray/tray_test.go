package tray

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMenuConstruction(t *testing.T) {
	tr := New("winbridge", "tip")
	settings := tr.AddCheckboxItem("settings", true, func() {})
	sleep := tr.AddCheckboxItem("sleep", false, func() {})
	tr.AddSeparator()
	quit := tr.AddMenuItem("Quit", nil)

	assert.Equal(t, []int{0, 1, 3}, []int{settings, sleep, quit})
	require.Len(t, tr.items, 4)
	assert.Equal(t, "settings", tr.items[0].Title)
	assert.True(t, tr.items[0].Checkable)
	assert.True(t, tr.items[0].Checked)
	assert.False(t, tr.items[1].Checked)
	assert.Nil(t, tr.items[2], "separator")
	assert.Equal(t, "Quit", tr.items[3].Title)
	assert.False(t, tr.items[3].Checkable)
}

func TestSetItemCheckedBeforeRun(t *testing.T) {
	tr := New("winbridge", "tip")
	box := tr.AddCheckboxItem("settings", true, nil)
	tr.AddSeparator()
	plain := tr.AddMenuItem("Quit", nil)

	tr.SetItemChecked(box, false)
	assert.False(t, tr.items[box].Checked)
	tr.SetItemChecked(box, true)
	assert.True(t, tr.items[box].Checked)

	assert.NotPanics(t, func() {
		tr.SetItemChecked(1, true)
		tr.SetItemChecked(-1, true)
		tr.SetItemChecked(10, true)
	})
	tr.SetItemChecked(plain, true)
	assert.False(t, tr.items[plain].Checked, "plain items have no check mark")
}

func TestIconHeader(t *testing.T) {
	icon := getIcon()
	assert.Len(t, icon, 1118)
	assert.Equal(t, []byte{0, 0, 1, 0, 1, 0}, icon[:6])
	assert.Equal(t, byte(16), icon[6], "width")
}
