package views_test

import (
	"errors"
	"testing"
	"time"

	"mxbmm/internal/domain"
	"mxbmm/internal/tui"
	"mxbmm/internal/tui/views"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCategories() []domain.Category {
	return []domain.Category{
		{ID: "tracks", Label: "Tracks", Subpath: "tracks"},
		{ID: "bike-paints", Label: "Bike Paints", Subpath: "bikes/paints"},
	}
}

func testInventory() *domain.Inventory {
	return &domain.Inventory{
		Root:      "/mods",
		ScannedAt: time.Now(),
		Mods: map[string][]domain.InstalledMod{
			"tracks": {
				{Category: "tracks", Name: "Loretta", Path: "/mods/tracks/Loretta", IsDir: true},
				{Category: "tracks", Name: "Millville", Path: "/mods/tracks/Millville", IsDir: true},
			},
			"bike-paints": {
				{Category: "bike-paints", Name: "blue.pnt", Path: "/mods/bikes/paints/blue.pnt"},
			},
		},
	}
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestInstalled_InitialState(t *testing.T) {
	model := views.NewInstalled(testCategories(), nil, nil, tui.NewKeyMap("vim"))

	assert.Equal(t, 0, model.Selected())
	assert.Nil(t, model.SelectedMod())
	assert.Contains(t, model.View(), "No mods in Tracks.")
}

func TestInstalled_WithMods(t *testing.T) {
	model := views.NewInstalled(testCategories(), testInventory(), nil, tui.NewKeyMap("vim"))

	require.Len(t, model.Mods(), 2)
	view := model.View()
	assert.Contains(t, view, "Loretta")
	assert.Contains(t, view, "Millville")
	assert.Contains(t, view, "Tracks (2)")
	assert.NotContains(t, view, "blue.pnt")
}

func TestInstalled_Navigate(t *testing.T) {
	model := views.NewInstalled(testCategories(), testInventory(), nil, tui.NewKeyMap("vim"))

	newModel, _ := model.Update(tea.KeyMsg{Type: tea.KeyDown})
	updated := newModel.(views.Installed)
	assert.Equal(t, 1, updated.Selected())
	assert.Equal(t, "Millville", updated.SelectedMod().Name)

	// Wraps around
	newModel, _ = updated.Update(key("j"))
	updated = newModel.(views.Installed)
	assert.Equal(t, 0, updated.Selected())

	newModel, _ = updated.Update(key("G"))
	updated = newModel.(views.Installed)
	assert.Equal(t, 1, updated.Selected())
}

func TestInstalled_ChangeCategory(t *testing.T) {
	model := views.NewInstalled(testCategories(), testInventory(), nil, tui.NewKeyMap("vim"))

	newModel, _ := model.Update(tea.KeyMsg{Type: tea.KeyRight})
	updated := newModel.(views.Installed)
	assert.Equal(t, "bike-paints", updated.Category().ID)
	assert.Contains(t, updated.View(), "blue.pnt")

	newModel, _ = updated.Update(tea.KeyMsg{Type: tea.KeyRight})
	updated = newModel.(views.Installed)
	assert.Equal(t, "tracks", updated.Category().ID)

	newModel, _ = updated.Update(key("h"))
	updated = newModel.(views.Installed)
	assert.Equal(t, "bike-paints", updated.Category().ID)
}

func TestInstalled_StandardKeysIgnoreVimLetters(t *testing.T) {
	model := views.NewInstalled(testCategories(), testInventory(), nil, tui.NewKeyMap("standard"))

	for _, k := range []string{"j", "k", "G", "l", "h"} {
		newModel, _ := model.Update(key(k))
		updated := newModel.(views.Installed)
		assert.Equal(t, 0, updated.Selected(), k)
		assert.Equal(t, "tracks", updated.Category().ID, k)
	}

	newModel, _ := model.Update(tea.KeyMsg{Type: tea.KeyEnd})
	updated := newModel.(views.Installed)
	assert.Equal(t, 1, updated.Selected())

	newModel, _ = updated.Update(tea.KeyMsg{Type: tea.KeyUp})
	updated = newModel.(views.Installed)
	assert.Equal(t, 0, updated.Selected())

	assert.Contains(t, updated.View(), "↑/↓: navigate")
}

func TestInstalled_Uninstall(t *testing.T) {
	model := views.NewInstalled(testCategories(), testInventory(), nil, tui.NewKeyMap("vim"))
	newModel, _ := model.Update(tea.KeyMsg{Type: tea.KeyDown})

	_, cmd := newModel.Update(key("d"))
	require.NotNil(t, cmd)

	msg, ok := cmd().(views.UninstallModMsg)
	require.True(t, ok)
	assert.Equal(t, "Millville", msg.Mod.Name)
}

func TestInstalled_UninstallEmptyCategory(t *testing.T) {
	model := views.NewInstalled(testCategories(), nil, nil, tui.NewKeyMap("vim"))

	_, cmd := model.Update(key("d"))
	assert.Nil(t, cmd)
}

func TestInstalled_WithInventoryKeepsSelection(t *testing.T) {
	model := views.NewInstalled(testCategories(), testInventory(), nil, tui.NewKeyMap("vim"))
	newModel, _ := model.Update(tea.KeyMsg{Type: tea.KeyDown})
	updated := newModel.(views.Installed)

	inv := testInventory()
	inv.Mods["tracks"] = append([]domain.InstalledMod{
		{Category: "tracks", Name: "Budds Creek", Path: "/mods/tracks/Budds Creek", IsDir: true},
	}, inv.Mods["tracks"]...)

	updated = updated.WithInventory(inv)
	assert.Equal(t, 2, updated.Selected())
	assert.Equal(t, "Millville", updated.SelectedMod().Name)

	// Selected mod removed
	delete(inv.Mods, "tracks")
	updated = updated.WithInventory(inv)
	assert.Equal(t, 0, updated.Selected())
	assert.Nil(t, updated.SelectedMod())
}

func TestInstalled_ShowCategory(t *testing.T) {
	model := views.NewInstalled(testCategories(), testInventory(), nil, tui.NewKeyMap("vim"))

	model = model.ShowCategory("bike-paints")
	assert.Equal(t, "bike-paints", model.Category().ID)

	model = model.ShowCategory("nope")
	assert.Equal(t, "bike-paints", model.Category().ID)
}

func TestInstalled_Metadata(t *testing.T) {
	meta := func(path string) (*domain.ModMetadata, error) {
		if path == "/mods/tracks/Millville" {
			return nil, errors.New("bad yaml")
		}
		return &domain.ModMetadata{
			Category:    "tracks",
			Version:     "2.1",
			Archive:     "loretta_v2.zip",
			Notes:       "night version",
			InstalledAt: time.Now().Add(-time.Hour),
		}, nil
	}
	model := views.NewInstalled(testCategories(), testInventory(), meta, tui.NewKeyMap("vim"))

	view := model.View()
	assert.Contains(t, view, "Version: 2.1")
	assert.Contains(t, view, "From: loretta_v2.zip")
	assert.Contains(t, view, "Notes: night version")
	assert.Contains(t, view, "1 hour ago")

	newModel, _ := model.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Contains(t, newModel.View(), "Metadata unreadable: bad yaml")
}

func TestInstalled_MetadataSkippedForFiles(t *testing.T) {
	called := false
	meta := func(string) (*domain.ModMetadata, error) {
		called = true
		return nil, nil
	}
	model := views.NewInstalled(testCategories(), testInventory(), meta, tui.NewKeyMap("vim")).ShowCategory("bike-paints")

	model.View()
	assert.False(t, called)
}
