package views

import (
	"fmt"

	"mxbmm/internal/domain"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// UninstallModMsg is sent to uninstall a mod
type UninstallModMsg struct {
	Mod domain.InstalledMod
}

// MetadataFunc loads the advisory metadata stored with an installed mod.
// A nil result means there is none.
type MetadataFunc func(path string) (*domain.ModMetadata, error)

// Installed is the installed mods view, one category at a time
type Installed struct {
	categories []domain.Category
	inv        *domain.Inventory
	metadata   MetadataFunc
	keys       Keys
	category   int
	selected   int
	width      int
	height     int
}

// NewInstalled creates a new installed mods view
func NewInstalled(categories []domain.Category, inv *domain.Inventory, metadata MetadataFunc, keys Keys) Installed {
	return Installed{
		categories: categories,
		inv:        inv,
		metadata:   metadata,
		keys:       keys,
		width:      80,
		height:     24,
	}
}

// WithInventory swaps in a new snapshot, keeping the selection on the same
// mod when it still exists
func (m Installed) WithInventory(inv *domain.Inventory) Installed {
	var name string
	if mod := m.SelectedMod(); mod != nil {
		name = mod.Name
	}

	m.inv = inv
	m.selected = 0
	for i, mod := range m.Mods() {
		if mod.Name == name {
			m.selected = i
			break
		}
	}
	return m
}

// ShowCategory switches to the category with the given ID
func (m Installed) ShowCategory(id string) Installed {
	for i, c := range m.categories {
		if c.ID == id {
			if i != m.category {
				m.category = i
				m.selected = 0
			}
			break
		}
	}
	return m
}

// Category returns the category being shown
func (m Installed) Category() domain.Category {
	if len(m.categories) == 0 {
		return domain.Category{}
	}
	return m.categories[m.category]
}

// Mods returns the mods of the current category
func (m Installed) Mods() []domain.InstalledMod {
	return m.inv.Get(m.Category().ID)
}

// Selected returns the currently selected index
func (m Installed) Selected() int {
	return m.selected
}

// SelectedMod returns the currently selected mod
func (m Installed) SelectedMod() *domain.InstalledMod {
	mods := m.Mods()
	if len(mods) == 0 || m.selected >= len(mods) {
		return nil
	}
	return &mods[m.selected]
}

// Init implements tea.Model
func (m Installed) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m Installed) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	}

	return m, nil
}

func (m Installed) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case m.keys.IsLeft(msg):
		if len(m.categories) > 0 {
			m.category = (m.category - 1 + len(m.categories)) % len(m.categories)
			m.selected = 0
		}
		return m, nil

	case m.keys.IsRight(msg), msg.Type == tea.KeyTab:
		if len(m.categories) > 0 {
			m.category = (m.category + 1) % len(m.categories)
			m.selected = 0
		}
		return m, nil
	}

	mods := m.Mods()
	if len(mods) == 0 {
		return m, nil
	}

	switch {
	case m.keys.IsUp(msg):
		m.selected--
		if m.selected < 0 {
			m.selected = len(mods) - 1
		}

	case m.keys.IsDown(msg):
		m.selected++
		if m.selected >= len(mods) {
			m.selected = 0
		}

	case m.keys.IsHome(msg):
		m.selected = 0

	case m.keys.IsEnd(msg):
		m.selected = len(mods) - 1

	case m.keys.IsDelete(msg):
		mod := mods[m.selected]
		return m, func() tea.Msg {
			return UninstallModMsg{Mod: mod}
		}
	}

	return m, nil
}

// View implements tea.Model
func (m Installed) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("69")).
		MarginBottom(1)

	infoStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	itemStyle := lipgloss.NewStyle().
		PaddingLeft(2)

	selectedStyle := lipgloss.NewStyle().
		PaddingLeft(2).
		Foreground(lipgloss.Color("205")).
		Bold(true)

	detailStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		PaddingLeft(4)

	output := titleStyle.Render("Installed Mods") + "\n"

	if len(m.categories) == 0 {
		return output + itemStyle.Render("No categories configured.") + "\n"
	}

	cat := m.Category()
	mods := m.Mods()
	output += infoStyle.Render(fmt.Sprintf("‹ %s (%d) ›  %d/%d  %s",
		cat.Label, len(mods), m.category+1, len(m.categories), cat.Subpath)) + "\n"
	if m.inv != nil {
		output += infoStyle.Render(fmt.Sprintf("%d mods total, scanned %s",
			m.inv.Total(), humanize.Time(m.inv.ScannedAt))) + "\n"
	}
	output += "\n"

	if len(mods) == 0 {
		output += itemStyle.Render(fmt.Sprintf("No mods in %s.", cat.Label)) + "\n\n"
		output += infoStyle.Render("Press o to install a mod file") + "\n"
		return output
	}

	for i, mod := range mods {
		cursor := "  "
		style := itemStyle
		if i == m.selected {
			cursor = "▸ "
			style = selectedStyle
		}

		kind := "file"
		if mod.IsDir {
			kind = "dir"
		}
		output += style.Render(fmt.Sprintf("%s%s  [%s]", cursor, mod.Name, kind)) + "\n"

		if i == m.selected {
			output += detailStyle.Render(mod.Path) + "\n"
			output += m.renderMetadata(mod, detailStyle)
		}
	}

	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		MarginTop(1)
	output += helpStyle.Render(m.keys.NavigationHelp() + "  d: uninstall")

	return output
}

func (m Installed) renderMetadata(mod domain.InstalledMod, style lipgloss.Style) string {
	if m.metadata == nil || !mod.IsDir {
		return ""
	}

	meta, err := m.metadata(mod.Path)
	if err != nil {
		return style.Render(fmt.Sprintf("Metadata unreadable: %v", err)) + "\n"
	}
	if meta == nil {
		return ""
	}

	var out string
	if meta.Version != "" {
		out += style.Render("Version: "+meta.Version) + "\n"
	}
	if meta.Archive != "" {
		out += style.Render("From: "+meta.Archive) + "\n"
	}
	if !meta.InstalledAt.IsZero() {
		out += style.Render("Installed: "+humanize.Time(meta.InstalledAt)) + "\n"
	}
	if meta.Notes != "" {
		out += style.Render("Notes: "+meta.Notes) + "\n"
	}
	return out
}
