package views

import (
	"fmt"
	"path/filepath"

	"mxbmm/internal/domain"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// InstallMsg is sent when the user confirms the pending install
type InstallMsg struct {
	Pending domain.PendingInstall
}

// CancelInstallMsg is sent when the user abandons an install
type CancelInstallMsg struct{}

// Form fields, in focus order
const (
	fieldCategory = iota
	fieldName
	fieldVersion
	fieldNotes
	fieldCount
)

// Pending is the confirm-details form for a dropped file
type Pending struct {
	pending    domain.PendingInstall
	categories []domain.Category
	category   int
	inputs     []textinput.Model // name, version, notes
	focus      int
	keys       Keys
	width      int
	height     int
}

// NewPending creates the form for p. The category picker follows p's
// candidate order, then any registry categories missing from it.
func NewPending(p domain.PendingInstall, registry *domain.Registry, keys Keys) Pending {
	var categories []domain.Category
	seen := make(map[string]bool)
	for _, id := range p.Candidates {
		if c, ok := registry.Get(id); ok && !seen[id] {
			categories = append(categories, c)
			seen[id] = true
		}
	}
	for _, c := range registry.All() {
		if !seen[c.ID] {
			categories = append(categories, c)
		}
	}

	category := 0
	for i, c := range categories {
		if c.ID == p.Category {
			category = i
			break
		}
	}

	name := textinput.New()
	name.Placeholder = "Install name"
	name.CharLimit = 255
	name.Width = 40
	name.SetValue(p.Name)

	version := textinput.New()
	version.Placeholder = "optional"
	version.CharLimit = 64
	version.Width = 20
	version.SetValue(p.Version)

	notes := textinput.New()
	notes.Placeholder = "optional"
	notes.CharLimit = 500
	notes.Width = 50
	notes.SetValue(p.Notes)

	return Pending{
		pending:    p,
		categories: categories,
		category:   category,
		inputs:     []textinput.Model{name, version, notes},
		focus:      fieldCategory,
		keys:       keys,
		width:      80,
		height:     24,
	}
}

// Value returns the pending install with the form's current values
func (p Pending) Value() domain.PendingInstall {
	v := p.pending
	if len(p.categories) > 0 {
		v.Category = p.categories[p.category].ID
	}
	v.Name = p.inputs[0].Value()
	v.Version = p.inputs[1].Value()
	v.Notes = p.inputs[2].Value()
	return v
}

// Focus returns the focused field index
func (p Pending) Focus() int {
	return p.focus
}

// Init implements tea.Model
func (p Pending) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (p Pending) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return p.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		p.width = msg.Width
		p.height = msg.Height
		return p, nil
	}

	return p, nil
}

func (p Pending) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if p.keys.IsCancel(msg) {
		return p, func() tea.Msg { return CancelInstallMsg{} }
	}

	switch msg.Type {
	case tea.KeyEnter:
		v := p.Value()
		return p, func() tea.Msg { return InstallMsg{Pending: v} }

	case tea.KeyTab, tea.KeyDown:
		return p.setFocus((p.focus + 1) % fieldCount)

	case tea.KeyShiftTab, tea.KeyUp:
		return p.setFocus((p.focus - 1 + fieldCount) % fieldCount)
	}

	if p.focus == fieldCategory {
		if len(p.categories) == 0 {
			return p, nil
		}
		switch {
		case p.keys.IsLeft(msg):
			p.category = (p.category - 1 + len(p.categories)) % len(p.categories)
		case p.keys.IsRight(msg), msg.String() == " ":
			p.category = (p.category + 1) % len(p.categories)
		}
		return p, nil
	}

	var cmd tea.Cmd
	i := p.focus - fieldName
	p.inputs[i], cmd = p.inputs[i].Update(msg)
	return p, cmd
}

func (p Pending) setFocus(focus int) (tea.Model, tea.Cmd) {
	p.focus = focus
	var cmd tea.Cmd
	for i := range p.inputs {
		if i == focus-fieldName {
			cmd = p.inputs[i].Focus()
		} else {
			p.inputs[i].Blur()
		}
	}
	return p, cmd
}

// View implements tea.Model
func (p Pending) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("69")).
		MarginBottom(1)

	infoStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Width(10)

	focusedStyle := lipgloss.NewStyle().
		Width(10).
		Foreground(lipgloss.Color("205")).
		Bold(true)

	output := titleStyle.Render("Install Mod") + "\n"
	output += infoStyle.Render(fmt.Sprintf("%s (%s)", filepath.Base(p.pending.SourcePath), p.pending.Kind)) + "\n\n"

	label := func(field int, text string) string {
		if p.focus == field {
			return focusedStyle.Render("▸ " + text)
		}
		return labelStyle.Render("  " + text)
	}

	catText := "none"
	if len(p.categories) > 0 {
		c := p.categories[p.category]
		catText = fmt.Sprintf("‹ %s › %s", c.Label, infoStyle.Render(c.Subpath))
	}
	output += label(fieldCategory, "Category") + catText + "\n"
	output += label(fieldName, "Name") + p.inputs[0].View() + "\n"
	output += label(fieldVersion, "Version") + p.inputs[1].View() + "\n"
	output += label(fieldNotes, "Notes") + p.inputs[2].View() + "\n"

	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		MarginTop(1)
	output += helpStyle.Render("tab: next field  ←/→: category  enter: install  esc: cancel")

	return output
}
