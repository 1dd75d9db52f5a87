package views

import (
	"net/url"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// OpenFileMsg is sent when the user submits a file to install
type OpenFileMsg struct {
	Path string
}

// Open asks for the path of a mod file. Dropping a file onto most terminals
// pastes its path, so this doubles as the drop target.
type Open struct {
	input  textinput.Model
	width  int
	height int
}

// NewOpen creates a new open-file view with the input focused
func NewOpen() Open {
	ti := textinput.New()
	ti.Placeholder = "Drop or paste a .zip, .pkz or .pnt file..."
	ti.CharLimit = 4096
	ti.Width = 60
	ti.Focus()

	return Open{
		input:  ti,
		width:  80,
		height: 24,
	}
}

// Value returns the cleaned path typed so far
func (o Open) Value() string {
	return CleanDroppedPath(o.input.Value())
}

// Init implements tea.Model
func (o Open) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model
func (o Open) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEsc:
			return o, func() tea.Msg { return CancelInstallMsg{} }

		case tea.KeyEnter:
			path := o.Value()
			if path == "" {
				return o, nil
			}
			return o, func() tea.Msg { return OpenFileMsg{Path: path} }
		}

	case tea.WindowSizeMsg:
		o.width = msg.Width
		o.height = msg.Height
		return o, nil
	}

	var cmd tea.Cmd
	o.input, cmd = o.input.Update(msg)
	return o, cmd
}

// View implements tea.Model
func (o Open) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("69")).
		MarginBottom(1)

	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		MarginTop(1)

	output := titleStyle.Render("Open Mod File") + "\n"
	output += o.input.View() + "\n"
	output += helpStyle.Render("enter: continue  esc: cancel")
	return output
}

// CleanDroppedPath undoes the quoting terminals and file managers apply to
// dropped paths: surrounding quotes, backslash-escaped spaces and file:// URIs.
func CleanDroppedPath(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}

	if strings.HasPrefix(s, "file://") {
		if u, err := url.Parse(s); err == nil && u.Path != "" {
			return u.Path
		}
	}

	if strings.Contains(s, `\ `) {
		s = strings.ReplaceAll(s, `\ `, " ")
	}
	return s
}
