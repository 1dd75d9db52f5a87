package views

import tea "github.com/charmbracelet/bubbletea"

// Keys resolves navigation keys for the configured keybinding mode
type Keys interface {
	IsUp(msg tea.KeyMsg) bool
	IsDown(msg tea.KeyMsg) bool
	IsLeft(msg tea.KeyMsg) bool
	IsRight(msg tea.KeyMsg) bool
	IsHome(msg tea.KeyMsg) bool
	IsEnd(msg tea.KeyMsg) bool
	IsDelete(msg tea.KeyMsg) bool
	IsCancel(msg tea.KeyMsg) bool
	NavigationHelp() string
}
