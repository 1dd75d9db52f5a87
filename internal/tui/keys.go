package tui

import (
	"mxbmm/internal/tui/views"

	tea "github.com/charmbracelet/bubbletea"
)

var _ views.Keys = (*KeyMap)(nil)

// KeyMap defines keybindings for the TUI
type KeyMap struct {
	mode string
}

// NewKeyMap creates a new keymap for the given mode
func NewKeyMap(mode string) *KeyMap {
	if mode == "" {
		mode = "vim"
	}
	return &KeyMap{mode: mode}
}

// Mode returns the current keybinding mode
func (k *KeyMap) Mode() string {
	return k.mode
}

// IsUp returns true if the key is an "up" navigation key
func (k *KeyMap) IsUp(msg tea.KeyMsg) bool {
	if msg.Type == tea.KeyUp {
		return true
	}
	if k.mode == "vim" && msg.String() == "k" {
		return true
	}
	return false
}

// IsDown returns true if the key is a "down" navigation key
func (k *KeyMap) IsDown(msg tea.KeyMsg) bool {
	if msg.Type == tea.KeyDown {
		return true
	}
	if k.mode == "vim" && msg.String() == "j" {
		return true
	}
	return false
}

// IsLeft returns true if the key is a "left" navigation key
func (k *KeyMap) IsLeft(msg tea.KeyMsg) bool {
	if msg.Type == tea.KeyLeft {
		return true
	}
	if k.mode == "vim" && msg.String() == "h" {
		return true
	}
	return false
}

// IsRight returns true if the key is a "right" navigation key
func (k *KeyMap) IsRight(msg tea.KeyMsg) bool {
	if msg.Type == tea.KeyRight {
		return true
	}
	if k.mode == "vim" && msg.String() == "l" {
		return true
	}
	return false
}

// IsCancel returns true if the key is a cancel/back key
func (k *KeyMap) IsCancel(msg tea.KeyMsg) bool {
	return msg.Type == tea.KeyEsc
}

// IsQuit returns true if the key is a quit key
func (k *KeyMap) IsQuit(msg tea.KeyMsg) bool {
	return msg.String() == "q" || msg.Type == tea.KeyCtrlC
}

// IsRefresh returns true if the key should rescan the mods root
func (k *KeyMap) IsRefresh(msg tea.KeyMsg) bool {
	return msg.String() == "r" || msg.Type == tea.KeyF5
}

// IsOpen returns true if the key should open a file for install
func (k *KeyMap) IsOpen(msg tea.KeyMsg) bool {
	return msg.String() == "o"
}

// IsYes returns true if the key answers a confirmation prompt
func (k *KeyMap) IsYes(msg tea.KeyMsg) bool {
	return msg.String() == "y" || msg.String() == "Y"
}

// IsHelp returns true if the key should show help
func (k *KeyMap) IsHelp(msg tea.KeyMsg) bool {
	return msg.String() == "?"
}

// IsDelete returns true if the key is a delete key
func (k *KeyMap) IsDelete(msg tea.KeyMsg) bool {
	return msg.String() == "d" || msg.Type == tea.KeyDelete
}

// IsHome returns true if the key should go to first item
func (k *KeyMap) IsHome(msg tea.KeyMsg) bool {
	if msg.Type == tea.KeyHome {
		return true
	}
	if k.mode == "vim" && msg.String() == "g" {
		return true
	}
	return false
}

// IsEnd returns true if the key should go to last item
func (k *KeyMap) IsEnd(msg tea.KeyMsg) bool {
	if msg.Type == tea.KeyEnd {
		return true
	}
	if k.mode == "vim" && msg.String() == "G" {
		return true
	}
	return false
}

// NavigationHelp returns help text for navigation keys
func (k *KeyMap) NavigationHelp() string {
	if k.mode == "vim" {
		return "j/k: navigate  h/l: category"
	}
	return "↑/↓: navigate  ←/→: category"
}

// FullHelp returns complete help text
func (k *KeyMap) FullHelp() string {
	if k.mode == "vim" {
		return `Navigation:
  j/k     Move down/up
  h/l     Previous/next category
  g/G     Go to first/last item

Actions:
  o       Open a mod file to install
  enter   Confirm install
  esc     Cancel
  d       Uninstall selected mod
  r       Refresh
  ?       Help
  q       Quit`
	}

	return `Navigation:
  ↑/↓     Move up/down
  ←/→     Previous/next category
  Home    Go to first item
  End     Go to last item

Actions:
  o       Open a mod file to install
  Enter   Confirm install
  Esc     Cancel
  Delete  Uninstall selected mod
  F5      Refresh
  ?       Help
  q       Quit`
}
