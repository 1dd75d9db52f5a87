package tui

import (
	"context"
	"fmt"

	"mxbmm/internal/core"
	"mxbmm/internal/domain"
	"mxbmm/internal/tui/views"
	"mxbmm/internal/watcher"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ViewType represents different screens in the TUI
type ViewType int

const (
	ViewInstalled ViewType = iota
	ViewOpen
	ViewPending
)

// Engine is the part of core.Engine the TUI drives
type Engine interface {
	Root() string
	Registry() *domain.Registry
	Inventory() *domain.Inventory
	Refresh(ctx context.Context) (*domain.Inventory, error)
	Drop(path string) (domain.PendingInstall, error)
	UpdatePending(p domain.PendingInstall) (domain.PendingInstall, error)
	Confirm(ctx context.Context) (domain.InstalledMod, error)
	Cancel()
	Uninstall(ctx context.Context, mod domain.InstalledMod) (bool, error)
}

// Watcher is the part of watcher.Coordinator the TUI drives
type Watcher interface {
	Refresh(ctx context.Context) (*domain.Inventory, error)
	Changes() <-chan watcher.Update
	State() watcher.State
}

var (
	_ Engine  = (*core.Engine)(nil)
	_ Watcher = (*watcher.Coordinator)(nil)
)

// ChangeMsg carries a rescan result
type ChangeMsg struct {
	Update watcher.Update
}

// DroppedMsg is the result of classifying an opened file
type DroppedMsg struct {
	Pending domain.PendingInstall
	Err     error
}

// InstalledMsg is the result of an install
type InstalledMsg struct {
	Mod domain.InstalledMod
	Err error
}

// UninstalledMsg is the result of an uninstall
type UninstalledMsg struct {
	Mod     domain.InstalledMod
	Removed bool
	Err     error
}

// ErrorMsg is sent when an error occurs
type ErrorMsg struct {
	Err error
}

type statusKind int

const (
	statusInfo statusKind = iota
	statusSuccess
	statusError
)

// App is the main TUI application model
type App struct {
	ctx         context.Context
	engine      Engine
	watch       Watcher
	keys        *KeyMap
	currentView ViewType
	width       int
	height      int

	status     string
	statusKind statusKind
	busy       bool
	showHelp   bool
	confirm    *domain.InstalledMod

	installed views.Installed
	open      views.Open
	pending   views.Pending
}

// NewApp creates a new TUI application. watch may be nil, in which case
// refreshes go straight to the engine.
func NewApp(ctx context.Context, engine Engine, watch Watcher, keys *KeyMap) App {
	if keys == nil {
		keys = NewKeyMap("")
	}
	return App{
		ctx:         ctx,
		engine:      engine,
		watch:       watch,
		keys:        keys,
		currentView: ViewInstalled,
		width:       80,
		height:      24,
		installed:   views.NewInstalled(engine.Registry().All(), engine.Inventory(), core.ReadMetadata, keys),
	}
}

// CurrentView returns the current view type
func (a App) CurrentView() ViewType {
	return a.currentView
}

// Status returns the status line text
func (a App) Status() string {
	return a.status
}

// Installed returns the installed mods view
func (a App) Installed() views.Installed {
	return a.installed
}

// Init implements tea.Model
func (a App) Init() tea.Cmd {
	if a.watch == nil {
		return a.refresh(false)
	}
	return tea.Batch(a.listen(), a.refresh(false))
}

// listen waits for the next rescan published by the watcher
func (a App) listen() tea.Cmd {
	if a.watch == nil {
		return nil
	}
	ch := a.watch.Changes()
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return nil
		}
		return ChangeMsg{Update: u}
	}
}

// refresh rescans the mods root. Without a watcher the result comes back
// directly; manual marks a user-requested refresh.
func (a App) refresh(manual bool) tea.Cmd {
	ctx, engine, watch := a.ctx, a.engine, a.watch
	return func() tea.Msg {
		if watch != nil {
			// Delivered through Changes
			watch.Refresh(ctx)
			return nil
		}
		inv, err := engine.Refresh(ctx)
		return ChangeMsg{Update: watcher.Update{Inventory: inv, Err: err, Manual: manual}}
	}
}

// Update implements tea.Model
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a.updateCurrentView(msg)

	case ChangeMsg:
		return a.handleChange(msg)

	case views.OpenFileMsg:
		engine := a.engine
		a.busy = true
		return a, func() tea.Msg {
			p, err := engine.Drop(msg.Path)
			return DroppedMsg{Pending: p, Err: err}
		}

	case DroppedMsg:
		a.busy = false
		if msg.Err != nil {
			a.setStatus(statusError, domain.UserMessage(msg.Err))
			return a, nil
		}
		a.pending = views.NewPending(msg.Pending, a.engine.Registry(), a.keys)
		a.currentView = ViewPending
		a.setStatus(statusInfo, fmt.Sprintf("Detected %s, confirm the details", msg.Pending.Kind))
		return a, nil

	case views.InstallMsg:
		return a.handleInstall(msg)

	case InstalledMsg:
		a.busy = false
		if msg.Err != nil {
			// The pending install is kept so the user can fix the details
			a.setStatus(statusError, domain.UserMessage(msg.Err))
			return a, nil
		}
		a.currentView = ViewInstalled
		a.installed = a.installed.ShowCategory(msg.Mod.Category)
		a.setStatus(statusSuccess, fmt.Sprintf("Installed %s", msg.Mod.Name)+a.refreshHint())
		return a, a.refreshIfUnwatched()

	case views.CancelInstallMsg:
		a.engine.Cancel()
		a.currentView = ViewInstalled
		a.setStatus(statusInfo, "Install cancelled")
		return a, nil

	case views.UninstallModMsg:
		mod := msg.Mod
		a.confirm = &mod
		a.setStatus(statusInfo, fmt.Sprintf("Uninstall %s? (y/n)", mod.Name))
		return a, nil

	case UninstalledMsg:
		a.busy = false
		switch {
		case msg.Err != nil:
			a.setStatus(statusError, domain.UserMessage(msg.Err))
		case !msg.Removed:
			a.setStatus(statusInfo, fmt.Sprintf("%s was already gone", msg.Mod.Name))
		default:
			a.setStatus(statusSuccess, fmt.Sprintf("Uninstalled %s", msg.Mod.Name)+a.refreshHint())
		}
		return a, a.refreshIfUnwatched()

	case ErrorMsg:
		a.setStatus(statusError, domain.UserMessage(msg.Err))
		return a, nil
	}

	// Delegate to current view's model
	return a.updateCurrentView(msg)
}

func (a App) handleChange(msg ChangeMsg) (tea.Model, tea.Cmd) {
	u := msg.Update
	if u.Err != nil {
		a.setStatus(statusError, domain.UserMessage(u.Err))
	} else if u.Inventory != nil {
		a.installed = a.installed.WithInventory(u.Inventory)
		if u.Manual {
			a.setStatus(statusInfo, fmt.Sprintf("Refreshed, %d mods installed", u.Inventory.Total()))
		}
	}
	return a, a.listen()
}

func (a App) handleInstall(msg views.InstallMsg) (tea.Model, tea.Cmd) {
	if a.busy {
		return a, nil
	}
	if _, err := a.engine.UpdatePending(msg.Pending); err != nil {
		a.setStatus(statusError, domain.UserMessage(err))
		return a, nil
	}

	a.busy = true
	a.setStatus(statusInfo, fmt.Sprintf("Installing %s...", msg.Pending.Name))
	ctx, engine := a.ctx, a.engine
	return a, func() tea.Msg {
		mod, err := engine.Confirm(ctx)
		return InstalledMsg{Mod: mod, Err: err}
	}
}

func (a App) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return a, tea.Quit
	}

	if a.confirm != nil {
		mod := *a.confirm
		a.confirm = nil
		if !a.keys.IsYes(msg) {
			a.setStatus(statusInfo, "Uninstall cancelled")
			return a, nil
		}
		a.busy = true
		a.setStatus(statusInfo, fmt.Sprintf("Uninstalling %s...", mod.Name))
		ctx, engine := a.ctx, a.engine
		return a, func() tea.Msg {
			removed, err := engine.Uninstall(ctx, mod)
			return UninstalledMsg{Mod: mod, Removed: removed, Err: err}
		}
	}

	// Text entry views get every other key
	if a.currentView != ViewInstalled {
		return a.updateCurrentView(msg)
	}

	switch {
	case a.keys.IsQuit(msg):
		return a, tea.Quit

	case a.keys.IsHelp(msg):
		a.showHelp = !a.showHelp
		return a, nil

	case a.keys.IsRefresh(msg):
		a.setStatus(statusInfo, "Refreshing...")
		return a, a.refresh(true)

	case a.keys.IsOpen(msg):
		a.open = views.NewOpen()
		a.currentView = ViewOpen
		a.status = ""
		return a, a.open.Init()
	}

	return a.updateCurrentView(msg)
}

func (a App) updateCurrentView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		model tea.Model
		cmd   tea.Cmd
	)

	switch a.currentView {
	case ViewInstalled:
		model, cmd = a.installed.Update(msg)
		a.installed = model.(views.Installed)
	case ViewOpen:
		model, cmd = a.open.Update(msg)
		a.open = model.(views.Open)
	case ViewPending:
		model, cmd = a.pending.Update(msg)
		a.pending = model.(views.Pending)
	}

	return a, cmd
}

// refreshHint tells the user to refresh when changes will not be picked up
func (a App) refreshHint() string {
	if a.watch != nil && a.watch.State() != watcher.Watching {
		return ". Press r to refresh."
	}
	return ""
}

func (a App) refreshIfUnwatched() tea.Cmd {
	if a.watch == nil {
		return a.refresh(false)
	}
	return nil
}

func (a *App) setStatus(kind statusKind, text string) {
	a.statusKind = kind
	a.status = text
}

// View implements tea.Model
func (a App) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205")).
		MarginBottom(1)

	infoStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	header := titleStyle.Render("mxbmm - MX Bikes Mod Manager")
	header += "\n" + infoStyle.Render(a.engine.Root()) + "  " + a.renderWatchState()

	content := a.renderCurrentView()
	if a.showHelp {
		content = a.keys.FullHelp()
	}

	footerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		MarginTop(1)
	footer := footerStyle.Render("o: open  r: refresh  q: quit  ?: help")
	if a.currentView != ViewInstalled {
		footer = footerStyle.Render("ctrl+c: quit")
	}

	return fmt.Sprintf("%s\n\n%s\n%s\n%s", header, content, a.renderStatus(), footer)
}

func (a App) renderCurrentView() string {
	switch a.currentView {
	case ViewOpen:
		return a.open.View()
	case ViewPending:
		return a.pending.View()
	default:
		return a.installed.View()
	}
}

func (a App) renderWatchState() string {
	if a.watch == nil {
		return ""
	}

	switch a.watch.State() {
	case watcher.Watching:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("● watching")
	case watcher.Degraded:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Render("○ not watching, press r to refresh")
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("○ idle")
	}
}

func (a App) renderStatus() string {
	if a.status == "" {
		return ""
	}

	color := lipgloss.Color("241")
	switch a.statusKind {
	case statusSuccess:
		color = lipgloss.Color("42")
	case statusError:
		color = lipgloss.Color("196")
	}
	return lipgloss.NewStyle().Foreground(color).MarginTop(1).Render(a.status)
}

// Run starts the TUI application
func Run(ctx context.Context, engine Engine, watch Watcher, keys *KeyMap) error {
	app := NewApp(ctx, engine, watch, keys)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
