package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"mxbmm/internal/domain"
	"mxbmm/internal/logging"
)

// DefaultInstallTimeout bounds a single install against pathological archives
const DefaultInstallTimeout = 2 * time.Minute

// Journal records install and uninstall attempts. It is history only and
// is never consulted to decide what is installed.
type Journal interface {
	Record(ctx context.Context, entry domain.JournalEntry) error
}

// EngineConfig holds configuration for the engine
type EngineConfig struct {
	Root              string           // Validated, absolute mods root
	Registry          *domain.Registry // Defaults to domain.DefaultRegistry()
	DefaultCategory   string           // Initial "last used" category
	InstallTimeout    time.Duration    // Zero uses DefaultInstallTimeout, negative disables
	FlattenSingleRoot bool
	Journal           Journal // Optional
}

// Engine is the main orchestrator for install, uninstall and scan operations.
//
// Install, uninstall and scan are serialized through a single lock. The
// inventory snapshot is swapped atomically, so readers always see either the
// previous or the new inventory.
type Engine struct {
	root     string
	registry *domain.Registry

	planner     *Planner
	installer   *Installer
	scanner     *Scanner
	uninstaller *Uninstaller
	journal     Journal
	timeout     time.Duration
	flatten     bool

	mu         sync.Mutex // single writer: install, uninstall, scan
	generation uint64     // guarded by mu
	inventory  atomic.Pointer[domain.Inventory]

	stateMu      sync.Mutex
	pending      *domain.PendingInstall
	lastCategory string
}

// NewEngine creates a new engine rooted at cfg.Root
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Root == "" || !filepath.IsAbs(cfg.Root) {
		return nil, fmt.Errorf("%w: mods root must be an absolute path, got %q", domain.ErrInvalidConfig, cfg.Root)
	}
	registry := cfg.Registry
	if registry == nil {
		registry = domain.DefaultRegistry()
	}
	if cfg.DefaultCategory != "" {
		if _, ok := registry.Get(cfg.DefaultCategory); !ok {
			return nil, fmt.Errorf("%w: unknown default category %q", domain.ErrInvalidConfig, cfg.DefaultCategory)
		}
	}

	timeout := cfg.InstallTimeout
	if timeout == 0 {
		timeout = DefaultInstallTimeout
	}

	return &Engine{
		root:         filepath.Clean(cfg.Root),
		registry:     registry,
		planner:      NewPlanner(registry),
		installer:    NewInstaller(),
		scanner:      NewScanner(registry),
		uninstaller:  NewUninstaller(registry),
		journal:      cfg.Journal,
		timeout:      timeout,
		flatten:      cfg.FlattenSingleRoot,
		lastCategory: cfg.DefaultCategory,
	}, nil
}

// Root returns the mods root
func (e *Engine) Root() string {
	return e.root
}

// Registry returns the category registry
func (e *Engine) Registry() *domain.Registry {
	return e.registry
}

// Drop classifies a dropped file and makes it the pending install,
// replacing any previous one.
func (e *Engine) Drop(path string) (domain.PendingInstall, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return domain.PendingInstall{}, domain.NewClassificationError(domain.ErrIoFailure, path, err)
	}

	c, err := Classify(abs, e.registry)
	if err != nil {
		return domain.PendingInstall{}, err
	}

	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	pending := domain.PendingInstall{
		SourcePath: abs,
		Kind:       c.Kind,
		Category:   e.defaultCategory(c),
		Name:       c.SuggestedName,
		Candidates: c.Candidates,
	}
	if e.pending != nil {
		logging.Get("engine").Debug("pending install replaced", "previous", e.pending.SourcePath)
	}
	e.pending = &pending

	return pending, nil
}

// defaultCategory picks the classifier's best guess unless the last used
// category is equally plausible. Caller holds stateMu.
func (e *Engine) defaultCategory(c Classification) string {
	if e.lastCategory != "" {
		preferred := c.Candidates[:c.Preferred]
		if len(preferred) == 0 || slices.Contains(preferred, e.lastCategory) {
			return e.lastCategory
		}
	}
	if len(c.Candidates) > 0 {
		return c.Candidates[0]
	}
	return ""
}

// Pending returns the current pending install, if any
func (e *Engine) Pending() (domain.PendingInstall, bool) {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	if e.pending == nil {
		return domain.PendingInstall{}, false
	}
	return *e.pending, true
}

// UpdatePending applies the user-editable fields (category, name, version,
// notes) of p to the pending install.
func (e *Engine) UpdatePending(p domain.PendingInstall) (domain.PendingInstall, error) {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	if e.pending == nil {
		return domain.PendingInstall{}, domain.ErrNoPendingInstall
	}
	e.pending.Category = p.Category
	e.pending.Name = p.Name
	e.pending.Version = p.Version
	e.pending.Notes = p.Notes
	return *e.pending, nil
}

// Cancel discards the pending install
func (e *Engine) Cancel() {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	e.pending = nil
}

// Confirm installs the pending install. On success the pending install is
// consumed; on failure it is kept so the user can fix the name or category.
func (e *Engine) Confirm(ctx context.Context) (domain.InstalledMod, error) {
	pending, ok := e.Pending()
	if !ok {
		return domain.InstalledMod{}, domain.ErrNoPendingInstall
	}

	mod, err := e.Install(ctx, pending)
	if err != nil {
		return domain.InstalledMod{}, err
	}

	e.stateMu.Lock()
	if e.pending != nil && e.pending.SourcePath == pending.SourcePath {
		e.pending = nil
	}
	e.stateMu.Unlock()

	return mod, nil
}

// Install plans and executes a single install. It does not update the
// inventory; call Refresh or rely on the watcher.
func (e *Engine) Install(ctx context.Context, pending domain.PendingInstall) (domain.InstalledMod, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	plan, err := e.planner.Plan(pending, e.root)
	if err != nil {
		e.record(ctx, installEntry(pending, "", err))
		return domain.InstalledMod{}, err
	}
	plan.FlattenSingleRoot = e.flatten

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	mod, err := e.installer.Execute(ctx, plan)
	e.record(context.WithoutCancel(ctx), installEntry(pending, plan.Destination, err))
	if err != nil {
		return domain.InstalledMod{}, err
	}

	e.stateMu.Lock()
	e.lastCategory = plan.Category.ID
	e.stateMu.Unlock()

	return mod, nil
}

// Uninstall removes an installed mod. It reports whether anything was
// removed; an entry that is already gone is not an error.
func (e *Engine) Uninstall(ctx context.Context, mod domain.InstalledMod) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	removed, err := e.uninstaller.Uninstall(mod, e.root)

	entry := domain.JournalEntry{
		Op:       domain.JournalUninstall,
		Category: mod.Category,
		Name:     mod.Name,
		Path:     mod.Path,
		Success:  err == nil,
	}
	if err != nil {
		entry.Error = err.Error()
	} else if !removed {
		entry.Error = domain.ErrNotFound.Error()
	}
	e.record(ctx, entry)

	return removed, err
}

// Find looks up an installed mod by category and name on disk, without
// relying on the cached inventory. A missing entry wraps domain.ErrNotFound.
func (e *Engine) Find(category, name string) (domain.InstalledMod, error) {
	cat, ok := e.registry.Get(category)
	if !ok {
		return domain.InstalledMod{}, domain.NewUninstallError(domain.ErrUnknownCategory, category, nil)
	}
	if name == "" {
		return domain.InstalledMod{}, domain.NewUninstallError(domain.ErrEmptyName, "", nil)
	}
	if err := ValidateName(name, cat); err != nil {
		return domain.InstalledMod{}, domain.NewUninstallError(domain.ErrUnsafeName, name, err)
	}

	path := filepath.Join(cat.Dir(e.root), name)
	info, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.InstalledMod{}, domain.NewUninstallError(domain.ErrNotFound, path, nil)
	}
	if err != nil {
		return domain.InstalledMod{}, domain.NewUninstallError(domain.ErrIoFailure, path, err)
	}
	return domain.InstalledMod{Category: cat.ID, Name: name, Path: path, IsDir: info.IsDir()}, nil
}

// Refresh rescans the mods root and atomically replaces the inventory.
// It is always accepted, whatever the watcher state. Scans run one at a
// time, and each snapshot gets the next generation number.
func (e *Engine) Refresh(ctx context.Context) (*domain.Inventory, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	inv, err := e.scanner.Scan(ctx, e.root)
	if err != nil {
		logging.Get("engine").Error("refresh failed", "error", err)
		return nil, err
	}
	e.generation++
	inv.Generation = e.generation
	e.inventory.Store(inv)
	return inv, nil
}

// Inventory returns the latest inventory snapshot (nil before the first Refresh)
func (e *Engine) Inventory() *domain.Inventory {
	return e.inventory.Load()
}

func (e *Engine) record(ctx context.Context, entry domain.JournalEntry) {
	if e.journal == nil {
		return
	}
	entry.Time = time.Now()
	if err := e.journal.Record(ctx, entry); err != nil {
		logging.Get("journal").Warn("recording history failed", "op", entry.Op, "name", entry.Name, "error", err)
	}
}

func installEntry(p domain.PendingInstall, dest string, err error) domain.JournalEntry {
	entry := domain.JournalEntry{
		Op:       domain.JournalInstall,
		Category: p.Category,
		Name:     p.Name,
		Path:     dest,
		Version:  p.Version,
		Notes:    p.Notes,
		Success:  err == nil,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	return entry
}
