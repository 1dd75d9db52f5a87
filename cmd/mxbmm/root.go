package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"mxbmm/internal/core"
	"mxbmm/internal/domain"
	"mxbmm/internal/logging"
	"mxbmm/internal/storage/config"
	"mxbmm/internal/storage/db"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// ErrCancelled is returned when the user cancels an operation (e.g. prompt declined).
// When returned from a command, Execute exits with code 2.
var ErrCancelled = errors.New("cancelled")

var (
	version = "0.3.0"

	// Global flags
	configDir  string
	dataDir    string
	modsRoot   string
	verbose    bool
	jsonOutput bool
	noColor    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mxbmm",
	Short: "MX Bikes Mod Manager - install and remove MX Bikes mods",
	Long: `mxbmm installs MX Bikes mods (.zip, .pkz and .pnt files) into the right
folder of the game's mods directory, lists what is installed and removes mods.

Run without a subcommand on a terminal to start the interactive UI.
Run 'mxbmm --help' for available commands.`,
	Version:       version,
	SilenceUsage:  true, // Runtime errors should not print usage
	SilenceErrors: true, // We handle error output in Execute()
	RunE:          runRoot,
}

func init() {
	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "config directory (default: ~/.config/mxbmm)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "data directory for the history journal (default: ~/.local/share/mxbmm)")
	rootCmd.PersistentFlags().StringVarP(&modsRoot, "mods-root", "m", "", "MX Bikes mods directory (default: $"+config.EnvModsRoot+", config, then Documents/PiBoSo/MX Bikes/mods)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format (install, uninstall, list, categories, history)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

func runRoot(cmd *cobra.Command, args []string) error {
	if isTerminal(os.Stdin) && isTerminal(os.Stdout) {
		return runTUI(cmd, args)
	}
	return cmd.Help()
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// colorEnabled returns true if colored output should be used (respects --no-color and NO_COLOR env).
// NO_COLOR: if set (any value), color is disabled per https://no-color.org
func colorEnabled() bool {
	if noColor {
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isTerminal(os.Stdout)
}

const (
	ansiReset  = "\033[0m"
	ansiGreen  = "\033[32m"
	ansiRed    = "\033[31m"
	ansiYellow = "\033[33m"
)

// colorGreen returns s with green ANSI when color is enabled, otherwise s.
func colorGreen(s string) string {
	if !colorEnabled() {
		return s
	}
	return ansiGreen + s + ansiReset
}

// colorRed returns s with red ANSI when color is enabled, otherwise s.
func colorRed(s string) string {
	if !colorEnabled() {
		return s
	}
	return ansiRed + s + ansiReset
}

// colorYellow returns s with yellow ANSI when color is enabled, otherwise s.
func colorYellow(s string) string {
	if !colorEnabled() {
		return s
	}
	return ansiYellow + s + ansiReset
}

// Execute runs the root command. Exit codes: 0 = success, 1 = error, 2 = user cancelled.
// When --json is set and an error occurs, prints {"error":"..."} to stdout before exiting.
// Cancellation (ErrCancelled) exits with code 2 without printing JSON, since it is a user action, not an error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		if errors.Is(err, ErrCancelled) {
			os.Exit(2)
		}
		if jsonOutput {
			fmt.Printf(`{"error":%q}`+"\n", err.Error())
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", domain.UserMessage(err))
		}
		os.Exit(1)
	}
}

// getConfigDir returns --config or the XDG default
func getConfigDir() string {
	if configDir != "" {
		return configDir
	}
	return config.DefaultDir()
}

// getDataDir returns --data or the XDG default
func getDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	return config.DataDir()
}

// envOptions adjusts how initEnv sets things up
type envOptions struct {
	// logFile sends logs to the log file instead of stderr (TUI mode)
	logFile bool
	// flatten forces single-root flattening on top of the config
	flatten bool
}

// env bundles everything a command needs to work on the mods root
type env struct {
	cfg     *config.Config
	root    string
	source  config.RootSource
	engine  *core.Engine
	journal *db.DB
}

// Close releases the journal and the log file
func (e *env) Close() error {
	var errs []error
	if e.journal != nil {
		errs = append(errs, e.journal.Close())
	}
	errs = append(errs, logging.Close())
	return errors.Join(errs...)
}

// initEnv loads the config, sets up logging, resolves the mods root and
// creates the engine
func initEnv(opts envOptions) (*env, error) {
	cfg, err := config.Load(getConfigDir())
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	if err := logging.Init(logging.Config{Level: level, Console: !opts.logFile}); err != nil {
		return nil, err
	}

	root, source, err := config.ResolveModsRoot(modsRoot, cfg)
	if err != nil {
		return nil, err
	}
	root, err = config.ValidateModsRoot(root)
	if err != nil {
		return nil, fmt.Errorf("mods root from %s: %w", source, err)
	}

	e := &env{cfg: cfg, root: root, source: source}

	var journal core.Journal
	if cfg.Journal {
		database, err := db.New(filepath.Join(getDataDir(), db.FileName))
		if err != nil {
			// History is optional; installs work without it
			logging.Get("journal").Warn("history journal unavailable", "error", err)
		} else {
			e.journal = database
			journal = database
		}
	}

	engine, err := core.NewEngine(core.EngineConfig{
		Root:              root,
		DefaultCategory:   cfg.DefaultCategory,
		InstallTimeout:    cfg.InstallTimeout,
		FlattenSingleRoot: cfg.FlattenSingleRoot || opts.flatten,
		Journal:           journal,
	})
	if err != nil {
		e.Close()
		return nil, err
	}
	e.engine = engine

	if verbose {
		logging.Get("cli").Debug("mods root resolved", "root", root, "source", source)
	}

	return e, nil
}
