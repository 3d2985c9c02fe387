// Command voxpaste records speech while a hotkey is held, transcribes it
// and pastes the text into the focused application.
//
// Usage:
//
//	voxpaste [flags]                 run in the background (default)
//	voxpaste recent [-n 10]          print recent transcriptions
//	voxpaste devices                 list capture devices
//	voxpaste transcribe <file.wav>   transcribe a file and print the text
//	voxpaste doctor                  check hotkey, microphone, backend and paste
//	voxpaste test <file.wav>         headless session driven from stdin
//	voxpaste version
//
// Configuration is read from ~/.voxpaste/config.yaml, .env and the
// environment; flags override all of them.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"voxpaste/config"
	"voxpaste/log"
	"voxpaste/shutdown"
)

var version = "dev"

var (
	flagConfig  string
	flagLogPath string
	flagDevice  string
	flagSetup   bool
	flagVerbose bool
	flagBackend string
	flagModel   string
	flagHotkey  string
	flagHook    string
	flagUI      string
	flagLang    string
	flagNoBeep  bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "voxpaste",
	Short:         "Hold a hotkey, speak, and paste the transcription",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return setup(cmd)
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		log.Close()
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runSession(cmd.Context())
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run in the background (default)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runSession(cmd.Context())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	PersistentPreRunE: func(*cobra.Command, []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "voxpaste %s\n", version)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "config file (default ~/.voxpaste/config.yaml)")
	pf.StringVar(&flagLogPath, "logpath", "", "log directory (overrides VOXPASTE_LOG_PATH)")
	pf.StringVar(&flagDevice, "device", "", "capture device name (substring match)")
	pf.BoolVar(&flagSetup, "setup", false, "pick the capture device interactively")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
	pf.StringVar(&flagBackend, "backend", "", "transcription backend: auto|openai|groq|local|fake")
	pf.StringVar(&flagModel, "model", "", "model size (local) or name (hosted)")
	pf.StringVar(&flagHotkey, "hotkey", "", "hotkey combo, e.g. ctrl+super or ctrl+shift+space")
	pf.StringVar(&flagHook, "hook", "", "hotkey source: raw|registered")
	pf.StringVar(&flagUI, "ui", "", "status indicator: tray|tui|gui|none")
	pf.StringVar(&flagLang, "lang", "", "language code, e.g. en (empty = auto-detect)")
	pf.BoolVar(&flagNoBeep, "no-beep", false, "disable audio cues")

	rootCmd.AddCommand(runCmd, versionCmd)
}

// setup loads configuration, applies flags and starts logging.
func setup(cmd *cobra.Command) error {
	c, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	applyFlags(cmd, c)
	if err := c.Validate(); err != nil {
		return err
	}
	cfg = c

	logPath := flagLogPath
	if logPath == "" {
		logPath = cfg.LogPath
	}
	dir, err := log.ResolveDir(logPath)
	if err != nil {
		return fmt.Errorf("resolve log dir: %w", err)
	}
	log.SetDir(dir)
	log.SetVerbose(cfg.Verbose)
	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	setCrashOutput(dir)
	return nil
}

func applyFlags(cmd *cobra.Command, c *config.Config) {
	pf := cmd.Flags()
	set := func(name string, dst *string, v string) {
		if pf.Changed(name) {
			*dst = v
		}
	}
	set("device", &c.Device, flagDevice)
	set("backend", &c.Backend, flagBackend)
	set("model", &c.Model, flagModel)
	set("hotkey", &c.Hotkey, flagHotkey)
	set("hook", &c.Hook, flagHook)
	set("ui", &c.UI, flagUI)
	set("lang", &c.Lang, flagLang)
	set("logpath", &c.LogPath, flagLogPath)
	if pf.Changed("verbose") {
		c.Verbose = flagVerbose
	}
	if pf.Changed("no-beep") {
		c.Beep = !flagNoBeep
	}
}

// setCrashOutput appends Go runtime crash reports to crash_log.txt.
func setCrashOutput(dir string) {
	crashPath := filepath.Join(dir, "crash_log.txt")
	f, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	fmt.Fprintf(f, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
	debug.SetCrashOutput(f, debug.CrashOptions{})
}

// wantsGUI reports whether the fyne popup was requested. It runs before
// flag parsing because fyne must own the main thread from the start.
func wantsGUI(args []string) bool {
	for i, a := range args {
		if a == "--ui=gui" {
			return true
		}
		if a == "--ui" && i+1 < len(args) && args[i+1] == "gui" {
			return true
		}
	}
	if slices.ContainsFunc(args, func(a string) bool { return strings.HasPrefix(a, "--ui") }) {
		return false
	}
	return os.Getenv("VOXPASTE_UI") == "gui"
}

func execute() int {
	ctx, stop := shutdown.Context(context.Background())
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return exitCode
}

// exitCode lets subcommands such as doctor report failure without an
// error message.
var exitCode int
