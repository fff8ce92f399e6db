// agtcore plays text adventures compiled from Lua game directories.
// Usage: agtcore [--version] [--plain] [--script <file>] [--trace]
//
//	[--config <file>] [--saves <db>] [--seed <n>] [-v...] <game_directory>
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/mattn/go-isatty"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/nathoo/agtcore/cli"
	"github.com/nathoo/agtcore/config"
	"github.com/nathoo/agtcore/engine"
	"github.com/nathoo/agtcore/loader"
	"github.com/nathoo/agtcore/savestore"
	"github.com/nathoo/agtcore/tui"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const historyFile = ".agtcore_history"

const usage = "Usage: agtcore [--version] [--plain] [--script <file>] [--trace] [--config <file>] [--saves <db>] [--seed <n>] [-v] <game_directory>\n"

func main() {
	var (
		gameDir, scriptFile, configFile, saveDB string
		plain, trace                            bool
		seed                                    *int64
		verbosity                               int
	)

	args := os.Args[1:]
	next := func(i *int, name string) string {
		if *i+1 >= len(args) {
			fmt.Fprintf(os.Stderr, "%s requires a value\n", name)
			os.Exit(1)
		}
		*i++
		return args[*i]
	}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--version":
			fmt.Printf("agtcore %s (commit %s, built %s)\n", version, commit, date)
			return
		case "--plain":
			plain = true
		case "--trace":
			trace = true
		case "-v":
			verbosity++
		case "-vv":
			verbosity += 2
		case "--script":
			scriptFile = next(&i, "--script")
		case "--config":
			configFile = next(&i, "--config")
		case "--saves":
			saveDB = next(&i, "--saves")
		case "--seed":
			n, err := strconv.ParseInt(next(&i, "--seed"), 10, 64)
			if err != nil {
				fmt.Fprintf(os.Stderr, "--seed: %v\n", err)
				os.Exit(1)
			}
			seed = &n
		default:
			if gameDir == "" {
				gameDir = args[i]
			}
		}
	}

	if gameDir == "" {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cfg := config.Default()
	if configFile != "" {
		var err error
		if cfg, err = config.Load(configFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	// Flags override the config file.
	cfg.Plain = cfg.Plain || plain || scriptFile != ""
	cfg.Trace = cfg.Trace || trace
	cfg.LogVerbosity += verbosity
	if saveDB != "" {
		cfg.SaveDB = saveDB
	}
	if seed != nil {
		cfg.Seed = *seed
	}

	useTUI := !cfg.Plain && isTerminal()
	configureLogging(cfg, useTUI)

	// Load and compile Lua game content.
	defs, err := loader.Load(gameDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading game: %v\n", err)
		os.Exit(1)
	}

	eng := engine.New(defs, cfg.EngineOptions())

	var slots *savestore.Slot
	if cfg.SaveDB != "" {
		store, err := savestore.Open(cfg.SaveDB)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: saving disabled: %v\n", err)
		} else {
			defer store.Close()
			slots = savestore.NewSlot(store, eng)
			eng.Saver = slots
		}
	}

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	// Script mode: replay the file, echoing commands.
	if scriptFile != "" {
		f, err := os.Open(scriptFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening script: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		c := cli.New(eng, slots)
		c.In = cli.NewScript(f)
		c.EchoInput = true
		c.Run()
		return
	}

	if !useTUI {
		term := cli.OpenTerminal(histPath)
		defer term.Close()
		c := cli.New(eng, slots)
		c.In = term
		c.Run()
		return
	}

	m := tui.New(eng, slots)
	if f, err := os.Open(histPath); err == nil {
		_, _ = m.History().ReadFrom(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = m.History().WriteTo(f)
			_ = f.Close()
		}
	}()
	if err := tui.Run(m); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// configureLogging sends log output to the configured file. The TUI owns
// the screen, so without a log file it logs nothing.
func configureLogging(cfg config.Config, useTUI bool) {
	var path *string
	if cfg.LogFile != "" {
		path = &cfg.LogFile
	}
	verbosity := cfg.LogVerbosity
	if useTUI && path == nil {
		verbosity = -4
	}
	commonlog.Configure(verbosity, path)
}

// isTerminal returns true if stdout is a terminal (not piped/redirected).
func isTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
