// jsos boots a script kernel: it loads jsos.toml, registers the module
// directories and hands control to the init image.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/tliron/commonlog"

	"github.com/chazu/jsos/config"
	"github.com/chazu/jsos/kernel"
	"github.com/chazu/jsos/vm"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	dir := flag.String("C", ".", "Directory to search for jsos.toml")
	initModule := flag.String("init", "", "Module to run at boot (overrides [kernel] init)")
	modules := flag.String("modules", "", "Comma-separated module directories (overrides [modules] dirs)")
	seed := flag.Uint64("seed", 0, "Math.random seed; 0 keeps the configured seed")
	verbosity := flag.Int("v", -1, "Log verbosity (overrides [log] verbosity)")
	noColor := flag.Bool("no-color", false, "Disable colored halt messages")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: jsos [options]\n\n")
		fmt.Fprintf(os.Stderr, "Boots the kernel described by the nearest jsos.toml.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  jsos                           # Boot /kernel/init.jmg from ./modules\n")
		fmt.Fprintf(os.Stderr, "  jsos -C ./disk -v 2            # Use ./disk/jsos.toml, log at info\n")
		fmt.Fprintf(os.Stderr, "  jsos -init /kernel/test.jmg    # Boot a different init module\n")
	}
	flag.Parse()

	cfg, err := loadConfig(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *initModule != "" {
		cfg.Kernel.Init = *initModule
	}
	if *modules != "" {
		cfg.Modules.Dirs = strings.Split(*modules, ",")
	}
	if *seed != 0 {
		cfg.Kernel.Seed = *seed
	}
	if *verbosity >= 0 {
		cfg.Log.Verbosity = *verbosity
	}
	commonlog.Configure(cfg.Log.Verbosity, cfg.LogFile())

	k, err := kernel.New(cfg, os.Stdout)
	if err == nil {
		err = k.Boot()
	}
	if err != nil {
		halt(os.Stderr, err, !*noColor && isTerminal(os.Stderr))
		os.Exit(1)
	}
}

// loadConfig finds jsos.toml from dir upwards, falling back to defaults
// rooted at dir.
func loadConfig(dir string) (*config.Config, error) {
	cfg, err := config.FindAndLoad(dir)
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		return cfg, nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return config.Default(abs), nil
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// halt prints the banner the kernel leaves behind when it stops.
func halt(w io.Writer, err error, colored bool) {
	title := color.New(color.FgRed, color.Bold)
	detail := color.New(color.FgHiBlack)
	if colored {
		title.EnableColor()
		detail.EnableColor()
	} else {
		title.DisableColor()
		detail.DisableColor()
	}

	var fatal *vm.Fatal
	var h *kernel.HaltError
	switch {
	case errors.As(err, &h):
		title.Fprintln(w, "KERNEL PANIC")
		fmt.Fprintln(w, h.Message)
	case errors.As(err, &fatal):
		title.Fprintln(w, "KERNEL PANIC (host)")
		fmt.Fprintln(w, fatal.Message)
	default:
		title.Fprintln(w, "KERNEL PANIC")
		fmt.Fprintln(w, err)
	}
	detail.Fprintln(w, "system halted")
}
