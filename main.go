package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/soocke/profile-scout/app"
	"github.com/soocke/profile-scout/config"
	"github.com/soocke/profile-scout/debug"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run parses flags, wires the container and executes one command. Protocol
// lines go to stdout; logs go to stderr unless -log-file is set.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("profile-scout", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgPath := fs.String("config", "config.json", "path to the JSON config file")
	screenshot := fs.String("screenshot", "", "analyze this image instead of the newest screenshot")
	templates := fs.String("templates", "", "template directory (overrides config)")
	logLevel := fs.String("log-level", "info", "debug, info, warn or error")
	logFile := fs.String("log-file", "", "append logs to this file instead of stderr")
	jsonReport := fs.Bool("json", false, "append a REPORT_JSON line after the analysis report")
	debugDumps := fs.Bool("debug", false, "save analysed regions into the debug directory")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: profile-scout [flags] <command> [args]\n\n%s\n\nflags:\n", app.Usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	level, err := parseLevel(*logLevel)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	logOut := stderr
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(stderr, "open log file: %v\n", err)
			return 1
		}
		defer f.Close()
		logOut = f
	}
	logger := NewLogger(logOut, level)

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Warn("config load failed, using defaults", "path", *cfgPath, "error", err)
	}
	if *templates != "" {
		cfg.TemplateDir = *templates
	}
	if *debugDumps {
		cfg.Debug = true
	}

	c := app.BuildContainer(cfg, logger, nil)
	defer func() {
		if err := c.Close(); err != nil {
			logger.Warn("close", "error", err)
		}
	}()

	start := time.Now()
	err = app.NewApp(c, stdout, *screenshot, *jsonReport).Run(fs.Args())
	command := ""
	if fs.NArg() > 0 {
		command = fs.Arg(0)
	}
	debug.LogRuntimeStats(logger, command, time.Since(start))
	if err != nil {
		if errors.Is(err, app.ErrUsage) {
			fmt.Fprintln(stderr, err)
			fs.Usage()
			return 2
		}
		logger.Error("write output", "error", err)
		return 1
	}
	return 0
}
