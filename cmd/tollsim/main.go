// Command tollsim runs a toll simulation scenario and prints a summary.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	Version   string = "0.0.1"
	BuildDate string = "unknown"
)

func main() {
	var opts options
	flag.StringVar(&opts.configDir, "config", ".", "directory holding tollsim.cfg.json and an optional .env")
	flag.StringVar(&opts.scenarioPath, "scenario", "", "scenario JSON file; overrides scenario.path")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("tollsim %s (built %s)\n", Version, BuildDate)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts.stdout = os.Stdout
	opts.stderr = os.Stderr
	if err := run(ctx, opts); err != nil {
		fmt.Fprintln(os.Stderr, "tollsim:", err)
		os.Exit(1)
	}
}
