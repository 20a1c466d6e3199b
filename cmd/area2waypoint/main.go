package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
)

import (
	"area2waypoint/pkg/convert"
	"area2waypoint/pkg/logging"
	"area2waypoint/pkg/options"
)

import (
	"github.com/yookoala/realpath"
)

var GitCommit = "local"
var GitTag = "0.0.0"

func getVersion() string {
	return fmt.Sprintf("%s %s commit:%s", filepath.Base(os.Args[0]), GitTag, GitCommit)
}

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := options.ParseCLI(os.Args[1:], getVersion)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "area2waypoint: %v\n", err)
		return 2
	}

	lg, err := logging.New(cfg.LogLevel, cfg.LogDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "area2waypoint: %v\n", err)
		return 2
	}
	defer lg.Close()
	lg.Debugf("%s", getVersion())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rep, err := convert.Run(ctx, cfg, lg)
	if rep != nil {
		fmt.Print(rep)
		for _, o := range rep.Outputs {
			show_output(o.Path)
		}
	}
	if err != nil {
		lg.Errorf("%v", err)
		if errors.Is(err, convert.ErrNoShots) {
			fmt.Fprintln(os.Stderr, "No shot points computed")
		}
		return 1
	}
	return 0
}

func show_output(outfn string) {
	if outfn != "" {
		rp, err := realpath.Realpath(outfn)
		if err != nil || rp == "" {
			rp = outfn
		}
		fmt.Printf("%-8.8s : %s\n", "Output", rp)
	}
}
