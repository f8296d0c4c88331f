// SPDX-License-Identifier: MIT

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/videosentinel/videosentinel/internal/config"
	xlog "github.com/videosentinel/videosentinel/internal/log"
	"github.com/videosentinel/videosentinel/internal/staging"
)

func cleanCmd(args []string) int {
	fs := flag.NewFlagSet("clean", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file (YAML)")
	force := fs.Bool("force", false, "actually delete the staging directory and queue state")
	_ = fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	xlog.Configure(xlog.Config{Level: cfg.LogLevel, Service: "videosentinel", Version: version})

	if !*force {
		fmt.Fprintf(os.Stderr, "clean would delete %s and the queue state; rerun with -force to confirm\n", cfg.StagingDir)
		return 2
	}

	m := staging.NewManager(staging.Options{StagingDir: cfg.StagingDir})
	if err := m.Cleanup(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("removed %s\n", cfg.StagingDir)
	return 0
}
