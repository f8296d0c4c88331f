// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/videosentinel/videosentinel/internal/config"
	xlog "github.com/videosentinel/videosentinel/internal/log"
	"github.com/videosentinel/videosentinel/internal/monitor"
	"github.com/videosentinel/videosentinel/internal/shutdown"
)

func statusCmd(args []string) int {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file (YAML)")
	watch := fs.Bool("watch", false, "keep watching and re-render on every queue state change")
	_ = fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	xlog.Configure(xlog.Config{Level: cfg.LogLevel, Service: "videosentinel", Version: version})

	if !*watch {
		s, err := monitor.Collect(cfg.StagingDir)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		monitor.Render(os.Stdout, s)
		return 0
	}

	ctx, stop := shutdown.Context(context.Background(), shutdown.DefaultKey)
	defer stop()

	err = monitor.Watch(ctx, cfg.StagingDir, func(s monitor.Summary) {
		fmt.Println("----------------------------------------")
		monitor.Render(os.Stdout, s)
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
