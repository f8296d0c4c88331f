// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/google/uuid"

	"github.com/videosentinel/videosentinel/internal/config"
	xlog "github.com/videosentinel/videosentinel/internal/log"
	"github.com/videosentinel/videosentinel/internal/scan"
	"github.com/videosentinel/videosentinel/internal/shutdown"
	"github.com/videosentinel/videosentinel/internal/staging"
)

func runCmd(args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file (YAML)")
	dir := fs.String("dir", "", "directory of source videos to register")
	encodeTmpl := fs.String("encode-cmd", "", "encoder command; {in} and {out} are replaced with file paths")
	resume := fs.Bool("resume", true, "resume from persisted queue state if present")
	_ = fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	xlog.Configure(xlog.Config{Level: cfg.LogLevel, Service: "videosentinel", Version: version})
	logger := xlog.WithComponent("cli")

	if *encodeTmpl == "" {
		fmt.Fprintln(os.Stderr, "run: -encode-cmd is required (example: -encode-cmd 'ffmpeg -i {in} -c:v libx265 {out}')")
		return 2
	}

	runID := uuid.New().String()
	ctx := xlog.ContextWithRunID(context.Background(), runID)
	logger = xlog.WithContext(ctx, logger)

	ctx, stop := shutdown.Context(ctx, shutdown.DefaultKey)
	defer stop()

	m := staging.NewManager(staging.Options{
		StagingDir:      cfg.StagingDir,
		MaxBufferSize:   cfg.MaxBufferSize,
		MaxStagingBytes: cfg.MaxStagingBytes(),
		ReplaceOriginal: cfg.ReplaceOriginal,
		OutputExt:       cfg.OutputExt,
	})

	if *resume {
		if found, err := m.LoadState(); err != nil {
			logger.Error().Err(err).Msg("could not load queue state")
			return 1
		} else if found {
			logger.Info().Msg("resuming previous batch")
		}
	}

	if *dir != "" {
		files, err := scan.Discover(*dir, scan.Options{
			Recursive:  cfg.Recursive,
			SkipSuffix: "_reencoded",
		})
		if err != nil {
			logger.Error().Err(err).Msg("discovery failed")
			return 1
		}
		m.AddFiles(files)
	}
	if extra := fs.Args(); len(extra) > 0 {
		m.AddFiles(extra)
	}

	if m.Progress().Total == 0 {
		logger.Info().Msg("nothing to do")
		return 0
	}

	logger.Info().
		Int("files", m.Progress().Total).
		Str(xlog.FieldPath, m.StagingDir()).
		Msg("starting pipeline (press q or Ctrl-C to stop after the current file)")

	err = m.Start(ctx, commandEncoder(*encodeTmpl))

	p := m.Progress()
	logger.Info().
		Int("complete", p.Complete).
		Int("failed", p.Failed).
		Int("total", p.Total).
		Msg("pipeline finished")

	switch {
	case errors.Is(err, context.Canceled):
		logger.Warn().Msg("interrupted; rerun with -resume to continue this batch")
		return 130
	case err != nil:
		logger.Error().Err(err).Msg("pipeline error")
		return 1
	case p.Failed > 0:
		return 1
	}
	return 0
}

// commandEncoder adapts an external encoder command template to the
// pipeline's encode callback. The template is split on whitespace, so paths
// inside it must not contain spaces; {in} and {out} expand to the staged
// input and requested output. The spawned process is never killed on
// cancellation: the pipeline waits for the current file by design.
func commandEncoder(template string) staging.EncodeFunc {
	logger := xlog.WithComponent("encoder")
	return func(_ context.Context, in, out string) error {
		argv := buildArgv(template, in, out)
		if len(argv) == 0 {
			return fmt.Errorf("empty encode command")
		}

		logger.Debug().Strs("argv", argv).Msg("spawning encoder")
		cmd := exec.Command(argv[0], argv[1:]...)
		output, err := cmd.CombinedOutput()
		if err != nil {
			tail := lastLines(string(output), 10)
			return fmt.Errorf("%s: %w\n%s", argv[0], err, tail)
		}
		return nil
	}
}

func buildArgv(template, in, out string) []string {
	fields := strings.Fields(template)
	argv := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ReplaceAll(f, "{in}", in)
		f = strings.ReplaceAll(f, "{out}", out)
		argv = append(argv, f)
	}
	return argv
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
