// SPDX-License-Identifier: MIT

// Command videosentinel maintains large video libraries: it stages files from
// slow or remote storage through a local scratch directory, re-encodes them
// via an external encoder command, and uploads the results back.
package main

import (
	"fmt"
	"os"
)

var (
	version   = "v0.4.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	switch args[0] {
	case "run":
		os.Exit(runCmd(args[1:]))
	case "status":
		os.Exit(statusCmd(args[1:]))
	case "clean":
		os.Exit(cleanCmd(args[1:]))
	case "version", "-version", "--version":
		fmt.Printf("videosentinel %s (commit: %s, built: %s)\n", version, commit, buildDate)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `Usage: videosentinel <command> [flags]

Commands:
  run      process a library through the staging pipeline
  status   show the persisted queue state and staging usage
  clean    delete the staging directory and queue state
  version  print version information

Run "videosentinel <command> -h" for command flags.
`)
}
