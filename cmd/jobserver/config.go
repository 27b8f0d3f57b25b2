package main

import (
	"github.com/nixpig/jobctl/internal/config"
	"github.com/spf13/pflag"
)

// addFlags registers the daemon flags. Their names match config keys, so
// config.Load picks up any that are set.
func addFlags(fs *pflag.FlagSet) {
	defaults := config.Default()

	fs.String("socket", defaults.SocketPath, "Unix socket path to listen on")
	fs.Bool("debug", false, "Enable debug logs")

	fs.String(
		"log-file",
		defaults.LogFile,
		"Path to rotating log file (empty logs to stderr)",
	)

	fs.String(
		"job-log-dir",
		defaults.JobLogDir,
		"Directory for output of jobs started with run (empty discards output)",
	)

	fs.String("shell", defaults.Shell, "Shell used to start jobs for run")
}
