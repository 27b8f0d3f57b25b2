package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nixpig/jobctl/internal/client"
	"github.com/nixpig/jobctl/internal/config"
	"github.com/nixpig/jobctl/internal/liveness"
	"github.com/nixpig/jobctl/internal/protocol"
	"github.com/spf13/cobra"
)

// TODO: Inject version at build time.
const version = "0.0.1"

type cli struct {
	client     *client.Client
	configPath string
}

func newCLI() *cli {
	return &cli{}
}

func (c *cli) rootCmd() *cobra.Command {
	command := &cobra.Command{
		Use:          "jobctl",
		Short:        "CLI for tracking suspended shell jobs by directory",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath, cmd.Flags())
			if err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			var daemonArgs []string
			if c.configPath != "" {
				daemonArgs = append(daemonArgs, "--config", c.configPath)
			}

			c.client = client.New(client.Options{
				SocketPath:  cfg.SocketPath,
				SettleDelay: cfg.SettleDelay,
				DaemonPath:  cfg.DaemonPath,
				DaemonArgs:  daemonArgs,
			})

			return nil
		},
	}

	command.AddCommand(
		c.listCmd(),
		c.registerCmd(),
		c.runCmd(),
		c.killCmd(),
	)

	command.CompletionOptions.HiddenDefaultCmd = true

	defaults := config.Default()

	command.PersistentFlags().StringVar(
		&c.configPath,
		"config",
		"",
		"Path to config file",
	)

	command.PersistentFlags().String(
		"socket",
		defaults.SocketPath,
		"Daemon unix socket path",
	)

	command.PersistentFlags().Duration(
		"settle-delay",
		defaults.SettleDelay,
		"Time to wait for an autostarted daemon before retrying",
	)

	command.PersistentFlags().String(
		"daemon-path",
		"",
		"Path to jobserver executable used by autostart",
	)

	return command
}

func (c *cli) listCmd() *cobra.Command {
	var dir string

	command := &cobra.Command{
		Use:     "list [flags]",
		Short:   "List tracked sessions, or the jobs of one directory",
		Example: "  jobctl list\n  jobctl list --dir .",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				sessions, err := c.client.Sessions(cmd.Context())
				if err != nil {
					return err
				}

				return printResponse(
					cmd.OutOrStdout(),
					protocol.ListSessionsResponse{Sessions: sessions},
				)
			}

			abs, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolve dir: %w", err)
			}

			jobs, err := c.client.Jobs(cmd.Context(), abs)
			if err != nil {
				return err
			}

			return printResponse(cmd.OutOrStdout(), protocol.ListJobsResponse{Jobs: jobs})
		},
	}

	command.Flags().StringVar(&dir, "dir", "", "Only list jobs of this directory")

	return command
}

func (c *cli) registerCmd() *cobra.Command {
	var name string

	command := &cobra.Command{
		Use:     "register [flags] PID NUMBER",
		Short:   "Track a suspended job of the current directory",
		Example: "  jobctl register 4242 1 --command vim",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, number, err := parseJobArgs(args[0], args[1])
			if err != nil {
				return err
			}

			if name == "" {
				// Best effort; the daemon looks the name up itself if this
				// fails.
				name, _ = liveness.NewChecker().Name(pid)
			}

			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("get working directory: %w", err)
			}

			job, err := c.client.Register(cmd.Context(), cwd, pid, number, name)
			if err != nil {
				return err
			}

			return printResponse(cmd.OutOrStdout(), protocol.RegisterResponse{Job: job})
		},
	}

	command.Flags().StringVar(&name, "command", "", "Command name of the job")

	return command
}

func (c *cli) runCmd() *cobra.Command {
	command := &cobra.Command{
		Use:     "run [flags] COMMAND [ARGS]",
		Short:   "Have the daemon start a command in the current directory",
		Example: "  jobctl run tail -f server.log",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("get working directory: %w", err)
			}

			job, err := c.client.Run(cmd.Context(), cwd, strings.Join(args, " "))
			if err != nil {
				return err
			}

			return printResponse(cmd.OutOrStdout(), protocol.RegisterResponse{Job: job})
		},
	}

	// Flags after the command belong to it, e.g. `-f` is an argument to
	// `tail`, not to `jobctl run`.
	command.Flags().SetInterspersed(false)

	return command
}

func (c *cli) killCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kill",
		Short: "Stop the daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.client.Kill(cmd.Context()); err != nil {
				return err
			}

			return printResponse(cmd.OutOrStdout(), protocol.KillResponse{})
		},
	}
}

func parseJobArgs(pidArg, numberArg string) (int32, uint8, error) {
	pid, err := strconv.ParseInt(pidArg, 10, 32)
	if err != nil || pid <= 0 {
		return 0, 0, fmt.Errorf("invalid pid %q", pidArg)
	}

	number, err := strconv.ParseUint(numberArg, 10, 8)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid job number %q", numberArg)
	}

	return int32(pid), uint8(number), nil
}

func printResponse(w io.Writer, resp protocol.Response) error {
	if err := protocol.WriteResponse(w, resp); err != nil {
		return errors.New("failed to write output")
	}

	return nil
}
