package main

import (
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "pulsecheck",
		Short: "Health checks for service dependencies",
		Long: "pulsecheck probes databases, caches, brokers, task queues and HTTP APIs\n" +
			"and reports liveness and readiness over HTTP or on the command line.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "path to a YAML settings file")
	pf.String("environment", "development", "environment label reported in responses")
	pf.Int("max-concurrency", 10, "maximum number of checks in flight")
	pf.String("log-level", "info", "log level: debug, info, warn or error")
	pf.String("log-format", "json", "log encoding: json or console")
	pf.String("secrets-dir", "", "directory for relative secretref:file: references")

	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newCheckCmd(opts))
	root.AddCommand(newVersionCmd())
	return root
}
