package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"persondir/internal/platform/config"
)

// main wires the CLI; the serve and check commands live in their own files.
// Business logic lives in internal/directory.
func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	envFile    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "persondir",
		Short:        "Directory of personal records keyed by national identifier",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// a missing .env is normal outside development
			_ = godotenv.Load(opts.envFile)
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv(config.EnvConfigPath),
		"YAML configuration file (env "+config.EnvConfigPath+")")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before configuration")

	serve := newServeCmd(opts)
	root.AddCommand(serve, newCheckCmd(opts))
	// running the binary without a subcommand serves
	root.RunE = serve.RunE

	return root
}

func loadConfig(opts *rootOptions) (*config.Config, error) {
	path := opts.configPath
	if path == "" {
		path = os.Getenv(config.EnvConfigPath)
	}
	return config.Load(path)
}
