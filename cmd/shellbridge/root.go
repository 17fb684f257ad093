package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/shellbridge/internal/infrastructure/config"
	"github.com/GriffinCanCode/shellbridge/internal/server"
)

// overrides holds flags that replace loaded configuration when set.
type overrides struct {
	configFile  string
	port        string
	host        string
	logLevel    string
	dev         bool
	maxSessions int
	shell       string
}

func (o *overrides) bind(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&o.configFile, "config", "", "YAML or TOML config file (env "+config.FileEnvVar+")")
	f.StringVar(&o.port, "port", "", "HTTP port (env PORT)")
	f.StringVar(&o.host, "host", "", "HTTP bind address (env HOST)")
	f.StringVar(&o.logLevel, "log-level", "", "debug, info, warn or error (env LOG_LEVEL)")
	f.BoolVar(&o.dev, "dev", false, "development logging and gin debug mode")
	f.IntVar(&o.maxSessions, "max-sessions", 0, "maximum live terminal sessions")
	f.StringVar(&o.shell, "shell", "", "shell for PTY sessions and shell.execute")
}

// apply copies every flag the user set onto cfg and revalidates it.
func (o *overrides) apply(cmd *cobra.Command, cfg *config.Config) error {
	changed := cmd.Flags().Changed
	if changed("port") {
		cfg.Server.Port = o.port
	}
	if changed("host") {
		cfg.Server.Host = o.host
	}
	if changed("log-level") {
		cfg.Logging.Level = o.logLevel
	}
	if changed("dev") {
		cfg.Logging.Development = o.dev
	}
	if changed("max-sessions") {
		cfg.Terminal.MaxSessions = o.maxSessions
	}
	if changed("shell") {
		cfg.Terminal.Shell = o.shell
	}
	return cfg.Validate()
}

// configPath is the --config flag, else SHELLBRIDGE_CONFIG.
func (o *overrides) configPath() string {
	if o.configFile != "" {
		return o.configFile
	}
	return os.Getenv(config.FileEnvVar)
}

// load reads configuration and applies flag overrides.
func (o *overrides) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadFile(o.configPath())
	if err != nil {
		return nil, err
	}
	if err := o.apply(cmd, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// serverOptions watches the config file for policy changes when one is in use.
func (o *overrides) serverOptions() []server.Option {
	opts := []server.Option{server.WithVersion(version)}
	if path := o.configPath(); path != "" {
		opts = append(opts, server.WithConfigWatch(path))
	}
	return opts
}

func newRootCmd() *cobra.Command {
	var flags overrides
	cmd := &cobra.Command{
		Use:           "shellbridge",
		Short:         "PTY terminal sessions and shell tools for AI agents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags.bind(cmd)
	cmd.AddCommand(newServeCmd(&flags))
	cmd.AddCommand(newMCPCmd(&flags))
	cmd.AddCommand(newVersionCmd())
	return cmd
}
