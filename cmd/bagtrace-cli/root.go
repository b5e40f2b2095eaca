package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/BearBump/BagTrace/config"
	"github.com/BearBump/BagTrace/internal/integrations/flightdata"
	"github.com/BearBump/BagTrace/internal/integrations/flightdata/chain"
	"github.com/BearBump/BagTrace/internal/integrations/flightdata/static"
	"github.com/BearBump/BagTrace/internal/logging"
	"github.com/BearBump/BagTrace/internal/services/routes"
	"github.com/BearBump/BagTrace/internal/services/verification"
)

type commandContext struct {
	configFlag  string
	jsonFlag    bool
	offlineFlag bool
	verbose     bool

	cfg *config.Config

	// providers overrides provider construction, used by tests.
	providers func() []flightdata.Provider
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	path := c.configFlag
	if path == "" {
		path = os.Getenv("configPath")
	}
	if path == "" {
		c.cfg = &config.Config{}
		return c.cfg, nil
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

func (c *commandContext) resolver() (*routes.Resolver, error) {
	if c.providers != nil {
		return routes.New(c.providers()...), nil
	}
	if c.offlineFlag {
		return routes.New(static.Default()), nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	providers, _ := chain.Build(cfg.Providers)
	return routes.New(providers...), nil
}

func (c *commandContext) verifier() (*verification.Service, error) {
	r, err := c.resolver()
	if err != nil {
		return nil, err
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return verification.NewService(r, verification.ScorerFromConfig(cfg.Verification), nil), nil
}

func newRootCommand() *cobra.Command {
	return newRootCommandWith(&commandContext{})
}

func newRootCommandWith(ctx *commandContext) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "bagtrace-cli",
		Short:         "BagTrace flight lookup and travel verification tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LogConfig{Level: "error", Format: "text"}
			if ctx.verbose {
				cfg.Level = "debug"
			}
			slog.SetDefault(mustLogger(cmd.ErrOrStderr(), cfg))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.configFlag, "config", "c", "", "Configuration file path (default $configPath)")
	rootCmd.PersistentFlags().BoolVar(&ctx.jsonFlag, "json", false, "Print JSON instead of tables")
	rootCmd.PersistentFlags().BoolVar(&ctx.offlineFlag, "offline", false, "Use only the built-in flight table")
	rootCmd.PersistentFlags().BoolVarP(&ctx.verbose, "verbose", "v", false, "Log provider attempts to stderr")

	rootCmd.AddCommand(newParseCommand(ctx))
	rootCmd.AddCommand(newRouteCommand(ctx))
	rootCmd.AddCommand(newVerifyCommand(ctx))

	return rootCmd
}

func mustLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	logger, err := logging.New(w, cfg)
	if err != nil {
		return slog.New(slog.NewTextHandler(w, nil))
	}
	return logger
}
