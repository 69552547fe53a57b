// Package cmd is the gkadmin command tree.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gkstorejd-max/gkstore-admin/internal/config"
)

// Output formats accepted by --output.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// NewRootCmd builds the full command tree. Running it without a subcommand
// opens the console.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gkadmin",
		Short: "GK Store admin console",
		Long: `gkadmin is the terminal admin console for GK Store.

Without a subcommand it opens the interactive console with the live order
dashboard. The subcommands reach the same backend for scripting.

Examples:
  gkadmin
  gkadmin login --email admin@gkstore.test
  gkadmin orders today -o json
  gkadmin products list --search lassi`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runConsole,
	}

	root.PersistentFlags().String("config", config.DefaultPath(), "config file")
	root.PersistentFlags().String("base-url", "", "override api.base_url")
	root.PersistentFlags().StringP("output", "o", FormatText, "output format: text, json or yaml")

	root.AddCommand(
		newConsoleCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newOrdersCmd(),
		newProductsCmd(),
		newCategoriesCmd(),
	)
	return root
}

// ExecuteContext runs the command tree with ctx.
func ExecuteContext(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// CommandContext holds the persistent flags of an invocation.
type CommandContext struct {
	ConfigPath string
	BaseURL    string
	Format     string
}

// NewCommandContext reads the persistent flags from cmd.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	baseURL, err := cmd.Flags().GetString("base-url")
	if err != nil {
		return nil, err
	}
	format, err := cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatText, FormatJSON, FormatYAML:
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
	return &CommandContext{ConfigPath: path, BaseURL: baseURL, Format: format}, nil
}

// LoadConfig loads the config file and applies flag overrides.
func (c *CommandContext) LoadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.ConfigPath)
	if err != nil {
		return nil, err
	}
	if c.BaseURL != "" {
		cfg.API.BaseURL = c.BaseURL
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
