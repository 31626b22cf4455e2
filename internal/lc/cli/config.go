package cli

import (
	"strings"

	"github.com/abdul-hamid-achik/learn.cheap/internal/lc/config"
	"github.com/abdul-hamid-achik/learn.cheap/internal/lc/output"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long: `Read and write ~/.config/lc/config.yaml.

Environment variables override file values: LC_BASE_URL, LC_TOKEN,
LC_WEBHOOK_SECRET, JWT_SECRET, DATABASE_URL, REDIS_URL.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		values := make(map[string]string, len(config.Keys))
		for _, key := range config.Keys {
			v, _ := cfg.Get(key)
			values[key] = redact(key, v)
		}
		if jsonOutput {
			return printer.JSON(values)
		}

		table := output.NewTable(printer.Out(), []string{"Key", "Value"}, quietMode)
		for _, key := range config.Keys {
			table.Append([]string{key, values[key]})
		}
		table.Render()
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value. Keys: " + strings.Join(config.Keys, ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		printer.Success("Set %s", args[0])
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.Path()
		if err != nil {
			return err
		}
		printer.Println(path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)
}

func redact(key, value string) string {
	if value == "" {
		return ""
	}
	switch key {
	case "token", "webhook_secret", "jwt_secret":
		if len(value) <= 8 {
			return "****"
		}
		return value[:4] + "****"
	case "database_url", "redis_url":
		// hide credentials in the userinfo part
		if at := strings.LastIndex(value, "@"); at > 0 {
			if scheme := strings.Index(value, "://"); scheme >= 0 && scheme < at {
				return value[:scheme+3] + "****" + value[at:]
			}
		}
	}
	return value
}
