package cli

import (
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/runoshun/par/internal/domain"
	"github.com/runoshun/par/internal/usecase"
)

// newConfigCommand creates the config command.
func newConfigCommand(e *env) *cobra.Command {
	var pathOnly bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Show the effective configuration after merging defaults, the global
config file and --config.

Use --path to print only the global config file path.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := e.container()
			if err != nil {
				return err
			}
			out, err := c.ShowConfigUseCase().Execute(cmd.Context(), usecase.ShowConfigInput{})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if pathOnly {
				_, _ = fmt.Fprintln(w, out.GlobalConfig.Path)
				return nil
			}

			_, _ = fmt.Fprintln(w, "[Loaded from]")
			if out.GlobalConfig.Exists {
				_, _ = fmt.Fprintf(w, "- %s\n", out.GlobalConfig.Path)
			} else {
				_, _ = fmt.Fprintf(w, "- %s (not found)\n", out.GlobalConfig.Path)
			}
			if e.opts.ConfigPath != "" {
				_, _ = fmt.Fprintf(w, "- %s\n", e.opts.ConfigPath)
			}
			_, _ = fmt.Fprintln(w)

			// Display effective config in TOML format
			_, _ = fmt.Fprintln(w, "[Effective Config]")
			return formatEffectiveConfig(w, out.EffectiveConfig)
		},
	}

	cmd.Flags().BoolVar(&pathOnly, "path", false, "Print the global config file path only")
	cmd.AddCommand(newConfigInitCommand(e))

	return cmd
}

// newConfigInitCommand creates the config init subcommand.
func newConfigInitCommand(e *env) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented default config file",
		Long: `Write a commented default configuration file to the global config path.

Error conditions:
- Target file already exists: error (use --force to overwrite)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := e.container()
			if err != nil {
				return err
			}
			out, err := c.InitConfigUseCase().Execute(cmd.Context(), usecase.InitConfigInput{Force: force})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created config file: %s\n", out.Path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	return cmd
}

// formatEffectiveConfig formats the effective config in TOML format.
// Sections and keys come from the toml tags of domain.Config; durations are
// written the way the config file accepts them ("30m").
func formatEffectiveConfig(w io.Writer, cfg *domain.Config) error {
	output := make(map[string]any)

	cfgVal := reflect.ValueOf(cfg).Elem()
	cfgType := cfgVal.Type()
	for i := range cfgVal.NumField() {
		name, ok := tomlName(cfgType.Field(i))
		if !ok {
			continue
		}
		section := cfgVal.Field(i)
		if section.Kind() != reflect.Struct {
			output[name] = section.Interface()
			continue
		}

		values := make(map[string]any)
		for j := range section.NumField() {
			key, ok := tomlName(section.Type().Field(j))
			if !ok {
				continue
			}
			val := section.Field(j).Interface()
			if d, isDuration := val.(time.Duration); isDuration {
				val = d.String()
			}
			values[key] = val
		}
		output[name] = values
	}

	if err := toml.NewEncoder(w).Encode(output); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

func tomlName(field reflect.StructField) (string, bool) {
	tag := field.Tag.Get("toml")
	if tag == "" || tag == "-" {
		return "", false
	}
	return strings.Split(tag, ",")[0], true
}
