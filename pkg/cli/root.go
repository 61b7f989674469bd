// Package cli implements the asyncq operator command line. Commands open the
// configured store directly, so they work without a running server.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"asyncq/internal/app"
	"asyncq/internal/config"
	"asyncq/internal/domain"
)

var (
	version = "dev"
	commit  = "none"
)

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		output, _ := rootCmd.PersistentFlags().GetString("output")
		if output == "json" {
			_ = printJSON(os.Stdout, errorObject(err))
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

// errorObject renders err for --output json, tagging domain errors with a kind.
func errorObject(err error) map[string]interface{} {
	obj := map[string]interface{}{"error": err.Error()}
	var (
		notFound    *domain.NotFoundError
		validation  *domain.ValidationError
		translation *domain.TranslationError
		conflict    *domain.ConflictError
		transition  *domain.TransitionError
	)
	switch {
	case errors.As(err, &notFound):
		obj["kind"] = "not_found"
	case errors.As(err, &translation):
		obj["kind"] = "invalid_filter"
	case errors.As(err, &validation):
		obj["kind"] = "validation"
	case errors.As(err, &transition):
		obj["kind"] = "invalid_transition"
	case errors.As(err, &conflict):
		obj["kind"] = "conflict"
	}
	return obj
}

func newRootCmd() *cobra.Command {
	var (
		output     string
		envFile    string
		configFile string
	)

	rootCmd := &cobra.Command{
		Use:           "asyncq",
		Short:         "Async query lifecycle admin CLI",
		Long:          "Command-line interface for inspecting and maintaining async query records.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("output") {
				if v := os.Getenv("ASYNCQ_OUTPUT"); v != "" {
					output = v
				}
			}
			if err := validateOutputFormat(output); err != nil {
				return err
			}
			if envFile != "" {
				if err := config.LoadDotEnv(envFile); err != nil {
					return fmt.Errorf("load %s: %w", envFile, err)
				}
			}
			if configFile != "" {
				if err := os.Setenv("CONFIG_FILE", configFile); err != nil {
					return err
				}
			}
			return nil
		},
	}

	rootCmd.SetGlobalNormalizationFunc(underscoreToDash)
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format (table, json)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Dotenv file loaded before reading configuration")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML configuration file (sets CONFIG_FILE)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log at the configured level instead of warnings only")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newSubmitCmd())
	rootCmd.AddCommand(newGetCmd())
	rootCmd.AddCommand(newUpdateStatusCmd())
	rootCmd.AddCommand(newDeleteCmd())
	rootCmd.AddCommand(newSweepCmd())
	rootCmd.AddCommand(newTokenCmd())
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

// underscoreToDash lets --env_file and --env-file name the same flag.
func underscoreToDash(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

// loadConfig reads configuration the same way the server does.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// openApp wires the application for a single command. The caller closes it.
func openApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	level := slog.LevelWarn
	if verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose"); verbose {
		level = cfg.SlogLevel()
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}
	return app.New(cmd.Context(), app.Deps{Cfg: cfg, Logger: logger})
}

// getOutputFormat returns the effective output format from the root command's persistent flags.
func getOutputFormat(cmd *cobra.Command) string {
	v, _ := cmd.Root().PersistentFlags().GetString("output")
	return v
}

func validateOutputFormat(output string) error {
	if output != "" && output != "table" && output != "json" {
		return fmt.Errorf("unsupported output format %q: use 'table' or 'json'", output)
	}
	return nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the CLI version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]string{
					"version": version,
					"commit":  commit,
				})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "asyncq version %s (commit: %s)\n", version, commit)
			return nil
		},
	}
}

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "completion [bash|zsh|fish|powershell]",
		Short:     "Generate shell completion scripts",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}
}
