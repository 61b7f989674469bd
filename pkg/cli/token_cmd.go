package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"asyncq/internal/middleware"
)

func newTokenCmd() *cobra.Command {
	var (
		subject      string
		ttl          time.Duration
		promptSecret bool
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a bearer token for the admin API",
		Long:  "Sign an HS256 JWT accepted by the admin API. The secret is JWT_SECRET unless --prompt-secret is given.",
		Example: `  asyncq token --subject ops
  asyncq token --subject ops --ttl 1h --prompt-secret`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if ttl <= 0 {
				return fmt.Errorf("--ttl must be positive, got %s", ttl)
			}

			var secret string
			if promptSecret {
				s, err := readSecret(cmd)
				if err != nil {
					return err
				}
				secret = s
			} else {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				for _, w := range cfg.Warnings {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
				}
				secret = cfg.JWTSecret
			}

			signed, err := middleware.SignHS256(secret, subject, ttl)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]string{
					"token":      signed,
					"subject":    subject,
					"expires_at": time.Now().Add(ttl).UTC().Format(time.RFC3339),
				})
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "Principal name placed in the sub claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	cmd.Flags().BoolVar(&promptSecret, "prompt-secret", false, "Read the signing secret from the terminal")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

// readSecret reads the signing secret without echo. Stdin must be a terminal.
func readSecret(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd()) //nolint:gosec // file descriptors fit in int
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("--prompt-secret requires an interactive terminal")
	}
	_, _ = fmt.Fprint(cmd.ErrOrStderr(), "JWT secret: ")
	b, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}
	secret := strings.TrimSpace(string(b))
	if secret == "" {
		return "", fmt.Errorf("empty secret")
	}
	return secret, nil
}
