// Command token mints bearer tokens for the workspace API. The signing secret
// and issuer come from the same configuration the API server reads.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"dataworkspace/infrastructure/config"
	"dataworkspace/pkg/auth"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand(config.LoadConfig, os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCommand builds the CLI. load supplies the configuration so tests can
// run without a config file.
func newRootCommand(load func() (*config.Config, error), out io.Writer) *cobra.Command {
	var (
		caller   string
		ttl      time.Duration
		audience []string
	)

	cmd := &cobra.Command{
		Use:   "token --caller ID",
		Short: "Mint a bearer token for a caller",
		Long: `
Signs an HS256 token whose subject is the caller id. The API accepts it in the
Authorization header when JWT_SECRET is configured.
`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			if cfg.JWTSecret == "" {
				return fmt.Errorf("JWT_SECRET is not configured")
			}

			generator, err := auth.NewJWTGenerator(cfg.JWTSecret, cfg.JWTIssuer, audience, ttl)
			if err != nil {
				return err
			}
			token, err := generator.GenerateToken(caller)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, token)
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&caller, "caller", "c", "", "caller id placed in the token subject")
	flags.DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	flags.StringSliceVar(&audience, "audience", nil, "audience claims")
	_ = cmd.MarkFlagRequired("caller")
	return cmd
}
