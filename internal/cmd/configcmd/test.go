package configcmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/open-cli-collective/sqlcsv-cli/internal/config"
	"github.com/open-cli-collective/sqlcsv-cli/internal/database"
	"github.com/open-cli-collective/sqlcsv-cli/internal/mailer"
)

// NewCmdTest creates the config test command.
func NewCmdTest() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test connectivity with the configured database and SMTP server",
		Long: `Test that sqlcsv can open the configured database and, when one is set,
reach the configured SMTP server.`,
		Example: `  # Test connection
  sqlcsv config test`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			noColor, _ := cmd.Flags().GetBool("no-color")
			return runTest(cmd.Context(), cmd.OutOrStdout(), noColor)
		},
	}

	return cmd
}

func runTest(ctx context.Context, w io.Writer, noColor bool, cfgs ...*config.Config) error {
	if noColor {
		color.NoColor = true
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var cfg *config.Config
	if len(cfgs) > 0 && cfgs[0] != nil {
		cfg = cfgs[0]
	} else {
		var err error
		cfg, err = config.LoadWithEnv(config.DefaultConfigPath())
		if err != nil {
			return errors.WithHint(errors.Wrap(err, "failed to load config"), "run 'sqlcsv init' to configure")
		}
	}

	if err := cfg.Validate(); err != nil {
		return errors.WithHint(errors.Wrap(err, "invalid config"), "run 'sqlcsv init' to configure")
	}

	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	settings := cfg.DatabaseSettings()
	_, _ = fmt.Fprintf(w, "Testing connection to %s...\n", settings.Redacted())

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	db, err := database.Open(dbCtx, settings)
	if err != nil {
		_, _ = red.Fprintln(w, "✗ Connection failed:", err)
		_, _ = fmt.Fprintln(w, "\nCheck your database with: sqlcsv config show")
		_, _ = fmt.Fprintln(w, "Reconfigure with: sqlcsv init")
		return errors.Wrap(err, "connection failed")
	}
	_ = db.Close()
	_, _ = green.Fprintln(w, "✓ Database connection verified")

	if cfg.SMTPServer == "" {
		return nil
	}

	sender := mailer.NewSMTPSender(cfg.SMTPServer)
	sender.Timeout = 10 * time.Second
	if err := sender.Verify(ctx); err != nil {
		_, _ = red.Fprintln(w, "✗ SMTP server unreachable:", err)
		return errors.Wrap(err, "smtp check failed")
	}
	_, _ = green.Fprintf(w, "✓ SMTP server %s answered\n", sender.Addr)

	return nil
}
