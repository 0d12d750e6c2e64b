// Package init provides the init command for sqlcsv.
package init

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/open-cli-collective/sqlcsv-cli/internal/config"
	"github.com/open-cli-collective/sqlcsv-cli/internal/database"
	"github.com/open-cli-collective/sqlcsv-cli/internal/textenc"
)

// NewCmdInit creates the init command.
func NewCmdInit() *cobra.Command {
	var (
		driver   string
		db       string
		noVerify bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize sqlcsv configuration",
		Long: `Initialize sqlcsv with the defaults applied when an invocation leaves
them out.

This command will guide you through choosing a database, the field
separator and output encoding, and the SMTP server and sender used for
e-mailed exports. The configuration will be saved to
~/.config/sqlcsv/config.yml.`,
		Example: `  # Interactive setup
  sqlcsv init

  # Pre-populate the database
  sqlcsv init --database ./sales.db`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd.Context(), driver, db, noVerify)
		},
	}

	cmd.Flags().StringVar(&driver, "driver", "", "database/sql driver (default sqlite3)")
	cmd.Flags().StringVar(&db, "database", "", "database file, or data source name for other drivers")
	cmd.Flags().BoolVar(&noVerify, "no-verify", false, "Skip connection verification")

	return cmd
}

// encodingOptions lists the encodings the output can be written in.
func encodingOptions() []huh.Option[string] {
	var opts []huh.Option[string]
	for _, name := range textenc.Names() {
		if _, err := textenc.Lookup(name); err != nil {
			continue
		}
		opts = append(opts, huh.NewOption(name, name))
	}
	return opts
}

func runInit(ctx context.Context, prefillDriver, prefillDatabase string, noVerify bool) error {
	configPath := config.DefaultConfigPath()

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		var overwrite bool
		err := huh.NewConfirm().
			Title("Configuration already exists").
			Description(fmt.Sprintf("Overwrite %s?", configPath)).
			Value(&overwrite).
			Run()
		if err != nil {
			return err
		}
		if !overwrite {
			fmt.Println("Initialization cancelled.")
			return nil
		}
	}

	cfg := &config.Config{
		Driver:         database.DefaultDriver,
		FieldSeparator: ",",
		Encoding:       textenc.Default,
	}
	if prefillDriver != "" {
		cfg.Driver = prefillDriver
	}
	if prefillDatabase != "" {
		cfg.Database = prefillDatabase
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Driver").
				Description("database/sql driver name").
				Value(&cfg.Driver),

			huh.NewInput().
				Title("Database").
				Description("Database file for sqlite3, data source name otherwise").
				Placeholder("./sales.db").
				Value(&cfg.Database).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("database is required")
					}
					return nil
				}),

			huh.NewInput().
				Title("Field separator").
				Description(`One character, or \t for tab`).
				Value(&cfg.FieldSeparator),

			huh.NewSelect[string]().
				Title("Encoding").
				Options(encodingOptions()...).
				Value(&cfg.Encoding),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("SMTP server (optional)").
				Description("host[:port] used for e-mailed exports").
				Placeholder("smtp.example.com").
				Value(&cfg.SMTPServer),

			huh.NewInput().
				Title("From (optional)").
				Description("Sender address for e-mailed exports").
				Placeholder("reports@example.com").
				Value(&cfg.From),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	// Verify connection unless skipped
	if !noVerify {
		fmt.Print("Verifying connection... ")
		if err := verifyConnection(ctx, cfg); err != nil {
			fmt.Println("failed!")
			return errors.Wrap(err, "connection verification failed")
		}
		fmt.Println("success!")
	}

	if err := cfg.Save(configPath); err != nil {
		return err
	}

	fmt.Printf("\nConfiguration saved to %s\n", configPath)
	fmt.Println("\nYou're all set! Try running:")
	fmt.Println(`  sqlcsv "select * from orders" orders.csv`)
	fmt.Println("  sqlcsv config show")

	return nil
}

func verifyConnection(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	db, err := database.Open(ctx, cfg.DatabaseSettings())
	if err != nil {
		return err
	}
	return db.Close()
}
