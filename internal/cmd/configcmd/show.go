package configcmd

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/open-cli-collective/sqlcsv-cli/internal/config"
)

// NewCmdShow creates the config show command.
func NewCmdShow() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long:  `Display the current sqlcsv configuration with source indicators.`,
		Example: `  # Show current config
  sqlcsv config show`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			noColor, _ := cmd.Flags().GetBool("no-color")
			return runShow(cmd.OutOrStdout(), noColor)
		},
	}

	return cmd
}

func runShow(w io.Writer, noColor bool) error {
	if noColor {
		color.NoColor = true
	}

	configPath := config.DefaultConfigPath()

	// Load file config (may not exist)
	fileCfg, fileErr := config.Load(configPath)
	if fileErr != nil {
		fileCfg = &config.Config{}
	}

	// Load full config with env overrides
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return err
	}

	bold := color.New(color.Bold)
	dim := color.New(color.Faint)

	printField := func(label, value, fileValue string, envVars ...string) {
		_, _ = bold.Fprintf(w, "%-17s", label+":")
		if value == "" {
			_, _ = dim.Fprintln(w, "-")
			return
		}

		_, _ = fmt.Fprint(w, value)

		// Determine source
		source := "config"
		if fileErr != nil {
			source = "-"
		}
		for _, envVar := range envVars {
			if v := os.Getenv(envVar); v != "" && v == value {
				source = envVar
				break
			}
		}
		if fileValue != value && source == "config" {
			source = "-"
		}

		_, _ = dim.Fprintf(w, "  (source: %s)\n", source)
	}

	printField("Driver", cfg.Driver, fileCfg.Driver, config.EnvDriver)
	printField("Database", cfg.Database, fileCfg.Database, config.EnvDatabase)
	printField("SMTP Server", cfg.SMTPServer, fileCfg.SMTPServer, config.EnvSMTPServer, "SMTP_SERVER")
	printField("From", cfg.From, fileCfg.From, config.EnvFrom)
	printField("Field separator", cfg.FieldSeparator, fileCfg.FieldSeparator)
	printField("Encoding", cfg.Encoding, fileCfg.Encoding)

	_, _ = fmt.Fprintln(w)
	_, _ = dim.Fprintf(w, "Config file: %s\n", configPath)
	if fileErr != nil {
		_, _ = dim.Fprintln(w, "(file not found)")
	}

	return nil
}
