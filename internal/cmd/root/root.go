// Package root provides the root command for the sqlcsv CLI.
package root

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	configcmd "github.com/open-cli-collective/sqlcsv-cli/internal/cmd/configcmd"
	initcmd "github.com/open-cli-collective/sqlcsv-cli/internal/cmd/init"
	"github.com/open-cli-collective/sqlcsv-cli/internal/config"
	"github.com/open-cli-collective/sqlcsv-cli/internal/job"
	"github.com/open-cli-collective/sqlcsv-cli/internal/logger"
	"github.com/open-cli-collective/sqlcsv-cli/internal/options"
	"github.com/open-cli-collective/sqlcsv-cli/internal/version"
	"github.com/open-cli-collective/sqlcsv-cli/internal/view"
	"github.com/open-cli-collective/sqlcsv-cli/pkg/argparams"
)

// Title is printed before every run.
const Title = "sqlcsv - SQL to Comma Separated Value (CSV) file."

// Usage is printed for -help and for an empty invocation.
const Usage = `Usage:
  sqlcsv <query> <file> [-parameter[:value] ...]
  sqlcsv <file> <table> -import [-parameter[:value] ...]
  sqlcsv <query> -to:<address> -from:<address> -subject:<text> -smtpServer:<host> [...]

Parameters start with '-' or '/' and take a value after ':', '=' or a space.
Quote values containing spaces with " or '; double a quote to include it.
Keys are not case sensitive. A key given twice keeps the last value.

Database
  -d, -database:<path>       database to query (a file path for sqlite3)
  -driver:<name>             database/sql driver (default sqlite3)
  -s, -server:<host>         database host; sqlite3 only accepts (local)
  -dsn:<data source>         data source name handed to the driver as is
  -u, -user:<name>           user name
  -p, -password:<text>       password
  -t, -timeout:<seconds>     query timeout, 0 for none

Export
  -q, -query:<sql>           query to export (or the first argument)
  -f, -file:<path>           output file (or the second argument)
  -eh, -excludeHeader        do not write the column names
  -e, -encoding:<name>       ascii (default), unicode, utf8, utf16, utf32
  -export                    export (the default)

Import
  -import                    load <file> into <table>
  -table:<name>              table to load (or the second argument)
  -ct, -createTable          create the table from the file's header first

Fields
  -fs, -fieldSeparator:<c>   one character or \t (default ,)
  -tws, -trimWhiteSpace      trim white space around values
  -r, -replace:<old:new>     replace text in values (\t \n \r \: \\ escapes)
  -lf:<text>, -cr:<text>     replace line feeds or carriage returns
  -rcc:<text>                replace control and non-ASCII characters

E-mail (any of these sends the export by e-mail)
  -from, -to, -cc, -bcc      addresses, ';' separated, "addr (Name)" form
  -subject:<text>            subject line
  -body:<text>               message text
  -bf, -bodyFormat:<format>  text (default), markdown or html
  -attachment:<name>         attach the result instead of inlining it
  -smtpServer:<host[:port]>  SMTP relay

Other
  -pf, -paramFile:<path>     read more parameters from a file, one per line
  -v, -verbose               log diagnostics to stderr
  -h, -help, -?              show this help
  -version                   show the version

Defaults for the database, driver, separator, encoding, SMTP server and
sender can be stored with 'sqlcsv init'.`

// NewCmdRoot creates the root command for sqlcsv.
func NewCmdRoot() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sqlcsv <query|file> <file|table> [-parameter[:value] ...]",
		Short: "Export SQL query results to CSV files and import CSV files into tables",
		Long: `sqlcsv exports the result of a SQL query to a delimited text file or
e-mail, and imports delimited text files into database tables.

` + Usage,
		SilenceUsage:  true,
		SilenceErrors: true,

		// Parameters use their own grammar (-key:value, /key=value) and are
		// read from the raw arguments.
		DisableFlagParsing: true,
		Args:               cobra.ArbitraryArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(cmd.Context(), cmd.OutOrStdout(), os.Stderr, args)
		},
		ValidArgsFunction: completeParameters,
	}

	cmd.PersistentFlags().Bool("no-color", false, "disable colored output")

	cmd.AddCommand(initcmd.NewCmdInit())
	cmd.AddCommand(configcmd.NewCmdConfig())

	return cmd
}

// completeParameters completes parameter names; anything else completes as a
// file name.
func completeParameters(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if toComplete == "" || toComplete[0] != '-' {
		return nil, cobra.ShellCompDirectiveDefault
	}

	prefix := strings.ToLower(toComplete[1:])
	names := append(append([]string{}, options.Parameters...), options.FileKeys[1])
	var matches []string
	for _, name := range names {
		if strings.HasPrefix(strings.ToLower(name), prefix) {
			matches = append(matches, "-"+name)
		}
	}
	return matches, cobra.ShellCompDirectiveNoFileComp
}

// Run performs one export or import described by args. Diagnostics go to
// logOut when -verbose is given.
func Run(ctx context.Context, out, logOut io.Writer, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	r := view.NewRenderer(false)
	r.SetWriter(out)
	r.RenderText(fmt.Sprintf("%s  Version: %s", Title, version.Version))

	line := argparams.Join(args, runtime.GOOS != "windows")
	res, err := argparams.Parse(line, options.ParseOptions())
	if err != nil {
		return err
	}

	o, err := options.FromResult(res)
	switch {
	case errors.Is(err, options.ErrHelp):
		r.RenderText(Usage)
		return nil
	case errors.Is(err, options.ErrVersion):
		r.RenderText(VersionString())
		return nil
	case err != nil:
		return err
	}

	cfg, err := config.LoadWithEnv(config.DefaultConfigPath())
	if err != nil {
		return errors.WithHint(err, "fix or remove the file with 'sqlcsv config clear'")
	}
	if err := o.ApplyConfig(cfg); err != nil {
		return err
	}
	if err := o.Validate(); err != nil {
		return err
	}

	log := logger.New(o.Verbose, logOut)
	defer func() { _ = log.Sync() }()
	log.Debugw("parsed invocation",
		"mode", o.Mode.String(),
		"arguments", res.Arguments,
		"parameters", options.Redacted(res))

	return job.NewRunner(r, log).Run(ctx, o)
}

// VersionString describes the build.
func VersionString() string {
	return "sqlcsv version " + version.Version + " (commit: " + version.Commit + ", built: " + version.Date + ")"
}

// PrintError writes err and its hints the way the CLI reports failures.
func PrintError(w io.Writer, err error) {
	r := view.NewRenderer(false)
	r.SetWriter(w)
	r.Error(err.Error())
	if hint := errors.FlattenHints(err); hint != "" {
		r.Hint(hint)
	}
}
