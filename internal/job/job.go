// Package job runs an export or import described by options.Options.
package job

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/user"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/open-cli-collective/sqlcsv-cli/internal/database"
	"github.com/open-cli-collective/sqlcsv-cli/internal/export"
	"github.com/open-cli-collective/sqlcsv-cli/internal/load"
	"github.com/open-cli-collective/sqlcsv-cli/internal/mailer"
	"github.com/open-cli-collective/sqlcsv-cli/internal/options"
	"github.com/open-cli-collective/sqlcsv-cli/internal/textenc"
	"github.com/open-cli-collective/sqlcsv-cli/internal/view"
)

// Runner executes runs. The function fields are replaceable for tests.
type Runner struct {
	Out *view.Renderer
	Log *zap.SugaredLogger

	// Open connects to the database.
	Open func(ctx context.Context, s database.Settings) (*sql.DB, error)

	// NewSender returns the mail transport for an SMTP server.
	NewSender func(server string) mailer.Sender

	Now func() time.Time

	// User is shown in the banner when set.
	User string
}

// NewRunner returns a Runner wired to the real database and SMTP transport.
func NewRunner(out *view.Renderer, log *zap.SugaredLogger) *Runner {
	return &Runner{
		Out:  out,
		Log:  log,
		Open: database.Open,
		NewSender: func(server string) mailer.Sender {
			return mailer.NewSMTPSender(server)
		},
		Now:  time.Now,
		User: currentUser(),
	}
}

func currentUser() string {
	u, err := user.Current()
	if err != nil {
		return ""
	}
	return u.Username
}

// Run dispatches on the mode of o.
func (r *Runner) Run(ctx context.Context, o *options.Options) error {
	enc, err := textenc.Lookup(o.EncodingName())
	if err != nil {
		return err
	}

	switch {
	case o.Mode == options.ModeImport:
		return r.importFile(ctx, o)
	case o.Emailing():
		return r.exportMail(ctx, o, enc)
	default:
		return r.exportFile(ctx, o, enc)
	}
}

func (r *Runner) banner(o *options.Options) {
	var pairs []view.KeyValue
	if r.User != "" {
		pairs = append(pairs, view.KeyValue{Key: "User", Value: r.User})
	}
	if o.Mode == options.ModeImport {
		pairs = append(pairs,
			view.KeyValue{Key: "File", Value: o.File},
			view.KeyValue{Key: "Output table", Value: o.Table},
		)
	} else {
		pairs = append(pairs, view.KeyValue{Key: "Query", Value: o.Query})
		if o.File != "" {
			pairs = append(pairs, view.KeyValue{Key: "Output file", Value: o.File})
		}
	}
	pairs = append(pairs,
		view.KeyValue{Key: "Connection", Value: o.Database.Redacted()},
		view.KeyValue{Key: "Field separator", Value: separatorLabel(o.CSV.Separator)},
		view.KeyValue{Key: "Trim white space", Value: strconv.FormatBool(o.CSV.TrimSpace)},
	)
	r.Out.RenderBanner(pairs)
}

func separatorLabel(sep rune) string {
	switch sep {
	case 0:
		return ","
	case '\t':
		return `\t`
	default:
		return string(sep)
	}
}

func (r *Runner) open(ctx context.Context, o *options.Options) (*sql.DB, error) {
	r.Log.Debugw("opening database", "connection", o.Database.Redacted())
	return r.Open(ctx, o.Database)
}

// query runs the export into w and reports the row count and elapsed time.
func (r *Runner) query(ctx context.Context, o *options.Options, w io.Writer) error {
	db, err := r.open(ctx, o)
	if err != nil {
		return err
	}
	defer db.Close()

	start := r.Now()
	r.Log.Infow("running query", "timeout", o.Timeout)
	count, err := export.Run(ctx, db, w, export.Options{
		Query:         o.Query,
		Timeout:       o.Timeout,
		IncludeHeader: o.IncludeHeader,
		CSV:           o.CSV,
	})
	if err != nil {
		return err
	}

	elapsed := r.Now().Sub(start)
	r.Log.Debugw("query finished", "rows", count, "elapsed", elapsed)
	r.Out.RenderText(fmt.Sprintf("Exported %s rows in %s.", view.Count(count), view.FormatDuration(elapsed)))
	return nil
}

func (r *Runner) exportFile(ctx context.Context, o *options.Options, enc textenc.Encoding) error {
	r.banner(o)

	f, err := os.Create(o.File)
	if err != nil {
		return errors.Wrapf(err, "creating %s", o.File)
	}
	w := enc.NewWriter(f)

	if err := r.query(ctx, o, w); err != nil {
		_ = w.Close()
		_ = f.Close()
		// No partial or empty output is left behind.
		if rmErr := os.Remove(o.File); rmErr != nil {
			r.Log.Warnw("removing output file", "file", o.File, "error", rmErr)
		}
		return err
	}
	if err := w.Close(); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "writing %s", o.File)
	}
	return errors.Wrapf(f.Close(), "closing %s", o.File)
}

func writeFile(path string, enc textenc.Encoding, text string) error {
	data, err := enc.Bytes(text)
	if err != nil {
		return err
	}
	return errors.Wrapf(os.WriteFile(path, data, 0644), "writing %s", path)
}

func (r *Runner) importFile(ctx context.Context, o *options.Options) error {
	r.banner(o)

	db, err := r.open(ctx, o)
	if err != nil {
		return err
	}
	defer db.Close()

	if o.CreateTable {
		err := withFile(o.File, func(in io.Reader) error {
			return load.CreateTable(ctx, db, o.Table, in, o.CSV)
		})
		if err != nil {
			return err
		}
		r.Out.Success("Table created.")
	}

	start := r.Now()
	var count int
	err = withFile(o.File, func(in io.Reader) error {
		var err error
		count, err = load.Load(ctx, db, in, load.Options{
			Table: o.Table,
			CSV:   o.CSV,
			Progress: func(rows int) {
				r.Out.Progress(rows, "uploaded")
			},
		})
		return err
	})
	if err != nil {
		return err
	}

	r.Log.Debugw("load finished", "rows", count, "elapsed", r.Now().Sub(start))
	r.Out.Success(fmt.Sprintf("%s rows uploaded", view.Count(count)))
	return nil
}

// withFile opens path decoded to UTF-8 and hands it to fn.
func withFile(path string, fn func(io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return errors.Newf("%s not found.", path)
		}
		return errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	return fn(textenc.NewReader(f))
}
