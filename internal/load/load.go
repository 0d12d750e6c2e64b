// Package load uploads delimited text files into a database table.
package load

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"

	"github.com/open-cli-collective/sqlcsv-cli/internal/csvio"
)

// DefaultNotifyAfter is the progress reporting interval in rows.
const DefaultNotifyAfter = 100

// Execer is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Options configures a load.
type Options struct {
	Table string
	CSV   csvio.Options

	// NotifyAfter is how many rows pass between Progress calls. Zero means
	// DefaultNotifyAfter.
	NotifyAfter int

	// Progress, when set, receives the running row count.
	Progress func(rows int)
}

// QuoteIdentifier quotes a table or column name for SQL.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// ScanColumns reads the header of r and the widest value of each column,
// counted in characters.
func ScanColumns(r io.Reader, opts csvio.Options) ([]string, []int, error) {
	reader := csvio.NewReader(r, opts)

	names, err := reader.ReadHeader()
	if err == io.EOF {
		return nil, nil, errors.New("file has no header row")
	}
	if err != nil {
		return nil, nil, errors.Wrap(err, "reading header")
	}

	widths := make([]int, len(names))
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, errors.Wrap(err, "reading record")
		}
		for i := 0; i < len(record) && i < len(names); i++ {
			if n := utf8.RuneCountInString(record[i]); n > widths[i] {
				widths[i] = n
			}
		}
	}
	return names, widths, nil
}

// CreateTableSQL builds a CREATE TABLE statement with one VARCHAR column
// per name. Widths below one are raised to one.
func CreateTableSQL(table string, names []string, widths []int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", QuoteIdentifier(table))
	for i, name := range names {
		if i > 0 {
			b.WriteString(",\n")
		}
		width := 1
		if i < len(widths) && widths[i] > 1 {
			width = widths[i]
		}
		fmt.Fprintf(&b, "%s VARCHAR(%d)", QuoteIdentifier(name), width)
	}
	b.WriteString("\n)")
	return b.String()
}

// CreateTable scans r and creates a table wide enough for its contents.
func CreateTable(ctx context.Context, db Execer, table string, r io.Reader, opts csvio.Options) error {
	names, widths, err := ScanColumns(r, opts)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, CreateTableSQL(table, names, widths)); err != nil {
		return errors.Wrapf(err, "creating table %s", table)
	}
	return nil
}

// InsertSQL builds the parameterized INSERT statement for the columns.
func InsertSQL(table string, columns []string) string {
	quoted := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = QuoteIdentifier(c)
		marks[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		QuoteIdentifier(table), strings.Join(quoted, ", "), strings.Join(marks, ", "))
}

// Load inserts every record of r into the table inside one transaction.
// The first record names the columns. Missing trailing fields are NULL and
// extra fields are ignored. It returns the number of rows inserted.
func Load(ctx context.Context, db *sql.DB, r io.Reader, opts Options) (count int, err error) {
	reader := csvio.NewReader(r, opts.CSV)

	columns, err := reader.ReadHeader()
	if err == io.EOF {
		return 0, errors.New("file has no header row")
	}
	if err != nil {
		return 0, errors.Wrap(err, "reading header")
	}

	notifyAfter := opts.NotifyAfter
	if notifyAfter <= 0 {
		notifyAfter = DefaultNotifyAfter
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "starting transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, InsertSQL(opts.Table, columns))
	if err != nil {
		return 0, errors.Wrapf(err, "preparing insert into %s", opts.Table)
	}
	defer stmt.Close()

	args := make([]any, len(columns))
	for {
		record, readErr := reader.Read()
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return count, errors.Wrapf(readErr, "reading record %d", count+1)
		}

		for i := range args {
			args[i] = nil
			if i < len(record) {
				args[i] = record[i]
			}
		}
		if _, err = stmt.ExecContext(ctx, args...); err != nil {
			return count, errors.Wrapf(err, "inserting record %d", count+1)
		}

		count++
		if opts.Progress != nil && count%notifyAfter == 0 {
			opts.Progress(count)
		}
	}

	if err = tx.Commit(); err != nil {
		return count, errors.Wrap(err, "committing")
	}
	return count, nil
}
