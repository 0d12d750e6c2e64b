// Package export runs a query and writes its result set as delimited text.
package export

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/open-cli-collective/sqlcsv-cli/internal/csvio"
)

// TimeLayout formats date/time columns.
const TimeLayout = "2006-01-02 15:04:05"

// Querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Options configures an export.
type Options struct {
	Query string

	// Timeout bounds the query. Zero means no limit.
	Timeout time.Duration

	// IncludeHeader writes the column names first.
	IncludeHeader bool

	CSV csvio.Options
}

// Run executes the query and writes every row to w. It returns the number of
// data rows written.
func Run(ctx context.Context, db Querier, w io.Writer, opts Options) (int, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	rows, err := db.QueryContext(ctx, opts.Query)
	if err != nil {
		return 0, errors.Wrap(err, "running query")
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return 0, errors.Wrap(err, "reading columns")
	}

	out := csvio.NewWriter(w, opts.CSV)
	if opts.IncludeHeader {
		if err := out.WriteHeader(columns); err != nil {
			return 0, errors.Wrap(err, "writing header")
		}
	}

	values := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}
	record := make([]string, len(columns))

	count := 0
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return count, errors.Wrapf(err, "reading row %d", count+1)
		}
		for i, v := range values {
			record[i] = FormatValue(v)
		}
		if err := out.Write(record); err != nil {
			return count, errors.Wrapf(err, "writing row %d", count+1)
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return count, errors.Wrap(err, "reading rows")
	}

	if err := out.Flush(); err != nil {
		return count, errors.Wrap(err, "writing output")
	}
	return count, nil
}

// FormatValue renders a scanned column value as text. NULL becomes "".
func FormatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(v)
	case string:
		return v
	case time.Time:
		return v.Format(TimeLayout)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}
