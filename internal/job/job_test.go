package job

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-cli-collective/sqlcsv-cli/internal/csvio"
	"github.com/open-cli-collective/sqlcsv-cli/internal/database"
	"github.com/open-cli-collective/sqlcsv-cli/internal/logger"
	"github.com/open-cli-collective/sqlcsv-cli/internal/mailer"
	"github.com/open-cli-collective/sqlcsv-cli/internal/options"
	"github.com/open-cli-collective/sqlcsv-cli/internal/view"
)

type fakeSender struct {
	server string
	sent   []*mailer.Message
	err    error
}

func (f *fakeSender) Send(_ context.Context, msg *mailer.Message) error {
	f.sent = append(f.sent, msg)
	return f.err
}

// steppingClock advances by step on every call.
func steppingClock(step time.Duration) func() time.Time {
	now := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(step)
		return now
	}
}

func newTestRunner(t *testing.T) (*Runner, *bytes.Buffer, *fakeSender) {
	t.Helper()
	var out bytes.Buffer
	r := view.NewRenderer(true)
	r.SetWriter(&out)

	sender := &fakeSender{}
	runner := NewRunner(r, logger.Nop())
	runner.NewSender = func(server string) mailer.Sender {
		sender.server = server
		return sender
	}
	runner.Now = steppingClock(1500 * time.Millisecond)
	runner.User = "tester"
	return runner, &out, sender
}

func seedDatabase(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sales.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE orders (id INTEGER, customer TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO orders VALUES (1, 'Ann'), (2, 'Zoë')`)
	require.NoError(t, err)
	return path
}

func exportOptions(dbPath, file string) *options.Options {
	return &options.Options{
		Mode:          options.ModeExport,
		Query:         "SELECT id, customer FROM orders ORDER BY id",
		File:          file,
		Database:      database.Settings{Database: dbPath},
		IncludeHeader: true,
	}
}

func TestRun_ExportFile(t *testing.T) {
	runner, out, _ := newTestRunner(t)
	file := filepath.Join(t.TempDir(), "orders.csv")

	err := runner.Run(context.Background(), exportOptions(seedDatabase(t), file))
	require.NoError(t, err)

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "id,customer\n1,Ann\n2,Zo?\n", string(data))

	output := out.String()
	assert.Contains(t, output, "            User: tester")
	assert.Contains(t, output, "           Query: SELECT id, customer FROM orders ORDER BY id")
	assert.Contains(t, output, "     Output file: "+file)
	assert.Contains(t, output, " Field separator: ,")
	assert.Contains(t, output, "Trim white space: false")
	assert.Contains(t, output, "Exported 2 rows in 1.5 seconds.")
}

func TestRun_ExportFile_UTF8(t *testing.T) {
	runner, _, _ := newTestRunner(t)
	file := filepath.Join(t.TempDir(), "orders.csv")

	o := exportOptions(seedDatabase(t), file)
	o.Encoding = "utf8"
	o.IncludeHeader = false
	o.CSV = csvio.Options{Separator: '\t'}
	require.NoError(t, runner.Run(context.Background(), o))

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "\xEF\xBB\xBF1\tAnn\n2\tZoë\n", string(data))
}

func TestRun_ExportFile_QueryError(t *testing.T) {
	runner, _, _ := newTestRunner(t)
	o := exportOptions(seedDatabase(t), filepath.Join(t.TempDir(), "out.csv"))
	o.Query = "SELECT * FROM missing"

	err := runner.Run(context.Background(), o)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "running query")

	_, statErr := os.Stat(o.File)
	assert.True(t, os.IsNotExist(statErr), "failed export should not leave an output file")
}

func TestRun_ExportFile_ConnectionError(t *testing.T) {
	runner, _, _ := newTestRunner(t)
	runner.Open = func(context.Context, database.Settings) (*sql.DB, error) {
		return nil, errors.New("connection refused")
	}
	o := exportOptions("unused.db", filepath.Join(t.TempDir(), "out.csv"))

	err := runner.Run(context.Background(), o)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	_, statErr := os.Stat(o.File)
	assert.True(t, os.IsNotExist(statErr), "failed export should not leave an output file")
}

func TestRun_ExportFile_InjectedDatabase(t *testing.T) {
	runner, _, _ := newTestRunner(t)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	runner.Open = func(context.Context, database.Settings) (*sql.DB, error) {
		return db, nil
	}
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(int64(1)))
	mock.ExpectClose()

	o := exportOptions("unused.db", filepath.Join(t.TempDir(), "one.csv"))
	o.Query = "SELECT 1"
	require.NoError(t, runner.Run(context.Background(), o))
	assert.NoError(t, mock.ExpectationsWereMet())

	data, err := os.ReadFile(o.File)
	require.NoError(t, err)
	assert.Equal(t, "n\n1\n", string(data))
}

func TestRun_Import(t *testing.T) {
	runner, out, _ := newTestRunner(t)
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "target.db")
	file := filepath.Join(dir, "people.csv")
	require.NoError(t, os.WriteFile(file, []byte("\xEF\xBB\xBFid;name\n1; Ann \n2;Bob\n"), 0600))

	o := &options.Options{
		Mode:        options.ModeImport,
		File:        file,
		Table:       "people",
		CreateTable: true,
		Database:    database.Settings{Database: dbPath},
		CSV:         csvio.Options{Separator: ';', TrimSpace: true},
	}
	require.NoError(t, runner.Run(context.Background(), o))

	output := out.String()
	assert.Contains(t, output, "Output table: people")
	assert.Contains(t, output, "Table created.")
	assert.Contains(t, output, "2 rows uploaded")

	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer db.Close()

	var names []string
	rows, err := db.Query(`SELECT name FROM people ORDER BY id`)
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	assert.Equal(t, []string{"Ann", "Bob"}, names)
}

func TestRun_Import_FileNotFound(t *testing.T) {
	runner, _, _ := newTestRunner(t)
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.csv")

	o := &options.Options{
		Mode:        options.ModeImport,
		File:        missing,
		Table:       "people",
		CreateTable: true,
		Database:    database.Settings{Database: filepath.Join(dir, "target.db")},
	}
	err := runner.Run(context.Background(), o)
	require.Error(t, err)
	assert.Equal(t, missing+" not found.", err.Error())
}

func mailOptions(dbPath string) *options.Options {
	o := exportOptions(dbPath, "")
	o.Mail = &options.Mail{
		From:       "reports@example.com (Reports)",
		To:         "ann@example.com; bob@example.com",
		BCC:        "audit@example.com",
		Subject:    "Orders",
		Body:       "Daily orders",
		BodyFormat: options.BodyText,
		SMTPServer: "mail.example.com",
	}
	return o
}

func TestRun_ExportMail_Inline(t *testing.T) {
	runner, out, sender := newTestRunner(t)

	require.NoError(t, runner.Run(context.Background(), mailOptions(seedDatabase(t))))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "mail.example.com", sender.server)

	msg := sender.sent[0]
	assert.Equal(t, "Reports", msg.From.Name)
	assert.Equal(t, []string{"ann@example.com", "bob@example.com", "audit@example.com"}, msg.Recipients())
	assert.Equal(t, "Orders", msg.Subject)
	assert.Equal(t, "Daily orders\n\nid,customer\n1,Ann\n2,Zoë\n", msg.Text)
	assert.Empty(t, msg.HTML)
	assert.Empty(t, msg.Attachments)
	assert.False(t, msg.Date.IsZero())

	assert.Contains(t, out.String(), "Mail sent to 3 recipient(s).")
	assert.NotContains(t, out.String(), "Output file")
}

func TestRun_ExportMail_AttachmentAndFile(t *testing.T) {
	runner, _, sender := newTestRunner(t)
	file := filepath.Join(t.TempDir(), "copy.csv")

	o := mailOptions(seedDatabase(t))
	o.File = file
	o.Encoding = "utf8"
	o.Mail.Attachment = "orders.csv"
	require.NoError(t, runner.Run(context.Background(), o))

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "Daily orders", msg.Text)
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "orders.csv", msg.Attachments[0].Filename)
	assert.Equal(t, "text/csv; charset=utf-8", msg.Attachments[0].ContentType)
	assert.Equal(t, "\xEF\xBB\xBFid,customer\n1,Ann\n2,Zoë\n", string(msg.Attachments[0].Data))

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, msg.Attachments[0].Data, data)
}

func TestRun_ExportMail_InvalidAddress(t *testing.T) {
	runner, _, sender := newTestRunner(t)

	o := mailOptions(seedDatabase(t))
	o.Mail.To = "not-an-address"
	err := runner.Run(context.Background(), o)
	require.Error(t, err)
	assert.Equal(t, `"To" has an invalid email address of "not-an-address"`, err.Error())
	assert.Empty(t, sender.sent)
}

func TestRun_ExportMail_SendError(t *testing.T) {
	runner, _, sender := newTestRunner(t)
	sender.err = mailer.ErrNoRecipients

	err := runner.Run(context.Background(), mailOptions(seedDatabase(t)))
	require.Error(t, err)
	assert.ErrorIs(t, err, mailer.ErrNoRecipients)
	assert.Contains(t, err.Error(), "sending mail")
}

func TestComposeBody(t *testing.T) {
	tests := []struct {
		name     string
		format   options.BodyFormat
		body     string
		csv      string
		wantText string
		wantHTML string
	}{
		{
			name:     "text with csv",
			format:   options.BodyText,
			body:     "Hello",
			csv:      "a,b\n",
			wantText: "Hello\n\na,b\n",
		},
		{
			name:     "text without body",
			format:   options.BodyText,
			csv:      "a,b\n",
			wantText: "a,b\n",
		},
		{
			name:     "markdown attached",
			format:   options.BodyMarkdown,
			body:     "**Hello**",
			wantText: "**Hello**",
			wantHTML: "<p><strong>Hello</strong></p>\n",
		},
		{
			name:     "markdown with csv",
			format:   options.BodyMarkdown,
			body:     "Hi",
			csv:      "a<b\n",
			wantText: "Hi\n\na<b\n",
			wantHTML: "<p>Hi</p>\n<pre>a&lt;b\n</pre>\n",
		},
		{
			name:     "html attached",
			format:   options.BodyHTML,
			body:     "<p>Hello <strong>there</strong></p>",
			wantText: "Hello **there**",
			wantHTML: "<p>Hello <strong>there</strong></p>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, html, err := composeBody(tt.format, tt.body, tt.csv)
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, text)
			assert.Equal(t, tt.wantHTML, html)
		})
	}
}

func TestSeparatorLabel(t *testing.T) {
	assert.Equal(t, ",", separatorLabel(0))
	assert.Equal(t, `\t`, separatorLabel('\t'))
	assert.Equal(t, ";", separatorLabel(';'))
}

func TestRun_UnsupportedEncoding(t *testing.T) {
	runner, _, _ := newTestRunner(t)
	o := exportOptions("x.db", "out.csv")
	o.Encoding = "utf7"

	err := runner.Run(context.Background(), o)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unsupported encoding"))
}
