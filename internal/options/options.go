// Package options binds parsed invocation parameters to the settings of an
// export or import run.
package options

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cockroachdb/errors"

	"github.com/open-cli-collective/sqlcsv-cli/internal/config"
	"github.com/open-cli-collective/sqlcsv-cli/internal/csvio"
	"github.com/open-cli-collective/sqlcsv-cli/internal/database"
	"github.com/open-cli-collective/sqlcsv-cli/internal/textenc"
	"github.com/open-cli-collective/sqlcsv-cli/pkg/argparams"
)

var (
	// ErrHelp is returned when usage should be printed instead of running.
	ErrHelp = errors.New("help requested")

	// ErrVersion is returned when the version should be printed.
	ErrVersion = errors.New("version requested")
)

// FileKeys name parameter files.
var FileKeys = []string{"PF", "paramFile", "parameterFile"}

// Parameters lists the long name of every parameter FromResult accepts.
var Parameters = []string{
	"query", "file", "table", "import", "export", "createTable",
	"database", "driver", "server", "dsn", "user", "password", "timeout",
	"excludeHeader", "encoding", "fieldSeparator", "trimWhiteSpace",
	"replace", "lf", "cr", "replaceControlCharacter",
	"from", "to", "cc", "bcc", "subject", "body", "bodyFormat", "attachment", "smtpServer",
	"verbose", "help", "version",
}

// ParseOptions returns the argparams configuration sqlcsv parses with.
func ParseOptions() argparams.Options {
	return argparams.Options{
		IgnoreCase: true,
		Merge:      argparams.Overwrite(),
		FileKeys:   FileKeys,
	}
}

// Mode selects the direction of a run.
type Mode int

const (
	ModeExport Mode = iota
	ModeImport
)

func (m Mode) String() string {
	if m == ModeImport {
		return "import"
	}
	return "export"
}

// BodyFormat is how the e-mail body parameter is written.
type BodyFormat string

const (
	BodyText     BodyFormat = "text"
	BodyMarkdown BodyFormat = "markdown"
	BodyHTML     BodyFormat = "html"
)

func parseBodyFormat(s string) (BodyFormat, error) {
	switch f := BodyFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case BodyText, BodyMarkdown, BodyHTML:
		return f, nil
	case "md":
		return BodyMarkdown, nil
	default:
		return "", errors.WithHint(errors.Newf("Invalid body format: %s", s),
			`must be "text", "markdown" or "html"`)
	}
}

// Mail holds the e-mail settings of an export.
type Mail struct {
	From       string
	To         string
	CC         string
	BCC        string
	Subject    string
	Body       string
	BodyFormat BodyFormat
	SMTPServer string

	// Attachment, when set, sends the result as a file of this name
	// instead of inlining it in the body.
	Attachment string
}

// Options is everything a run needs.
type Options struct {
	Mode  Mode
	Query string
	File  string
	Table string

	Database database.Settings

	CSV           csvio.Options
	IncludeHeader bool
	Encoding      string
	Timeout       time.Duration
	CreateTable   bool
	Verbose       bool

	// Mail is nil unless an e-mail parameter was given.
	Mail *Mail

	separatorSet bool
}

// Emailing reports whether the export result is mailed.
func (o *Options) Emailing() bool {
	return o.Mail != nil
}

// FromResult binds a parse result. It returns ErrHelp or ErrVersion when
// those were asked for, and an error naming the first invalid parameter.
func FromResult(res *argparams.Result) (*Options, error) {
	if res.Empty() {
		return nil, ErrHelp
	}

	o := &Options{IncludeHeader: true}

	if res.Params.Has("import") {
		o.Mode = ModeImport
	}

	if arg, ok := res.Argument(0); ok {
		if o.Mode == ModeImport {
			o.File = arg
		} else {
			o.Query = arg
		}
	}
	if arg, ok := res.Argument(1); ok {
		if o.Mode == ModeImport {
			o.Table = arg
		} else {
			o.File = arg
		}
	}
	if len(res.Arguments) > 2 {
		return nil, errors.WithHint(errors.New("Too many arguments."),
			"quote values that contain spaces")
	}

	var (
		isExport, isImport bool
		mail               Mail
		mailSet            bool
	)

	for _, e := range res.Params.Entries() {
		value := e.Value
		switch strings.ToLower(strings.TrimSpace(e.Key)) {
		case "attachment", "attachmentfile", "attachmentfilename":
			mail.Attachment, mailSet = value, true
		case "bcc":
			mail.BCC, mailSet = value, true
		case "body":
			mail.Body, mailSet = value, true
		case "bodyformat", "bf":
			f, err := parseBodyFormat(value)
			if err != nil {
				return nil, err
			}
			mail.BodyFormat = f
		case "cc":
			mail.CC, mailSet = value, true
		case "ct", "create", "createtable":
			o.CreateTable = true
		case "d", "database":
			o.Database.Database = value
		case "driver":
			o.Database.Driver = value
		case "dsn":
			o.Database.DSN = value
		case "e", "encoding":
			if _, err := textenc.Lookup(value); err != nil {
				return nil, errors.Wrap(err, "Invalid encoding")
			}
			o.Encoding = strings.ToLower(strings.TrimSpace(value))
		case "eh", "excludeheader":
			o.IncludeHeader = false
		case "export":
			isExport = true
		case "fs", "fieldseparator":
			sep, err := ParseSeparator(value)
			if err != nil {
				return nil, err
			}
			o.CSV.Separator, o.separatorSet = sep, true
		case "f", "file":
			o.File = value
		case "from":
			mail.From, mailSet = value, true
		case "h", "help", "?":
			return nil, ErrHelp
		case "version":
			return nil, ErrVersion
		case "import":
			isImport = true
		case "lf":
			o.CSV.Replace = append(o.CSV.Replace, csvio.ReplaceRule{Old: "\n", New: value})
		case "cr":
			o.CSV.Replace = append(o.CSV.Replace, csvio.ReplaceRule{Old: "\r", New: value})
		case "r", "replace":
			o.CSV.Replace = append(o.CSV.Replace, csvio.ParseReplaceRule(value))
		case "rcc", "replacecontrolcharacter":
			replacement := value
			o.CSV.ControlReplacement = &replacement
		case "p", "password":
			o.Database.Password = value
		case "q", "query":
			o.Query = value
		case "s", "server":
			o.Database.Server = value
		case "smtpserver":
			mail.SMTPServer, mailSet = value, true
		case "subject":
			mail.Subject, mailSet = value, true
		case "t", "timeout":
			seconds, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return nil, errors.New("Invalid timeout value.")
			}
			if seconds < 0 {
				return nil, errors.New("Timeout must be a positive value.")
			}
			o.Timeout = time.Duration(seconds) * time.Second
		case "table":
			o.Table = value
		case "to":
			mail.To, mailSet = value, true
		case "tws", "trimwhitespace":
			o.CSV.TrimSpace = true
		case "u", "user":
			o.Database.User = value
		case "v", "verbose":
			o.Verbose = true
		default:
			return nil, errors.WithHint(errors.Newf("Invalid parameter: %s", e.Key),
				"run 'sqlcsv -help' for the list of parameters")
		}
	}

	if isImport && isExport {
		return nil, errors.New(`Only one "Import" or "Export" parameter can be set.`)
	}
	if mailSet {
		if mail.BodyFormat == "" {
			mail.BodyFormat = BodyText
		}
		o.Mail = &mail
	}

	return o, nil
}

// ParseSeparator reads a field separator: one character or `\t`.
func ParseSeparator(text string) (rune, error) {
	text = strings.TrimSpace(text)
	if text == `\t` {
		return '\t', nil
	}
	if utf8.RuneCountInString(text) != 1 {
		return 0, errors.New(`The field separator can only be one character or \t`)
	}
	r, _ := utf8.DecodeRuneInString(text)
	if err := csvio.ValidateSeparator(r); err != nil {
		return 0, err
	}
	return r, nil
}

// ApplyConfig fills values the invocation left unset from cfg. E-mail
// defaults only apply to a run that is already e-mailing.
func (o *Options) ApplyConfig(cfg *config.Config) error {
	if cfg == nil {
		return nil
	}

	if o.Database.Driver == "" {
		o.Database.Driver = cfg.Driver
	}
	if o.Database.Database == "" && o.Database.DSN == "" {
		o.Database.Database = cfg.Database
	}
	if !o.separatorSet && cfg.FieldSeparator != "" {
		sep, err := ParseSeparator(cfg.FieldSeparator)
		if err != nil {
			return errors.Wrap(err, "config field_separator")
		}
		o.CSV.Separator = sep
	}
	if o.Encoding == "" && cfg.Encoding != "" {
		if _, err := textenc.Lookup(cfg.Encoding); err != nil {
			return errors.Wrap(err, "config encoding")
		}
		o.Encoding = strings.ToLower(strings.TrimSpace(cfg.Encoding))
	}

	if o.Mail != nil {
		if o.Mail.SMTPServer == "" {
			o.Mail.SMTPServer = cfg.SMTPServer
		}
		if o.Mail.From == "" {
			o.Mail.From = cfg.From
		}
	}
	return nil
}

// Validate checks that the run has what its mode requires.
func (o *Options) Validate() error {
	if o.Mode == ModeImport {
		if o.Emailing() {
			return errors.New("Can't import and email.")
		}
		if o.File == "" {
			return errors.New(`"File" parameter/argument is required.`)
		}
		if o.Table == "" {
			return errors.New(`"Table" parameter/argument is required.`)
		}
		return o.Database.Validate()
	}

	if o.Query == "" {
		return errors.New(`"Query" parameter/argument is required.`)
	}
	if o.Emailing() {
		switch {
		case o.Mail.From == "":
			return errors.New(`Must have a "From" email address`)
		case o.Mail.To == "":
			return errors.New(`Must have a "To" email address`)
		case o.Mail.Subject == "":
			return errors.New(`Must have a "Subject"`)
		case o.Mail.SMTPServer == "":
			return errors.New(`Must have a "SmtpServer"`)
		}
	} else if o.File == "" {
		return errors.New(`"File" parameter/argument is required.`)
	}
	return o.Database.Validate()
}

// EncodingName returns the output encoding, defaulted.
func (o *Options) EncodingName() string {
	if o.Encoding == "" {
		return textenc.Default
	}
	return o.Encoding
}

// Redacted returns the parameters for logging with the password masked.
func Redacted(res *argparams.Result) map[string]string {
	out := res.Params.ToMap()
	for k := range out {
		switch strings.ToLower(k) {
		case "p", "password":
			out[k] = "****"
		}
	}
	return out
}
