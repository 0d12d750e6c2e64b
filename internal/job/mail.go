package job

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/open-cli-collective/sqlcsv-cli/internal/mailer"
	"github.com/open-cli-collective/sqlcsv-cli/internal/options"
	"github.com/open-cli-collective/sqlcsv-cli/internal/textenc"
	"github.com/open-cli-collective/sqlcsv-cli/pkg/md"
)

func (r *Runner) exportMail(ctx context.Context, o *options.Options, enc textenc.Encoding) error {
	r.banner(o)

	var csvText strings.Builder
	if err := r.query(ctx, o, &csvText); err != nil {
		return err
	}

	if o.File != "" {
		if err := writeFile(o.File, enc, csvText.String()); err != nil {
			return err
		}
	}

	msg, err := composeMessage(o.Mail, csvText.String(), enc)
	if err != nil {
		return err
	}
	msg.Date = r.Now()

	r.Log.Infow("sending mail", "server", o.Mail.SMTPServer, "recipients", len(msg.Recipients()))
	if err := r.NewSender(o.Mail.SMTPServer).Send(ctx, msg); err != nil {
		return errors.Wrap(err, "sending mail")
	}

	r.Out.Success(fmt.Sprintf("Mail sent to %d recipient(s).", len(msg.Recipients())))
	return nil
}

func composeMessage(m *options.Mail, csvText string, enc textenc.Encoding) (*mailer.Message, error) {
	from, err := mailer.ParseAddress(m.From, "From", true)
	if err != nil {
		return nil, err
	}
	to, err := mailer.ParseAddressList(m.To, "To", true)
	if err != nil {
		return nil, err
	}
	cc, err := mailer.ParseAddressList(m.CC, "CC", false)
	if err != nil {
		return nil, err
	}
	bcc, err := mailer.ParseAddressList(m.BCC, "BCC", false)
	if err != nil {
		return nil, err
	}

	msg := &mailer.Message{
		From:    from,
		To:      to,
		CC:      cc,
		BCC:     bcc,
		Subject: m.Subject,
	}

	inline := ""
	if m.Attachment != "" {
		data, err := enc.Bytes(csvText)
		if err != nil {
			return nil, err
		}
		msg.Attachments = []mailer.Attachment{{
			Filename:    m.Attachment,
			ContentType: "text/csv; charset=" + enc.Charset(),
			Data:        data,
		}}
	} else {
		inline = csvText
	}

	msg.Text, msg.HTML, err = composeBody(m.BodyFormat, m.Body, inline)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// composeBody returns the plain-text and HTML parts for body written in
// format, with csvText appended when it is not attached.
func composeBody(format options.BodyFormat, body, csvText string) (text, htmlBody string, err error) {
	switch format {
	case options.BodyMarkdown:
		text = body
		htmlBody, err = md.ToHTML(body)
		if err != nil {
			return "", "", errors.Wrap(err, "rendering markdown body")
		}
	case options.BodyHTML:
		htmlBody = body
		text, err = md.ToMarkdown(body)
		if err != nil {
			return "", "", errors.Wrap(err, "converting HTML body")
		}
	default:
		return appendText(body, csvText), "", nil
	}

	if csvText != "" {
		htmlBody += "<pre>" + html.EscapeString(csvText) + "</pre>\n"
	}
	return appendText(text, csvText), htmlBody, nil
}

func appendText(body, csvText string) string {
	switch {
	case csvText == "":
		return body
	case body == "":
		return csvText
	default:
		return body + "\n\n" + csvText
	}
}
