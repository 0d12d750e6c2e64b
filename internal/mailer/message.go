// Package mailer composes MIME messages and hands them to an SMTP server.
package mailer

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// ErrNoRecipients is returned when a message has no To, CC or BCC address.
var ErrNoRecipients = errors.New("message has no recipients")

// Attachment is a file carried by a message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is an e-mail with a plain-text body, an optional HTML
// alternative and optional attachments.
type Message struct {
	From    *mail.Address
	To      []*mail.Address
	CC      []*mail.Address
	BCC     []*mail.Address
	Subject string

	Text string
	HTML string

	Attachments []Attachment

	// Date defaults to the time Bytes is called.
	Date time.Time
}

// Recipients returns every envelope recipient, BCC included.
func (m *Message) Recipients() []string {
	var rcpt []string
	for _, list := range [][]*mail.Address{m.To, m.CC, m.BCC} {
		for _, a := range list {
			rcpt = append(rcpt, a.Address)
		}
	}
	return rcpt
}

// Bytes renders the message in RFC 5322 form with CRLF line endings.
func (m *Message) Bytes() ([]byte, error) {
	if m.From == nil {
		return nil, errors.New("message has no sender")
	}

	header := textproto.MIMEHeader{}
	header.Set("MIME-Version", "1.0")
	header.Set("From", m.From.String())
	if len(m.To) > 0 {
		header.Set("To", joinAddresses(m.To))
	}
	if len(m.CC) > 0 {
		header.Set("Cc", joinAddresses(m.CC))
	}
	header.Set("Subject", mime.QEncoding.Encode("utf-8", m.Subject))

	date := m.Date
	if date.IsZero() {
		date = time.Now()
	}
	header.Set("Date", date.Format(time.RFC1123Z))

	var body bytes.Buffer
	contentType, err := m.writeContent(&body)
	if err != nil {
		return nil, err
	}
	for k, v := range contentType {
		header[k] = v
	}

	var buf bytes.Buffer
	writeHeader(&buf, header)
	buf.Write(body.Bytes())
	return buf.Bytes(), nil
}

// writeContent writes the body and returns the headers describing it.
func (m *Message) writeContent(w io.Writer) (textproto.MIMEHeader, error) {
	if len(m.Attachments) == 0 {
		return m.writeBody(w)
	}

	mixed := multipart.NewWriter(w)

	var body bytes.Buffer
	bodyHeader, err := m.writeBody(&body)
	if err != nil {
		return nil, err
	}
	part, err := mixed.CreatePart(bodyHeader)
	if err != nil {
		return nil, errors.Wrap(err, "creating body part")
	}
	if _, err := part.Write(body.Bytes()); err != nil {
		return nil, errors.Wrap(err, "writing body part")
	}

	for _, a := range m.Attachments {
		if err := writeAttachment(mixed, a); err != nil {
			return nil, errors.Wrapf(err, "attaching %s", a.Filename)
		}
	}
	if err := mixed.Close(); err != nil {
		return nil, errors.Wrap(err, "closing message")
	}

	return textproto.MIMEHeader{
		"Content-Type": {"multipart/mixed; boundary=" + mixed.Boundary()},
	}, nil
}

// writeBody writes the text part, wrapped with the HTML part in
// multipart/alternative when there is one.
func (m *Message) writeBody(w io.Writer) (textproto.MIMEHeader, error) {
	if m.HTML == "" {
		return textPart(w, "text/plain", m.Text)
	}

	alt := multipart.NewWriter(w)
	for _, p := range []struct{ mediaType, text string }{
		{"text/plain", m.Text},
		{"text/html", m.HTML},
	} {
		var content bytes.Buffer
		h, err := textPart(&content, p.mediaType, p.text)
		if err != nil {
			return nil, err
		}
		part, err := alt.CreatePart(h)
		if err != nil {
			return nil, errors.Wrapf(err, "creating %s part", p.mediaType)
		}
		if _, err := part.Write(content.Bytes()); err != nil {
			return nil, errors.Wrapf(err, "writing %s part", p.mediaType)
		}
	}
	if err := alt.Close(); err != nil {
		return nil, errors.Wrap(err, "closing alternative parts")
	}

	return textproto.MIMEHeader{
		"Content-Type": {"multipart/alternative; boundary=" + alt.Boundary()},
	}, nil
}

func textPart(w io.Writer, mediaType, text string) (textproto.MIMEHeader, error) {
	qp := quotedprintable.NewWriter(w)
	if _, err := io.WriteString(qp, toCRLF(text)); err != nil {
		return nil, errors.Wrapf(err, "encoding %s", mediaType)
	}
	if err := qp.Close(); err != nil {
		return nil, errors.Wrapf(err, "encoding %s", mediaType)
	}

	return textproto.MIMEHeader{
		"Content-Type":              {mime.FormatMediaType(mediaType, map[string]string{"charset": "utf-8"})},
		"Content-Transfer-Encoding": {"quoted-printable"},
	}, nil
}

func writeAttachment(mw *multipart.Writer, a Attachment) error {
	contentType := a.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(a.Filename))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	h := textproto.MIMEHeader{}
	h.Set("Content-Type", contentType)
	h.Set("Content-Transfer-Encoding", "base64")
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.Filename}))

	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}

	encoded := base64.StdEncoding.EncodeToString(a.Data)
	for len(encoded) > 76 {
		if _, err := io.WriteString(part, encoded[:76]+"\r\n"); err != nil {
			return err
		}
		encoded = encoded[76:]
	}
	_, err = io.WriteString(part, encoded+"\r\n")
	return err
}

func writeHeader(w io.Writer, header textproto.MIMEHeader) {
	keys := make([]string, 0, len(header))
	for k := range header {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		for _, v := range header[k] {
			fmt.Fprintf(w, "%s: %s\r\n", k, v)
		}
	}
	io.WriteString(w, "\r\n")
}

func joinAddresses(list []*mail.Address) string {
	parts := make([]string, len(list))
	for i, a := range list {
		parts[i] = a.String()
	}
	return strings.Join(parts, ", ")
}

func toCRLF(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\n", "\r\n")
}
