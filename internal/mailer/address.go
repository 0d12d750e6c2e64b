package mailer

import (
	"net/mail"
	"strings"

	"github.com/cockroachdb/errors"
)

// ParseAddress reads one address written as "addr" or "addr (Display Name)".
// A blank address is an error when required and nil otherwise. field names
// the parameter in error messages.
func ParseAddress(text, field string, required bool) (*mail.Address, error) {
	text = strings.TrimSpace(text)

	var name string
	if strings.HasSuffix(text, ")") {
		if open := strings.LastIndexByte(text, '('); open > 0 {
			name = strings.TrimSpace(text[open+1 : len(text)-1])
			text = strings.TrimSpace(text[:open])
		}
	}

	if text == "" {
		if required {
			return nil, errors.Newf("%q requires an email address", field)
		}
		return nil, nil
	}

	addr, err := mail.ParseAddress(text)
	if err != nil {
		return nil, errors.Newf("%q has an invalid email address of %q", field, text)
	}
	if name != "" {
		addr.Name = name
	}
	return addr, nil
}

// ParseAddressList reads a ';'-separated list of addresses. Blank entries are
// skipped.
func ParseAddressList(text, field string, required bool) ([]*mail.Address, error) {
	var list []*mail.Address
	for _, item := range strings.Split(text, ";") {
		addr, err := ParseAddress(item, field, false)
		if err != nil {
			return nil, err
		}
		if addr != nil {
			list = append(list, addr)
		}
	}

	if len(list) == 0 && required {
		return nil, errors.Newf("%q requires an email address", field)
	}
	return list, nil
}
