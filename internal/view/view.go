// Package view provides console output formatting for sqlcsv.
package view

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
)

// KeyValue is one line of a banner.
type KeyValue struct {
	Key   string
	Value string
}

// Renderer writes human-facing output.
type Renderer struct {
	writer  io.Writer
	noColor bool
}

// NewRenderer creates a renderer writing to stdout.
func NewRenderer(noColor bool) *Renderer {
	if noColor {
		color.NoColor = true
	}
	return &Renderer{
		writer:  os.Stdout,
		noColor: noColor,
	}
}

// SetWriter sets the output writer.
func (r *Renderer) SetWriter(w io.Writer) {
	r.writer = w
}

// Writer returns the output writer.
func (r *Renderer) Writer() io.Writer {
	return r.writer
}

// RenderText renders plain text.
func (r *Renderer) RenderText(text string) {
	fmt.Fprintln(r.writer, text)
}

// RenderKeyValue renders a key-value pair.
func (r *Renderer) RenderKeyValue(key, value string) {
	bold := color.New(color.Bold)
	bold.Fprintf(r.writer, "%s: ", key)
	fmt.Fprintln(r.writer, value)
}

// RenderBanner renders key-value pairs with the keys right-aligned on the
// colon.
func (r *Renderer) RenderBanner(pairs []KeyValue) {
	width := 0
	for _, p := range pairs {
		if len(p.Key) > width {
			width = len(p.Key)
		}
	}

	bold := color.New(color.Bold)
	for _, p := range pairs {
		bold.Fprintf(r.writer, "%*s: ", width, p.Key)
		fmt.Fprintln(r.writer, p.Value)
	}
}

// Success prints a success message.
func (r *Renderer) Success(msg string) {
	green := color.New(color.FgGreen)
	green.Fprintln(r.writer, "✓ "+msg)
}

// Error prints an error message.
func (r *Renderer) Error(msg string) {
	red := color.New(color.FgRed)
	red.Fprintln(r.writer, "✗ Error: "+msg)
}

// Hint prints a dimmed follow-up line under an error.
func (r *Renderer) Hint(msg string) {
	dim := color.New(color.Faint)
	dim.Fprintln(r.writer, "  "+msg)
}

// Progress prints a running row count.
func (r *Renderer) Progress(rows int, verb string) {
	fmt.Fprintf(r.writer, "%s rows %s\n", Count(rows), verb)
}

// Count formats a row count with thousands separators.
func Count(n int) string {
	return humanize.Comma(int64(n))
}

// FormatDuration renders an elapsed time as "1 day 2 hours 3 minutes
// 4 seconds". Below one minute, fractional seconds are shown with up to
// three decimals.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}

	var parts []string
	if days := int64(d / (24 * time.Hour)); days > 0 {
		parts = append(parts, plural(days, "day"))
	}
	if hours := int64(d/time.Hour) % 24; hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes := int64(d/time.Minute) % 60; minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}

	ms := int64(d/time.Millisecond) % 1000
	switch {
	case d < time.Minute && ms != 0:
		parts = append(parts, fractionalSeconds(d)+" seconds")
	default:
		if seconds := int64(d/time.Second) % 60; seconds > 0 {
			parts = append(parts, plural(seconds, "second"))
		}
	}

	if len(parts) == 0 {
		return "0 seconds"
	}
	return strings.Join(parts, " ")
}

func plural(n int64, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return humanize.Comma(n) + " " + unit + "s"
}

// fractionalSeconds keeps at least one and at most three decimals.
func fractionalSeconds(d time.Duration) string {
	text := strconv.FormatFloat(float64(d.Milliseconds())/1000, 'f', 3, 64)
	text = strings.TrimRight(text, "0")
	if strings.HasSuffix(text, ".") {
		text += "0"
	}
	return text
}
