package output

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	serrors "github.com/searchfs/searchfs/internal/errors"
	"github.com/searchfs/searchfs/internal/store"
)

// Format selects how search results are printed.
type Format string

const (
	// FormatPath prints the absolute path only.
	FormatPath Format = "path"
	// FormatLong prints type, size, modification time and path.
	FormatLong Format = "long"
	// FormatJSON prints one JSON object per entry.
	FormatJSON Format = "json"
)

// LongTimeLayout is the time layout of FormatLong.
const LongTimeLayout = "2006-01-02 15:04:05"

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatPath, nil
	case FormatPath, FormatLong, FormatJSON:
		return f, nil
	default:
		return "", serrors.ValidationError(fmt.Sprintf("unknown output format %q (use path, long or json)", s), nil)
	}
}

// EntryOptions configures an EntryWriter.
type EntryOptions struct {
	Format Format
	// NullSeparator terminates records with NUL instead of newline.
	NullSeparator bool
	// Human prints sizes as KiB/MiB/... in FormatLong.
	Human bool
}

// EntryWriter prints search results. Call Flush when done.
type EntryWriter struct {
	w    *bufio.Writer
	opts EntryOptions
	sep  byte
	n    int64
}

// NewEntryWriter creates an EntryWriter on out.
func NewEntryWriter(out io.Writer, opts EntryOptions) *EntryWriter {
	if opts.Format == "" {
		opts.Format = FormatPath
	}
	sep := byte('\n')
	if opts.NullSeparator {
		sep = 0
	}
	return &EntryWriter{w: bufio.NewWriter(out), opts: opts, sep: sep}
}

// jsonEntry is the FormatJSON record. Size is omitted for directories.
type jsonEntry struct {
	Path     string `json:"path"`
	Parent   string `json:"parent"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Size     *int64 `json:"size,omitempty"`
	Created  string `json:"created"`
	Modified string `json:"modified"`
}

// Write prints one entry.
func (w *EntryWriter) Write(e store.Entry) error {
	var err error
	switch w.opts.Format {
	case FormatLong:
		_, err = w.w.WriteString(w.long(e))
	case FormatJSON:
		err = w.writeJSON(e)
	default:
		_, err = w.w.WriteString(e.Path)
	}
	if err != nil {
		return err
	}
	w.n++
	return w.w.WriteByte(w.sep)
}

// Count returns the number of entries written.
func (w *EntryWriter) Count() int64 {
	return w.n
}

// Flush writes any buffered output.
func (w *EntryWriter) Flush() error {
	return w.w.Flush()
}

func (w *EntryWriter) long(e store.Entry) string {
	return fmt.Sprintf("%s %10s %s %s",
		e.Type.Short(), w.size(e), e.Modified.Local().Format(LongTimeLayout), e.Path)
}

func (w *EntryWriter) size(e store.Entry) string {
	if !e.HasSize() {
		return "-"
	}
	if w.opts.Human {
		return humanize.IBytes(uint64(max(e.Size, 0)))
	}
	return fmt.Sprintf("%d", e.Size)
}

func (w *EntryWriter) writeJSON(e store.Entry) error {
	rec := jsonEntry{
		Path:     e.Path,
		Parent:   e.Parent,
		Name:     e.Name,
		Type:     e.Type.String(),
		Created:  e.Created.UTC().Format(time.RFC3339Nano),
		Modified: e.Modified.UTC().Format(time.RFC3339Nano),
	}
	if e.HasSize() {
		size := e.Size
		rec.Size = &size
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = w.w.Write(data)
	return err
}
