package logging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/journal"
)

// Coded is implemented by errors that carry a machine-readable failure
// code. The journal handler stores the code next to the error text, so
// `journalctl ERROR_CODE=FORMAT_MISMATCH` finds every negotiation failure.
type Coded interface {
	FailureCode() string
}

// maxFieldName is the longest field name journald accepts.
const maxFieldName = 64

// JournalHandler is a slog.Handler that writes structured entries to the
// systemd journal. Attribute keys become journal field names: upper case,
// groups joined with "_", anything journald would reject mapped to "_".
type JournalHandler struct {
	level slog.Leveler
	// fields holds the attributes added with WithAttrs, already resolved.
	fields map[string]string
	prefix string
}

// NewJournalHandler creates a journal handler that follows level.
func NewJournalHandler(level slog.Leveler) *JournalHandler {
	return &JournalHandler{
		level:  level,
		fields: map[string]string{"SYSLOG_IDENTIFIER": Identifier},
	}
}

// Enabled reports whether the handler handles records at the given level.
func (h *JournalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle sends the record to the journal.
func (h *JournalHandler) Handle(_ context.Context, r slog.Record) error {
	if err := journal.Send(r.Message, priority(r.Level), h.entry(r)); err != nil {
		fmt.Fprintf(os.Stderr, "journal: %v\n", err)
		return err
	}
	return nil
}

// entry builds the journal fields of r. MESSAGE and PRIORITY are set by
// journal.Send.
func (h *JournalHandler) entry(r slog.Record) map[string]string {
	fields := maps.Clone(h.fields)
	r.Attrs(func(a slog.Attr) bool {
		putAttr(fields, h.prefix, a)
		return true
	})
	return fields
}

// WithAttrs returns a handler that adds attrs to every entry.
func (h *JournalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	fields := maps.Clone(h.fields)
	for _, a := range attrs {
		putAttr(fields, h.prefix, a)
	}
	return &JournalHandler{level: h.level, fields: fields, prefix: h.prefix}
}

// WithGroup returns a handler that prefixes later attributes with name.
func (h *JournalHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &JournalHandler{level: h.level, fields: h.fields, prefix: h.prefix + fieldName(name) + "_"}
}

func priority(level slog.Level) journal.Priority {
	switch {
	case level >= slog.LevelError:
		return journal.PriErr
	case level >= slog.LevelWarn:
		return journal.PriWarning
	case level >= slog.LevelInfo:
		return journal.PriInfo
	default:
		return journal.PriDebug
	}
}

func putAttr(fields map[string]string, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		// Inline groups (empty key) keep the current prefix.
		if a.Key != "" {
			prefix += fieldName(a.Key) + "_"
		}
		for _, ga := range a.Value.Group() {
			putAttr(fields, prefix, ga)
		}
		return
	}

	key := prefix + fieldName(a.Key)
	if len(key) > maxFieldName {
		key = key[:maxFieldName]
	}

	switch a.Value.Kind() {
	case slog.KindString:
		fields[key] = a.Value.String()
	case slog.KindInt64:
		fields[key] = strconv.FormatInt(a.Value.Int64(), 10)
	case slog.KindUint64:
		fields[key] = strconv.FormatUint(a.Value.Uint64(), 10)
	case slog.KindFloat64:
		fields[key] = strconv.FormatFloat(a.Value.Float64(), 'f', -1, 64)
	case slog.KindBool:
		fields[key] = strconv.FormatBool(a.Value.Bool())
	case slog.KindDuration:
		fields[key] = a.Value.Duration().String()
	case slog.KindTime:
		fields[key] = a.Value.Time().Format(time.RFC3339Nano)
	default:
		if err, ok := a.Value.Any().(error); ok {
			fields[key] = err.Error()
			var coded Coded
			if errors.As(err, &coded) && coded.FailureCode() != "" && len(key) <= maxFieldName-len("_CODE") {
				fields[key+"_CODE"] = coded.FailureCode()
			}
			return
		}
		fields[key] = a.Value.String()
	}
}

// fieldName maps an attribute key to a valid journal field name. Journald
// accepts A-Z, 0-9 and "_", and the name may not start with "_" or a digit.
func fieldName(key string) string {
	var b strings.Builder
	for _, c := range strings.ToUpper(key) {
		if (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			b.WriteRune(c)
		} else {
			b.WriteByte('_')
		}
	}
	name := strings.TrimLeft(b.String(), "_0123456789")
	if name == "" {
		return "FIELD"
	}
	return name
}

// IsJournalAvailable checks if systemd journal is available.
func IsJournalAvailable() bool {
	return journal.Enabled()
}
