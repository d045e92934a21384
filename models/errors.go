package models

import (
	"errors"
	"strconv"
	"strings"
)

// Pipeline failure kinds. Match them with errors.Is.
var (
	ErrNoDataTable        = errors.New("no data table located")
	ErrAmbiguousTable     = errors.New("ambiguous data table")
	ErrRowShapeMismatch   = errors.New("row length mismatch")
	ErrMissingColumn      = errors.New("missing column")
	ErrUnparseableNumber  = errors.New("unparseable number")
	ErrMissingDecemberRow = errors.New("no december row to anchor year inference")
	ErrUnparseableDate    = errors.New("unparseable date")
	ErrTransientRender    = errors.New("transient render failure")
)

// Error is a pipeline failure annotated with where it happened.
// Row is -1 when no single row is involved.
type Error struct {
	Kind   error
	URL    string
	Row    int
	Column string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.URL != "" {
		b.WriteString(" [url=" + e.URL + "]")
	}
	if e.Row >= 0 {
		b.WriteString(" [row=" + strconv.Itoa(e.Row) + "]")
	}
	if e.Column != "" {
		b.WriteString(" [column=" + strconv.Quote(e.Column) + "]")
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Err }

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientRender)
}
