package poeditor

import (
	"errors"
	"fmt"
)

// Kind classifies an Error so callers can branch without matching messages.
type Kind int

const (
	// KindTransport is a network-level failure reaching the API.
	KindTransport Kind = iota + 1
	// KindHTTPStatus is a non-200 response. The body is not parsed.
	KindHTTPStatus
	// KindParse is a 200 response whose body is not valid JSON.
	KindParse
	// KindSemantic is valid JSON missing the expected payload ("result", "url").
	KindSemantic
	// KindNoLanguages means the project has no languages to export.
	KindNoLanguages
	// KindMissingMapping means a remote language has no exportFiles entry.
	KindMissingMapping
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindHTTPStatus:
		return "http status"
	case KindParse:
		return "parse"
	case KindSemantic:
		return "semantic"
	case KindNoLanguages:
		return "no languages"
	case KindMissingMapping:
		return "missing mapping"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Operations reported in Error.Op.
const (
	OpUpload        = "upload"
	OpListLanguages = "list languages"
	OpExport        = "export"
	OpDownload      = "download"
)

// Error is the single error type of the connector's remote operations.
// An Error with Op == OpUpload is an upload error, Op == OpExport an
// export error.
type Error struct {
	Op         string
	Kind       Kind
	StatusCode int    // KindHTTPStatus
	Body       string // raw body, KindParse
	Field      string // missing field, KindSemantic
	Language   string // language the failing call was made for, if any
	Message    string // message of the remote response envelope, if any
	Err        error
}

// Sentinels for errors.Is. They match any Error of the same Kind.
var (
	ErrTransport      = &Error{Kind: KindTransport}
	ErrHTTPStatus     = &Error{Kind: KindHTTPStatus}
	ErrParse          = &Error{Kind: KindParse}
	ErrSemantic       = &Error{Kind: KindSemantic}
	ErrNoLanguages    = &Error{Kind: KindNoLanguages}
	ErrMissingMapping = &Error{Kind: KindMissingMapping}
)

func (e *Error) Error() string {
	op := e.Op
	if e.Language != "" && e.Kind != KindMissingMapping {
		op = fmt.Sprintf("%s [%s]", op, e.Language)
	}

	var msg string
	switch e.Kind {
	case KindTransport:
		msg = "request failed"
	case KindHTTPStatus:
		msg = fmt.Sprintf("unexpected HTTP status %d", e.StatusCode)
	case KindParse:
		msg = "invalid JSON response"
	case KindSemantic:
		msg = fmt.Sprintf("missing %q in response", e.Field)
		if e.Message != "" {
			msg += " (" + e.Message + ")"
		}
	case KindNoLanguages:
		msg = "no languages list available"
	case KindMissingMapping:
		msg = fmt.Sprintf("no exportFiles entry defined for language %q", e.Language)
	default:
		msg = e.Kind.String()
	}

	if op != "" {
		msg = op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Kind == KindParse && e.Body != "" {
		msg += "; body is: " + truncate(e.Body, 500)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinel errors by Kind, and by Op when the target sets one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

// IsKind reports whether any error in err's tree is an Error of kind k.
// It looks through wrapping and errors.Join.
func IsKind(err error, k Kind) bool {
	return errors.Is(err, &Error{Kind: k})
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
