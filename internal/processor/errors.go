package processor

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies conversion failures.
type Kind string

const (
	KindInputMissing        Kind = "InputMissing"
	KindIOFailure           Kind = "IOFailure"
	KindDecodeFailure       Kind = "DecodeFailure"
	KindFieldMissing        Kind = "FieldMissing"
	KindFieldUnparsable     Kind = "FieldUnparsable"
	KindReprojectionFailure Kind = "ReprojectionFailure"
	KindTimeout             Kind = "Timeout"
)

// Sentinels for errors.Is; they match any *Error of the same kind.
var (
	ErrInputMissing        = &Error{Kind: KindInputMissing}
	ErrIOFailure           = &Error{Kind: KindIOFailure}
	ErrDecodeFailure       = &Error{Kind: KindDecodeFailure}
	ErrFieldMissing        = &Error{Kind: KindFieldMissing}
	ErrFieldUnparsable     = &Error{Kind: KindFieldUnparsable}
	ErrReprojectionFailure = &Error{Kind: KindReprojectionFailure}
	ErrTimeout             = &Error{Kind: KindTimeout}
)

// Error is a conversion failure with the state it happened in.
// Row is the 1-based data row, zero when not row specific.
type Error struct {
	Kind   Kind
	State  State
	Row    int
	Column string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.State != StateReceived || e.Row > 0 {
		fmt.Fprintf(&b, " in %s", e.State)
	}
	if e.Row > 0 {
		fmt.Fprintf(&b, " at row %d", e.Row)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, " column %q", e.Column)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Err == nil && t.Row == 0 && t.Column == ""
}

// KindOf returns the kind of err, or "" when err is not a conversion error.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// rowError reports whether a kind is confined to a single row.
func (k Kind) rowError() bool {
	switch k {
	case KindFieldMissing, KindFieldUnparsable, KindReprojectionFailure:
		return true
	}
	return false
}

// UserMessage is the coarse, client-safe description of a failure.
type UserMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
}

// Error codes:
//
//	CONV001 - No file uploaded
//	CONV002 - File could not be stored or read
//	CONV003 - File is not a readable spreadsheet or table
//	CONV004 - Required column missing
//	CONV005 - Invalid coordinate or value
//	CONV006 - Coordinates outside the supported area
//	CONV007 - Conversion took too long
//	CONV000 - Anything else
var userMessages = map[Kind]UserMessage{
	KindInputMissing: {
		Code:    "CONV001",
		Message: "No file uploaded.",
		Action:  "Select a spreadsheet file and try again",
	},
	KindIOFailure: {
		Code:    "CONV002",
		Message: "Conversion failed.",
		Action:  "Please try again",
	},
	KindDecodeFailure: {
		Code:    "CONV003",
		Message: "The file could not be read as a spreadsheet.",
		Action:  "Upload an .xlsx workbook or a semicolon separated .csv file",
	},
	KindFieldMissing: {
		Code:    "CONV004",
		Message: "A required column is missing.",
		Action:  "Check that the header row matches the template exactly",
	},
	KindFieldUnparsable: {
		Code:    "CONV005",
		Message: "A value could not be read.",
		Action:  "Check that coordinate columns contain plain numbers",
	},
	KindReprojectionFailure: {
		Code:    "CONV006",
		Message: "Coordinates are outside the supported area.",
		Action:  "Check that coordinates are UTM zone 33 meters",
	},
	KindTimeout: {
		Code:    "CONV007",
		Message: "Conversion took too long.",
		Action:  "Try a smaller file or try again later",
	},
}

// MapError returns the client-safe message for err.
func MapError(err error) UserMessage {
	if msg, ok := userMessages[KindOf(err)]; ok {
		return msg
	}
	return UserMessage{Code: "CONV000", Message: "Conversion error."}
}
