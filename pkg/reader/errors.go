package reader

import (
	"fmt"

	"github.com/gregLibert/emvtap/pkg/iso7816"
)

// Kind classifies why a read failed.
type Kind int

const (
	TransportUnavailable Kind = iota + 1
	TagNotDetected
	PPSESelectFailed
	NoApplicationFound
	ApplicationSelectFailed
	GPOFailed
	MalformedTLV
	InvalidPAN
	InvalidExpiry
	ReaderBusy
)

var kindNames = map[Kind]string{
	TransportUnavailable:    "transport unavailable",
	TagNotDetected:          "tag not detected",
	PPSESelectFailed:        "PPSE select failed",
	NoApplicationFound:      "no application found",
	ApplicationSelectFailed: "application select failed",
	GPOFailed:               "get processing options failed",
	MalformedTLV:            "malformed TLV",
	InvalidPAN:              "invalid PAN",
	InvalidExpiry:           "invalid expiry",
	ReaderBusy:              "reader busy",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Retryable reports whether tapping again may succeed without user action
// on the device.
func (k Kind) Retryable() bool {
	return k == TagNotDetected
}

// Error is the failure returned by Reader.Read.
type Error struct {
	Kind   Kind
	Status iso7816.StatusWord // non-zero when a status word caused the failure
	Err    error
}

func (e *Error) Error() string {
	msg := "emv read: " + e.Kind.String()
	if e.Status != 0 {
		msg += fmt.Sprintf(" (SW %04X)", uint16(e.Status))
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the sentinels below work with
// errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrTransportUnavailable    = &Error{Kind: TransportUnavailable}
	ErrTagNotDetected          = &Error{Kind: TagNotDetected}
	ErrPPSESelectFailed        = &Error{Kind: PPSESelectFailed}
	ErrNoApplicationFound      = &Error{Kind: NoApplicationFound}
	ErrApplicationSelectFailed = &Error{Kind: ApplicationSelectFailed}
	ErrGPOFailed               = &Error{Kind: GPOFailed}
	ErrMalformedTLV            = &Error{Kind: MalformedTLV}
	ErrInvalidPAN              = &Error{Kind: InvalidPAN}
	ErrInvalidExpiry           = &Error{Kind: InvalidExpiry}
	ErrReaderBusy              = &Error{Kind: ReaderBusy}
)

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func statusError(kind Kind, sw iso7816.StatusWord) *Error {
	return &Error{Kind: kind, Status: sw}
}
