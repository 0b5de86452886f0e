// Package reader runs the contactless EMV read: it drives a Transport
// through PPSE and application selection, GET PROCESSING OPTIONS and the
// AFL records, falls back to GET DATA, validates what it found and returns a
// CardData holding only the last four PAN digits.
package reader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gregLibert/emvtap/pkg/iso7816"
)

// CardData is the result of a successful read.
type CardData struct {
	CardType       string `json:"cardType"`
	LastFour       string `json:"lastFour"`
	ExpiryDate     string `json:"expiryDate"` // MM/YY
	CardholderName string `json:"cardholderName,omitempty"`
}

// TLVMode selects how card responses are decoded.
type TLVMode int

const (
	// FlatTLV decodes each response in one flat pass; templates are not
	// expanded.
	FlatTLV TLVMode = iota
	// NestedTLV expands constructed templates (6F, A5, BF0C, 70, 77) and
	// understands GPO response format 1.
	NestedTLV
)

func (m TLVMode) String() string {
	switch m {
	case FlatTLV:
		return "flat"
	case NestedTLV:
		return "nested"
	default:
		return fmt.Sprintf("TLVMode(%d)", int(m))
	}
}

// ParseTLVMode reads "flat" or "nested".
func ParseTLVMode(s string) (TLVMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "flat":
		return FlatTLV, nil
	case "nested":
		return NestedTLV, nil
	default:
		return 0, fmt.Errorf("unknown TLV mode %q (want flat or nested)", s)
	}
}

// Options configures a Reader. The zero value is usable.
type Options struct {
	Logger *slog.Logger     // nil discards
	Now    func() time.Time // expiry reference, defaults to time.Now
	TLV    TLVMode
}

// Reader reads one card at a time over a single Transport.
type Reader struct {
	transport Transport
	client    *iso7816.Client
	log       *slog.Logger
	now       func() time.Time
	tlvMode   TLVMode

	mu sync.Mutex
}

// New returns a Reader bound to t.
func New(t Transport, opts Options) *Reader {
	r := &Reader{
		transport: t,
		client:    iso7816.NewClient(t),
		log:       opts.Logger,
		now:       opts.Now,
		tlvMode:   opts.TLV,
	}
	if r.log == nil {
		r.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Read waits for a card and extracts its data.
//
// Failures are *Error values (match them with errors.Is against the Err*
// sentinels) or the context error when ctx ends first. Whatever happens,
// the transport's technology request is cancelled exactly once before Read
// returns. A Read issued while another is running fails with ErrReaderBusy
// without touching the transport.
func (r *Reader) Read(ctx context.Context) (*CardData, error) {
	if !r.mu.TryLock() {
		return nil, newError(ReaderBusy, fmt.Errorf("a read is already in progress"))
	}
	defer r.mu.Unlock()
	defer r.cleanup()

	start := time.Now()
	card, err := r.run(ctx, &session{})
	if err != nil {
		r.log.WarnContext(ctx, "card read failed", "err", err, "elapsed", time.Since(start))
		return nil, err
	}

	r.log.InfoContext(ctx, "card read",
		"brand", card.CardType,
		"last_four", card.LastFour,
		"expiry", card.ExpiryDate,
		"elapsed", time.Since(start),
	)
	return card, nil
}

func (r *Reader) cleanup() {
	if err := r.transport.CancelTechnologyRequest(); err != nil {
		r.log.Warn("cancel technology request failed", "err", err)
	}
}

// run walks the state machine until Done or a terminal error.
func (r *Reader) run(ctx context.Context, s *session) (*CardData, error) {
	for st := stateInit; st != stateDone; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		r.log.DebugContext(ctx, "state", "state", st)

		next, err := steps[st](r, ctx, s)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, err
		}
		st = next
	}
	return s.result, nil
}

// send runs one logical command and logs every physical exchange. Response
// data is never logged: records carry the PAN.
func (r *Reader) send(ctx context.Context, st state, cmd *iso7816.CommandAPDU) (*iso7816.ResponseAPDU, error) {
	trace, err := r.client.Send(ctx, cmd)
	for _, tx := range trace {
		r.log.DebugContext(ctx, "apdu",
			"state", st,
			"ins", tx.Command.Instruction,
			"p1p2", fmt.Sprintf("%02X%02X", tx.Command.P1, tx.Command.P2),
			"sw", fmt.Sprintf("%04X", uint16(tx.Response.Status)),
			"len", len(tx.Response.Data),
		)
	}
	if err != nil {
		return nil, err
	}
	return trace.Response(), nil
}
