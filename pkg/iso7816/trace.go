package iso7816

import (
	"fmt"
	"strings"
)

// TRANSACTION:
// A Transaction represents the atomic unit of communication defined in ISO 7816-3:
// one Command APDU (C-APDU) sent by the terminal, followed by one Response APDU (R-APDU)
// sent back by the card.
//
// TRACE:
// A Trace is a chronological sequence of Transactions. A single logical intent
// (e.g. "Select Application") may span several physical transactions when the card
// answers "61 XX" or "6C XX"; the Trace keeps the whole conversation and the last
// transaction carries the outcome.

// Transaction represents a completed Command-Response pair.
type Transaction struct {
	Command  *CommandAPDU
	Response *ResponseAPDU
}

// IsSuccess checks if the transaction ended with status 9000.
// It returns false if the response is missing.
func (t *Transaction) IsSuccess() bool {
	return t.Response.IsOK()
}

// Trace is a sequence of transactions (Command-Response pairs).
type Trace []Transaction

// Last returns the final transaction of the trace.
// Returns nil if the trace is empty.
func (t Trace) Last() *Transaction {
	if len(t) == 0 {
		return nil
	}
	return &t[len(t)-1]
}

// Response returns the final response of the trace, or nil.
func (t Trace) Response() *ResponseAPDU {
	last := t.Last()
	if last == nil {
		return nil
	}
	return last.Response
}

// IsSuccess checks if the FINAL transaction in the trace was successful.
// Intermediate 61XX / 6CXX transactions do not count.
func (t Trace) IsSuccess() bool {
	last := t.Last()
	if last == nil {
		return false
	}
	return last.IsSuccess()
}

// Describe renders every exchange of the trace, one line per APDU.
func (t Trace) Describe() string {
	var sb strings.Builder
	for i, tx := range t {
		raw, err := tx.Command.Bytes()
		if err != nil {
			fmt.Fprintf(&sb, "[%d] >> %s (unencodable: %v)\n", i+1, tx.Command.Instruction, err)
			continue
		}
		fmt.Fprintf(&sb, "[%d] >> %X  %s\n", i+1, raw, tx.Command.Instruction)
		if tx.Response != nil {
			fmt.Fprintf(&sb, "    << %X  %s\n", tx.Response.Data, tx.Response.Status.Verbose())
		}
	}
	return sb.String()
}
