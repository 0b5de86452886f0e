package iso7816

import (
	"context"
	"fmt"
)

// CLIENT & PROTOCOL LOGIC:
// The Client acts as a high-level driver over the physical connection.
// It implements the automatic handling of ISO 7816-3 transport behaviors that are
// often exposed to the application layer:
//
// 1. "61 XX" (Response Available):
//    The card indicates that XX bytes are waiting. The client automatically generates
//    and sends a GET RESPONSE command to retrieve them (XX = 00 means 256).
//
// 2. "6C XX" (Wrong Length):
//    The card indicates that the expected length (Le) was incorrect and suggests XX.
//    The client re-sends a copy of the original command with Le = XX.
//
// The Send() method returns a Trace, which is a log of all atomic transactions
// occurred to fulfill the logical request.

// maxProtocolRounds bounds the 61XX/6CXX follow-ups of a single Send.
const maxProtocolRounds = 8

// Transceiver abstracts the physical card connection.
type Transceiver interface {
	Transceive(ctx context.Context, cmd []byte) ([]byte, error)
}

// Client manages the high-level communication with the card.
type Client struct {
	Card Transceiver
}

// NewClient creates a new Client instance.
func NewClient(card Transceiver) *Client {
	return &Client{Card: card}
}

// Send transmits a command and handles protocol logic (61xx, 6Cxx).
// On error the returned trace holds the transactions completed so far.
func (c *Client) Send(ctx context.Context, cmd *CommandAPDU) (Trace, error) {
	var trace Trace

	for round := 0; ; round++ {
		if round == maxProtocolRounds {
			return trace, fmt.Errorf("%s: too many GET RESPONSE / Le retries", cmd.Instruction)
		}

		resp, err := c.exchange(ctx, cmd)
		if err != nil {
			return trace, err
		}
		trace = append(trace, Transaction{Command: cmd, Response: resp})

		sw1, sw2 := resp.Status.SW1(), resp.Status.SW2()

		switch sw1 {
		case 0x61:
			// GET RESPONSE must use the same logical channel as the original command.
			ne := int(sw2)
			if ne == 0 {
				ne = MaxShortLe
			}
			cmd = NewCommandAPDU(cmd.Class.WithoutChaining(), INS_GET_RESPONSE, 0x00, 0x00, nil, ne)
		case 0x6C:
			ne := int(sw2)
			if ne == 0 {
				ne = MaxShortLe
			}
			cmd = cmd.WithNe(ne)
		default:
			return trace, nil
		}
	}
}

func (c *Client) exchange(ctx context.Context, cmd *CommandAPDU) (*ResponseAPDU, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rawCmd, err := cmd.Bytes()
	if err != nil {
		return nil, fmt.Errorf("encoding error: %w", err)
	}

	rawResp, err := c.Card.Transceive(ctx, rawCmd)
	if err != nil {
		return nil, fmt.Errorf("transmission error: %w", err)
	}

	return ParseResponseAPDU(rawResp)
}
