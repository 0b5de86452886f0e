// Package pcsc implements reader.Transport on top of the PC/SC daemon
// (pcsclite, WinSCard) through github.com/ebfe/scard.
package pcsc

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ebfe/scard"
	"github.com/pkg/errors"

	"github.com/gregLibert/emvtap/pkg/reader"
)

// getUIDCommand is the PC/SC pseudo-APDU returning the contactless UID.
var getUIDCommand = []byte{0xFF, 0xCA, 0x00, 0x00, 0x00}

// DefaultTagTimeout bounds the wait for a card when Config leaves it zero.
const DefaultTagTimeout = 15 * time.Second

// Config selects the reader. ReaderName wins over ReaderIndex.
type Config struct {
	ReaderIndex int
	ReaderName  string
	TagTimeout  time.Duration
	Logger      *slog.Logger
}

// scardContext is the subset of *scard.Context the transport uses.
type scardContext interface {
	ListReaders() ([]string, error)
	GetStatusChange(rs []scard.ReaderState, timeout time.Duration) error
	Connect(reader string, mode scard.ShareMode, proto scard.Protocol) (card, error)
	Cancel() error
	Release() error
}

type card interface {
	Status() (*scard.CardStatus, error)
	Transmit(cmd []byte) ([]byte, error)
	Disconnect(d scard.Disposition) error
}

type systemContext struct {
	*scard.Context
}

func (c systemContext) Connect(reader string, mode scard.ShareMode, proto scard.Protocol) (card, error) {
	return c.Context.Connect(reader, mode, proto)
}

func establishSystemContext() (scardContext, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, err
	}
	return systemContext{ctx}, nil
}

// Transport is a reader.Transport over one PC/SC reader.
type Transport struct {
	cfg       Config
	log       *slog.Logger
	establish func() (scardContext, error)

	mu     sync.Mutex
	sc     scardContext
	reader string
	card   card
}

var _ reader.Transport = (*Transport)(nil)

// New returns a Transport. No PC/SC call is made until it is used.
func New(cfg Config) *Transport {
	if cfg.TagTimeout <= 0 {
		cfg.TagTimeout = DefaultTagTimeout
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Transport{cfg: cfg, log: log, establish: establishSystemContext}
}

func (t *Transport) context() (scardContext, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sc != nil {
		return t.sc, nil
	}
	sc, err := t.establish()
	if err != nil {
		return nil, errors.Wrap(err, "establish PC/SC context")
	}
	t.sc = sc
	return sc, nil
}

// IsSupported reports whether a PC/SC context can be established.
func (t *Transport) IsSupported() bool {
	_, err := t.context()
	return err == nil
}

// IsEnabled reports whether the configured reader is plugged in.
func (t *Transport) IsEnabled() bool {
	_, err := t.resolveReader()
	return err == nil
}

// Start selects the reader for the next technology request.
func (t *Transport) Start(_ context.Context) error {
	name, err := t.resolveReader()
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.reader = name
	t.mu.Unlock()

	t.log.Debug("pcsc reader selected", "reader", name)
	return nil
}

func (t *Transport) resolveReader() (string, error) {
	sc, err := t.context()
	if err != nil {
		return "", err
	}

	readers, err := sc.ListReaders()
	if err != nil {
		return "", errors.Wrap(err, "list readers")
	}
	if len(readers) == 0 {
		return "", errors.New("no PC/SC reader found")
	}

	if t.cfg.ReaderName != "" {
		for _, r := range readers {
			if r == t.cfg.ReaderName {
				return r, nil
			}
		}
		return "", errors.Errorf("reader %q not found", t.cfg.ReaderName)
	}

	if t.cfg.ReaderIndex < 0 || t.cfg.ReaderIndex >= len(readers) {
		return "", errors.Errorf("reader index %d out of range (0..%d)", t.cfg.ReaderIndex, len(readers)-1)
	}
	return readers[t.cfg.ReaderIndex], nil
}

// RequestTechnology waits up to the tag timeout for a card on the reader
// and connects to it. Cancelling ctx aborts the wait.
func (t *Transport) RequestTechnology(ctx context.Context, tech reader.Technology) error {
	if tech != reader.IsoDep {
		return errors.Errorf("technology %s not supported", tech)
	}

	sc, err := t.context()
	if err != nil {
		return err
	}

	t.mu.Lock()
	name := t.reader
	t.mu.Unlock()
	if name == "" {
		return errors.New("transport not started")
	}

	if err := t.waitForCard(ctx, sc, name); err != nil {
		return err
	}

	c, err := sc.Connect(name, scard.ShareShared, scard.ProtocolAny)
	if err != nil {
		return errors.Wrapf(err, "connect to %s", name)
	}

	t.mu.Lock()
	t.card = c
	t.mu.Unlock()
	return nil
}

func (t *Transport) waitForCard(ctx context.Context, sc scardContext, name string) error {
	// GetStatusChange blocks in the daemon; Cancel is the only way out.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			if err := sc.Cancel(); err != nil {
				t.log.Warn("pcsc cancel failed", "err", err)
			}
		case <-stop:
		}
	}()

	deadline := time.Now().Add(t.cfg.TagTimeout)
	rs := []scard.ReaderState{{Reader: name, CurrentState: scard.StateUnaware}}

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return errors.Errorf("no card on %s after %s", name, t.cfg.TagTimeout)
		}

		err := sc.GetStatusChange(rs, remaining)
		switch {
		case err == scard.ErrCancelled && ctx.Err() != nil:
			return ctx.Err()
		case err == scard.ErrTimeout:
			return errors.Errorf("no card on %s after %s", name, t.cfg.TagTimeout)
		case err != nil:
			return errors.Wrap(err, "wait for card")
		}

		if rs[0].EventState&scard.StatePresent != 0 && rs[0].EventState&scard.StateMute == 0 {
			return nil
		}
		rs[0].CurrentState = rs[0].EventState
	}
}

// GetTag returns the ATR and, when the reader supports it, the UID.
func (t *Transport) GetTag(ctx context.Context) (*reader.Tag, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.card == nil {
		return nil, errors.New("no card connected")
	}

	status, err := t.card.Status()
	if err != nil {
		return nil, errors.Wrap(err, "card status")
	}

	tag := &reader.Tag{ATR: status.Atr, Technologies: []reader.Technology{reader.IsoDep}}

	resp, err := t.card.Transmit(getUIDCommand)
	if err == nil && len(resp) >= 2 && resp[len(resp)-2] == 0x90 && resp[len(resp)-1] == 0x00 {
		tag.ID = resp[:len(resp)-2]
	} else {
		t.log.Debug("reader did not return a UID", "err", err)
	}
	return tag, nil
}

// Transceive sends one APDU to the connected card.
func (t *Transport) Transceive(ctx context.Context, apdu []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.card == nil {
		return nil, errors.New("no card connected")
	}
	resp, err := t.card.Transmit(apdu)
	if err != nil {
		return nil, errors.Wrap(err, "transmit")
	}
	return resp, nil
}

// CancelTechnologyRequest disconnects the card, if any. It is idempotent.
func (t *Transport) CancelTechnologyRequest() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.card == nil {
		return nil
	}
	err := t.card.Disconnect(scard.LeaveCard)
	t.card = nil
	return errors.Wrap(err, "disconnect")
}

// Close releases the PC/SC context.
func (t *Transport) Close() error {
	if err := t.CancelTechnologyRequest(); err != nil {
		t.log.Warn("failed to disconnect card", "err", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sc == nil {
		return nil
	}
	err := t.sc.Release()
	t.sc = nil
	return errors.Wrap(err, "release PC/SC context")
}

// ListReaders returns the names of the PC/SC readers currently attached.
func ListReaders() ([]string, error) {
	sc, err := establishSystemContext()
	if err != nil {
		return nil, errors.Wrap(err, "establish PC/SC context")
	}
	defer sc.Release()

	readers, err := sc.ListReaders()
	if err != nil {
		return nil, errors.Wrap(err, "list readers")
	}
	return readers, nil
}
