// Package libnfc implements reader.Transport over a libnfc initiator
// (PN532, ACR122U in raw mode, ...) through github.com/clausecker/nfc/v2.
package libnfc

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/clausecker/nfc/v2"
	"github.com/pkg/errors"

	"github.com/gregLibert/emvtap/pkg/reader"
)

const (
	// DefaultTagTimeout bounds the wait for a card when Config leaves it zero.
	DefaultTagTimeout = 15 * time.Second
	// DefaultPollInterval is the pause between two passive target scans.
	DefaultPollInterval = 250 * time.Millisecond

	// maxFrame is the largest extended ISO-DEP response libnfc returns.
	maxFrame = 262
	// libnfcDefaultTimeout lets the driver pick its own exchange timeout.
	libnfcDefaultTimeout = -1
	// sakISO14443_4 flags a target compliant with ISO/IEC 14443-4.
	sakISO14443_4 = 0x20
)

var iso14443a = nfc.Modulation{Type: nfc.ISO14443a, BaudRate: nfc.Nbr106}

// Config selects the libnfc device. An empty Connection opens the first
// device libnfc finds.
type Config struct {
	Connection      string
	TagTimeout      time.Duration
	PollInterval    time.Duration
	ExchangeTimeout time.Duration // zero leaves it to the driver
	Logger          *slog.Logger
}

// device is the subset of nfc.Device the transport drives.
type device interface {
	InitiatorInit() error
	InitiatorListPassiveTargets(m nfc.Modulation) ([]nfc.Target, error)
	InitiatorSelectPassiveTarget(m nfc.Modulation, initData []byte) (nfc.Target, error)
	InitiatorTransceiveBytes(tx, rx []byte, timeout int) (int, error)
	InitiatorDeselectTarget() error
	Close() error
	String() string
}

type libnfcDevice struct {
	nfc.Device
}

func openDevice(conn string) (device, error) {
	dev, err := nfc.Open(conn)
	if err != nil {
		return nil, err
	}
	return &libnfcDevice{dev}, nil
}

// Transport is a reader.Transport over one libnfc device.
type Transport struct {
	cfg  Config
	log  *slog.Logger
	open func(conn string) (device, error)

	mu     sync.Mutex
	dev    device
	target *nfc.ISO14443aTarget
}

var _ reader.Transport = (*Transport)(nil)

// New returns a Transport. The device is opened by Start.
func New(cfg Config) *Transport {
	if cfg.TagTimeout <= 0 {
		cfg.TagTimeout = DefaultTagTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Transport{cfg: cfg, log: log, open: openDevice}
}

// IsSupported reports whether libnfc can enumerate devices at all.
func (t *Transport) IsSupported() bool {
	_, err := nfc.ListDevices()
	return err == nil
}

// IsEnabled reports whether the device is open or at least one is attached.
func (t *Transport) IsEnabled() bool {
	t.mu.Lock()
	open := t.dev != nil
	t.mu.Unlock()
	if open {
		return true
	}

	devices, err := nfc.ListDevices()
	return err == nil && len(devices) > 0
}

// Start opens the device and puts it in initiator mode. Calling Start on an
// open device is a no-op.
func (t *Transport) Start(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.dev != nil {
		return nil
	}

	dev, err := t.open(t.cfg.Connection)
	if err != nil {
		return errors.Wrapf(err, "cannot open NFC device %q", t.cfg.Connection)
	}
	if err := dev.InitiatorInit(); err != nil {
		dev.Close()
		return errors.Wrap(err, "cannot initialize NFC device")
	}

	t.log.Debug("libnfc device opened", "device", dev.String())
	t.dev = dev
	return nil
}

// RequestTechnology polls for an ISO 14443-4 type A target until one shows
// up, the tag timeout expires or ctx is done.
func (t *Transport) RequestTechnology(ctx context.Context, tech reader.Technology) error {
	if tech != reader.IsoDep {
		return errors.Errorf("technology %s not supported", tech)
	}

	t.mu.Lock()
	dev := t.dev
	t.mu.Unlock()
	if dev == nil {
		return errors.New("transport not started")
	}

	deadline := time.Now().Add(t.cfg.TagTimeout)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		targets, err := dev.InitiatorListPassiveTargets(iso14443a)
		if err != nil {
			return errors.Wrap(err, "failed to list nfc targets")
		}

		for _, target := range targets {
			tt, ok := target.(*nfc.ISO14443aTarget)
			if !ok {
				continue
			}
			if tt.Sak&sakISO14443_4 == 0 {
				t.log.Debug("ignoring non ISO-DEP target", "sak", tt.Sak)
				continue
			}
			return t.selectTarget(dev, tt)
		}

		if time.Now().After(deadline) {
			return errors.Errorf("no ISO-DEP target after %s", t.cfg.TagTimeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(t.cfg.PollInterval):
		}
	}
}

func (t *Transport) selectTarget(dev device, tt *nfc.ISO14443aTarget) error {
	selected, err := dev.InitiatorSelectPassiveTarget(iso14443a, tt.UID[:tt.UIDLen])
	if err != nil {
		return errors.Wrap(err, "failed to select target")
	}
	if st, ok := selected.(*nfc.ISO14443aTarget); ok {
		tt = st
	}

	t.mu.Lock()
	t.target = tt
	t.mu.Unlock()
	return nil
}

// GetTag returns the UID and the ATS of the selected target. The ATS
// stands in for the ATR that contact readers report.
func (t *Transport) GetTag(_ context.Context) (*reader.Tag, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.target == nil {
		return nil, errors.New("no target selected")
	}
	tag := &reader.Tag{
		ID:           append([]byte(nil), t.target.UID[:t.target.UIDLen]...),
		Technologies: []reader.Technology{reader.IsoDep},
	}
	if t.target.AtsLen > 0 {
		tag.ATR = append([]byte(nil), t.target.Ats[:t.target.AtsLen]...)
	}
	return tag, nil
}

// Transceive exchanges one APDU with the selected target.
func (t *Transport) Transceive(ctx context.Context, apdu []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.target == nil {
		return nil, errors.New("no target selected")
	}

	timeout := libnfcDefaultTimeout
	if t.cfg.ExchangeTimeout > 0 {
		timeout = int(t.cfg.ExchangeTimeout / time.Millisecond)
	}

	var rx [maxFrame]byte
	n, err := t.dev.InitiatorTransceiveBytes(apdu, rx[:], timeout)
	if err != nil {
		return nil, errors.Wrap(err, "transceive")
	}
	return append([]byte(nil), rx[:n]...), nil
}

// CancelTechnologyRequest releases the selected target. It is idempotent.
func (t *Transport) CancelTechnologyRequest() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.target == nil {
		return nil
	}
	t.target = nil
	return errors.Wrap(t.dev.InitiatorDeselectTarget(), "deselect target")
}

// Close releases the target and closes the device.
func (t *Transport) Close() error {
	if err := t.CancelTechnologyRequest(); err != nil {
		t.log.Warn("failed to deselect target", "err", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.dev == nil {
		return nil
	}
	err := t.dev.Close()
	t.dev = nil
	return errors.Wrap(err, "close NFC device")
}

// ListDevices returns the connection strings of the attached libnfc devices.
func ListDevices() ([]string, error) {
	devices, err := nfc.ListDevices()
	if err != nil {
		return nil, errors.Wrap(err, "failed to list NFC devices")
	}
	return devices, nil
}
