package reader

import (
	"context"
	"errors"
	"sync"

	"github.com/gregLibert/emvtap/pkg/tlv"
)

// fakeTransport answers APDUs from a table keyed by the upper-case command
// hex. Unknown commands get 6A82.
type fakeTransport struct {
	unsupported bool
	disabled    bool
	startErr    error
	requestErr  error
	tagErr      error
	noTag       bool

	// gate, when set, holds RequestTechnology until closed or ctx ends.
	// entered is closed once RequestTechnology has been reached.
	gate    chan struct{}
	entered chan struct{}

	responses map[string]string
	failOn    map[string]error

	mu      sync.Mutex
	sent    []string
	cancels int
}

func newFake(responses map[string]string) *fakeTransport {
	return &fakeTransport{responses: responses, failOn: map[string]error{}}
}

func (f *fakeTransport) IsSupported() bool { return !f.unsupported }
func (f *fakeTransport) IsEnabled() bool   { return !f.disabled }

func (f *fakeTransport) Start(context.Context) error { return f.startErr }

func (f *fakeTransport) RequestTechnology(ctx context.Context, tech Technology) error {
	if f.entered != nil {
		close(f.entered)
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if tech != IsoDep {
		return errors.New("unsupported technology")
	}
	return f.requestErr
}

func (f *fakeTransport) GetTag(context.Context) (*Tag, error) {
	if f.tagErr != nil {
		return nil, f.tagErr
	}
	if f.noTag {
		return nil, nil
	}
	return &Tag{ID: tlv.Hex("04A224B2C35E80"), Technologies: []Technology{IsoDep}}, nil
}

func (f *fakeTransport) Transceive(ctx context.Context, apdu []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := tlv.EncodeHex(apdu)

	f.mu.Lock()
	f.sent = append(f.sent, key)
	f.mu.Unlock()

	if err, ok := f.failOn[key]; ok {
		return nil, err
	}
	if resp, ok := f.responses[key]; ok {
		return tlv.Hex(resp), nil
	}
	return tlv.Hex("6A 82"), nil
}

func (f *fakeTransport) CancelTechnologyRequest() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
	return nil
}

func (f *fakeTransport) cancelCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancels
}

func (f *fakeTransport) sentCommands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

// Command keys used by the scenarios.
const (
	cmdSelectPPSE = "00A404000E325041592E5359532E444446303100"
	cmdSelectVisa = "00A4040007A000000003101000"
	cmdSelectMC   = "00A4040007A000000004101000"
	cmdGPO        = "80A80000028300"
	cmdGetDataPAN = "80CA005A00"
	cmdGetDataExp = "80CA5F2400"
	cmdReadSFI1R1 = "00B2010C00"
	cmdReadSFI1R2 = "00B2020C00"
	cmdReadSFI1R3 = "00B2030C00"
	cmdReadSFI2R1 = "00B2011400"
)

// visaCard is scenario 1: flat responses for a Visa card.
func visaCard() map[string]string {
	return map[string]string{
		cmdSelectPPSE: "4F 07 A0000000031010 90 00",
		cmdSelectVisa: "50 04 56495341 90 00",
		cmdGPO:        "94 04 08010100 90 00",
		cmdReadSFI1R1: "5A 09 4242424242424242FF 5F24 03 251231 90 00",
	}
}
