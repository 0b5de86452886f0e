package pcsc

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ebfe/scard"
	"github.com/google/go-cmp/cmp"

	"github.com/gregLibert/emvtap/pkg/reader"
)

type fakeCard struct {
	atr         []byte
	uid         []byte
	transmitted [][]byte
	disconnects int
}

func (c *fakeCard) Status() (*scard.CardStatus, error) {
	return &scard.CardStatus{Atr: c.atr}, nil
}

func (c *fakeCard) Transmit(cmd []byte) ([]byte, error) {
	c.transmitted = append(c.transmitted, cmd)
	if cmp.Equal(cmd, getUIDCommand) {
		if c.uid == nil {
			return []byte{0x6A, 0x81}, nil
		}
		return append(append([]byte{}, c.uid...), 0x90, 0x00), nil
	}
	return []byte{0x90, 0x00}, nil
}

func (c *fakeCard) Disconnect(scard.Disposition) error {
	c.disconnects++
	return nil
}

type fakeContext struct {
	readers []string
	// events are returned by successive GetStatusChange calls; once
	// exhausted the call blocks until Cancel.
	events    []scard.StateFlag
	card      *fakeCard
	connected string

	mu        sync.Mutex
	cancelled chan struct{}
	released  bool
}

func newFakeContext(readers ...string) *fakeContext {
	return &fakeContext{readers: readers, card: &fakeCard{}, cancelled: make(chan struct{})}
}

func (c *fakeContext) ListReaders() ([]string, error) { return c.readers, nil }

func (c *fakeContext) GetStatusChange(rs []scard.ReaderState, timeout time.Duration) error {
	c.mu.Lock()
	if len(c.events) > 0 {
		rs[0].EventState = c.events[0]
		c.events = c.events[1:]
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	select {
	case <-c.cancelled:
		return scard.ErrCancelled
	case <-time.After(timeout):
		return scard.ErrTimeout
	}
}

func (c *fakeContext) Connect(r string, _ scard.ShareMode, _ scard.Protocol) (card, error) {
	c.connected = r
	return c.card, nil
}

func (c *fakeContext) Cancel() error {
	close(c.cancelled)
	return nil
}

func (c *fakeContext) Release() error {
	c.released = true
	return nil
}

func newTestTransport(sc *fakeContext, cfg Config) *Transport {
	t := New(cfg)
	t.establish = func() (scardContext, error) { return sc, nil }
	return t
}

func TestTransport_ResolveReader(t *testing.T) {
	tests := []struct {
		name    string
		readers []string
		cfg     Config
		want    string
		wantErr bool
	}{
		{name: "first reader by default", readers: []string{"ACS ACR122U", "Other"}, want: "ACS ACR122U"},
		{name: "by index", readers: []string{"A", "B"}, cfg: Config{ReaderIndex: 1}, want: "B"},
		{name: "by name", readers: []string{"A", "B"}, cfg: Config{ReaderIndex: 5, ReaderName: "B"}, want: "B"},
		{name: "unknown name", readers: []string{"A"}, cfg: Config{ReaderName: "Z"}, wantErr: true},
		{name: "index out of range", readers: []string{"A"}, cfg: Config{ReaderIndex: 3}, wantErr: true},
		{name: "no readers", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTestTransport(newFakeContext(tt.readers...), tt.cfg)

			err := tr.Start(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Start() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tr.IsEnabled() == tt.wantErr {
				t.Errorf("IsEnabled() = %v, want %v", !tt.wantErr, tt.wantErr)
			}
			if !tt.wantErr && tr.reader != tt.want {
				t.Errorf("reader = %q, want %q", tr.reader, tt.want)
			}
		})
	}
}

func TestTransport_ReadSession(t *testing.T) {
	sc := newFakeContext("Reader 0")
	sc.events = []scard.StateFlag{scard.StateEmpty, scard.StatePresent}
	sc.card.atr = []byte{0x3B, 0x8F, 0x80, 0x01}
	sc.card.uid = []byte{0x04, 0xA1, 0xB2, 0xC3}

	tr := newTestTransport(sc, Config{TagTimeout: time.Second})
	ctx := context.Background()

	if !tr.IsSupported() {
		t.Fatal("IsSupported() = false")
	}
	if err := tr.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := tr.RequestTechnology(ctx, reader.IsoDep); err != nil {
		t.Fatalf("RequestTechnology() error = %v", err)
	}
	if sc.connected != "Reader 0" {
		t.Errorf("connected to %q", sc.connected)
	}

	tag, err := tr.GetTag(ctx)
	if err != nil {
		t.Fatalf("GetTag() error = %v", err)
	}
	want := &reader.Tag{ID: sc.card.uid, ATR: sc.card.atr, Technologies: []reader.Technology{reader.IsoDep}}
	if diff := cmp.Diff(want, tag); diff != "" {
		t.Errorf("GetTag() mismatch (-want +got):\n%s", diff)
	}

	resp, err := tr.Transceive(ctx, []byte{0x00, 0xA4, 0x04, 0x00})
	if err != nil {
		t.Fatalf("Transceive() error = %v", err)
	}
	if diff := cmp.Diff([]byte{0x90, 0x00}, resp); diff != "" {
		t.Errorf("Transceive() mismatch (-want +got):\n%s", diff)
	}

	for i := 0; i < 2; i++ {
		if err := tr.CancelTechnologyRequest(); err != nil {
			t.Fatalf("CancelTechnologyRequest() error = %v", err)
		}
	}
	if sc.card.disconnects != 1 {
		t.Errorf("disconnects = %d, want 1", sc.card.disconnects)
	}
	if _, err := tr.Transceive(ctx, []byte{0x00}); err == nil {
		t.Error("Transceive() after cancel should fail")
	}

	if err := tr.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !sc.released {
		t.Error("context not released")
	}
}

func TestTransport_GetTagWithoutUID(t *testing.T) {
	sc := newFakeContext("Reader 0")
	sc.events = []scard.StateFlag{scard.StatePresent}
	tr := newTestTransport(sc, Config{})
	ctx := context.Background()

	if err := tr.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := tr.RequestTechnology(ctx, reader.IsoDep); err != nil {
		t.Fatal(err)
	}
	tag, err := tr.GetTag(ctx)
	if err != nil {
		t.Fatalf("GetTag() error = %v", err)
	}
	if tag.ID != nil {
		t.Errorf("ID = %X, want none", tag.ID)
	}
}

func TestTransport_RequestTechnology_Timeout(t *testing.T) {
	tr := newTestTransport(newFakeContext("Reader 0"), Config{TagTimeout: 20 * time.Millisecond})
	ctx := context.Background()

	if err := tr.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := tr.RequestTechnology(ctx, reader.IsoDep); err == nil {
		t.Fatal("RequestTechnology() should time out")
	}
}

func TestTransport_RequestTechnology_Cancel(t *testing.T) {
	tr := newTestTransport(newFakeContext("Reader 0"), Config{TagTimeout: time.Minute})

	if err := tr.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	err := tr.RequestTechnology(ctx, reader.IsoDep)
	if err != context.Canceled {
		t.Fatalf("RequestTechnology() error = %v, want context.Canceled", err)
	}
}

func TestTransport_RequestTechnology_Errors(t *testing.T) {
	tr := newTestTransport(newFakeContext("Reader 0"), Config{})

	if err := tr.RequestTechnology(context.Background(), reader.IsoDep); err == nil {
		t.Error("RequestTechnology() before Start should fail")
	}
	if err := tr.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := tr.RequestTechnology(context.Background(), "NfcA"); err == nil {
		t.Error("RequestTechnology(NfcA) should fail")
	}
}
