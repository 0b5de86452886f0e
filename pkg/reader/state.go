package reader

import (
	"context"
	"errors"
	"fmt"

	"github.com/gregLibert/emvtap/pkg/emv"
	"github.com/gregLibert/emvtap/pkg/tlv"
)

type state int

const (
	stateInit state = iota
	stateAwaitTag
	stateSelectPPSE
	stateResolveAID
	stateSelectApplication
	stateGetProcessingOptions
	stateReadRecords
	stateFallbackGetData
	stateValidate
	stateDone
)

var stateNames = [...]string{
	stateInit:                 "Init",
	stateAwaitTag:             "AwaitTag",
	stateSelectPPSE:           "SelectPPSE",
	stateResolveAID:           "ResolveAID",
	stateSelectApplication:    "SelectApplication",
	stateGetProcessingOptions: "GetProcessingOptions",
	stateReadRecords:          "ReadRecords",
	stateFallbackGetData:      "FallbackGetData",
	stateValidate:             "Validate",
	stateDone:                 "Done",
}

func (s state) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// session is the data one read carries from state to state.
type session struct {
	ppse     []byte
	aid      []byte
	aidBrand emv.Brand
	afl      []byte
	acc      accumulator
	result   *CardData
}

type stepFunc func(r *Reader, ctx context.Context, s *session) (state, error)

// steps maps every non-terminal state to its handler.
var steps = map[state]stepFunc{
	stateInit:                 (*Reader).initTransport,
	stateAwaitTag:             (*Reader).awaitTag,
	stateSelectPPSE:           (*Reader).selectPPSE,
	stateResolveAID:           (*Reader).resolveAID,
	stateSelectApplication:    (*Reader).selectApplication,
	stateGetProcessingOptions: (*Reader).getProcessingOptions,
	stateReadRecords:          (*Reader).readRecords,
	stateFallbackGetData:      (*Reader).fallbackGetData,
	stateValidate:             (*Reader).validate,
}

func (r *Reader) initTransport(ctx context.Context, _ *session) (state, error) {
	if !r.transport.IsSupported() {
		return 0, newError(TransportUnavailable, fmt.Errorf("NFC not supported"))
	}
	if !r.transport.IsEnabled() {
		return 0, newError(TransportUnavailable, fmt.Errorf("NFC disabled"))
	}
	if err := r.transport.Start(ctx); err != nil {
		return 0, newError(TransportUnavailable, err)
	}
	return stateAwaitTag, nil
}

func (r *Reader) awaitTag(ctx context.Context, _ *session) (state, error) {
	if err := r.transport.RequestTechnology(ctx, IsoDep); err != nil {
		return 0, newError(TagNotDetected, err)
	}
	tag, err := r.transport.GetTag(ctx)
	if err != nil {
		return 0, newError(TagNotDetected, err)
	}
	if tag == nil {
		return 0, newError(TagNotDetected, fmt.Errorf("no tag"))
	}
	r.log.DebugContext(ctx, "tag detected", "uid", tlv.EncodeHex(tag.ID), "atr", tlv.EncodeHex(tag.ATR))
	return stateSelectPPSE, nil
}

func (r *Reader) selectPPSE(ctx context.Context, s *session) (state, error) {
	resp, err := r.send(ctx, stateSelectPPSE, emv.SelectPPSE())
	if err != nil {
		return 0, newError(PPSESelectFailed, err)
	}
	if !resp.IsOK() {
		return 0, statusError(PPSESelectFailed, resp.Status)
	}
	s.ppse = resp.Data
	return stateResolveAID, nil
}

func (r *Reader) resolveAID(ctx context.Context, s *session) (state, error) {
	aid, err := r.findAID(s.ppse)
	if err != nil {
		return 0, newError(MalformedTLV, fmt.Errorf("PPSE response: %w", err))
	}
	if len(aid) == 0 {
		return 0, newError(NoApplicationFound, fmt.Errorf("no tag 4F in PPSE response"))
	}

	s.aid = aid
	s.aidBrand = emv.ClassifyByAID(tlv.EncodeHex(aid))
	r.log.DebugContext(ctx, "application resolved", "aid", tlv.EncodeHex(aid), "brand", s.aidBrand)
	return stateSelectApplication, nil
}

// findAID returns the AID to select, or nil when the PPSE lists none.
// Nested decoding picks the directory entry with the highest priority.
func (r *Reader) findAID(ppse []byte) ([]byte, error) {
	if len(ppse) == 0 {
		return nil, nil
	}

	if r.tlvMode == NestedTLV {
		fci, err := emv.ParseFCI(ppse)
		if err != nil {
			return nil, err
		}
		for _, app := range fci.Applications() {
			if len(app.AID) > 0 {
				return app.AID, nil
			}
		}
	}

	m, err := r.decode(ppse)
	if err != nil {
		return nil, err
	}
	return m.Bytes("4F"), nil
}

func (r *Reader) selectApplication(ctx context.Context, s *session) (state, error) {
	resp, err := r.send(ctx, stateSelectApplication, emv.SelectApplication(s.aid))
	if err != nil {
		return 0, newError(ApplicationSelectFailed, err)
	}
	if !resp.IsOK() {
		return 0, statusError(ApplicationSelectFailed, resp.Status)
	}
	return stateGetProcessingOptions, nil
}

func (r *Reader) getProcessingOptions(ctx context.Context, s *session) (state, error) {
	resp, err := r.send(ctx, stateGetProcessingOptions, emv.GetProcessingOptions())
	if err != nil {
		return 0, newError(GPOFailed, err)
	}
	if !resp.IsOK() {
		return 0, statusError(GPOFailed, resp.Status)
	}

	afl, err := r.findAFL(resp.Data)
	if err != nil {
		return 0, newError(MalformedTLV, fmt.Errorf("GPO response: %w", err))
	}
	if len(afl) == 0 {
		r.log.DebugContext(ctx, "no AFL in GPO response")
		return stateFallbackGetData, nil
	}

	s.afl = afl
	return stateReadRecords, nil
}

func (r *Reader) findAFL(data []byte) ([]byte, error) {
	if r.tlvMode == NestedTLV {
		po, err := emv.ParseProcessingOptions(data)
		if err == nil {
			return po.AFL, nil
		}
		if errors.Is(err, tlv.ErrMalformed) {
			return nil, err
		}
	}

	m, err := r.decode(data)
	if err != nil {
		return nil, err
	}
	return m.Bytes("94"), nil
}

// readRecords reads every record the AFL names. Malformed AFL groups and
// failing records are skipped; neither aborts the loop.
func (r *Reader) readRecords(ctx context.Context, s *session) (state, error) {
	entries, err := emv.ParseAFL(s.afl)
	if err != nil {
		r.log.WarnContext(ctx, "skipping AFL groups", "afl", tlv.EncodeHex(s.afl), "kept", len(entries), "err", err)
	}

	acc := s.acc
	for _, e := range entries {
		for _, rec := range e.Records() {
			if err := ctx.Err(); err != nil {
				return 0, err
			}

			cmd, err := emv.ReadRecord(e.SFI, rec)
			if err != nil {
				r.log.WarnContext(ctx, "skipping record", "sfi", e.SFI, "record", rec, "err", err)
				continue
			}

			resp, err := r.send(ctx, stateReadRecords, cmd)
			if err != nil {
				r.log.WarnContext(ctx, "skipping record", "sfi", e.SFI, "record", rec, "err", err)
				continue
			}
			if !resp.IsOK() {
				continue
			}

			m, err := r.decode(resp.Data)
			if err != nil {
				r.log.WarnContext(ctx, "skipping record", "sfi", e.SFI, "record", rec, "err", err)
				continue
			}
			acc = acc.merge(m)
		}
	}

	s.acc = acc
	return stateFallbackGetData, nil
}

func (r *Reader) fallbackGetData(ctx context.Context, s *session) (state, error) {
	acc := s.acc

	if acc.pan == "" {
		acc = acc.merge(r.getData(ctx, emv.TagPAN))
	}
	if acc.expiry == "" {
		acc = acc.merge(r.getData(ctx, emv.TagExpirationDate))
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.acc = acc.withTrack2()
	return stateValidate, nil
}

// getData returns the decoded GET DATA answer, or an empty map when the card
// refuses or answers garbage.
func (r *Reader) getData(ctx context.Context, tag uint16) tlv.Map {
	resp, err := r.send(ctx, stateFallbackGetData, emv.GetData(tag))
	if err != nil {
		r.log.WarnContext(ctx, "GET DATA failed", "tag", fmt.Sprintf("%X", tag), "err", err)
		return nil
	}
	if !resp.IsOK() {
		return nil
	}

	m, err := r.decode(resp.Data)
	if err != nil {
		r.log.WarnContext(ctx, "GET DATA answer ignored", "tag", fmt.Sprintf("%X", tag), "err", err)
		return nil
	}
	return m
}

func (r *Reader) validate(ctx context.Context, s *session) (state, error) {
	acc := s.acc

	if acc.pan == "" {
		return 0, newError(InvalidPAN, fmt.Errorf("no PAN on card"))
	}
	if !emv.ValidPAN(acc.pan) {
		return 0, newError(InvalidPAN, fmt.Errorf("PAN %s fails length or Luhn check", tlv.MaskPAN(acc.pan)))
	}

	if acc.expiry == "" {
		return 0, newError(InvalidExpiry, fmt.Errorf("no expiry on card"))
	}
	exp, err := emv.ParseExpiry(acc.expiry)
	if err != nil {
		return 0, newError(InvalidExpiry, err)
	}
	if !exp.ValidAt(r.now()) {
		return 0, newError(InvalidExpiry, fmt.Errorf("card expired %s", exp))
	}

	s.result = &CardData{
		CardType:       string(emv.PreferredBrand(emv.ClassifyByPAN(acc.pan), s.aidBrand)),
		LastFour:       acc.pan[len(acc.pan)-4:],
		ExpiryDate:     exp.String(),
		CardholderName: acc.name,
	}
	r.log.DebugContext(ctx, "card validated", "pan", tlv.MaskPAN(acc.pan))
	return stateDone, nil
}

func (r *Reader) decode(data []byte) (tlv.Map, error) {
	if r.tlvMode == NestedTLV {
		return tlv.DecodeNested(data)
	}
	return tlv.DecodeBytes(data)
}
