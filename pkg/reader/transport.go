package reader

import (
	"context"
)

// Technology names a tag technology a Transport can open a session on.
type Technology string

// IsoDep is ISO/IEC 14443-4, the only technology EMV contactless uses.
const IsoDep Technology = "IsoDep"

// Tag describes the card that answered the technology request.
type Tag struct {
	ID           []byte // UID as reported by the reader
	ATR          []byte // answer to reset, or ATS-derived ATR for PC/SC
	Technologies []Technology
}

// Transport is the contactless reader capability consumed by Reader.
//
// A Transport serves one technology request at a time. Blocking calls honor
// ctx cancellation. CancelTechnologyRequest must be idempotent and safe to
// call when no request is outstanding.
type Transport interface {
	IsSupported() bool
	IsEnabled() bool
	Start(ctx context.Context) error
	RequestTechnology(ctx context.Context, tech Technology) error
	GetTag(ctx context.Context) (*Tag, error)
	Transceive(ctx context.Context, apdu []byte) ([]byte, error)
	CancelTechnologyRequest() error
}
