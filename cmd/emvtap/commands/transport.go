package commands

import (
	"fmt"
	"log/slog"

	"github.com/gregLibert/emvtap/internal/config"
	"github.com/gregLibert/emvtap/pkg/libnfc"
	"github.com/gregLibert/emvtap/pkg/pcsc"
	"github.com/gregLibert/emvtap/pkg/reader"
)

type transport interface {
	reader.Transport
	Close() error
}

func openTransport(tc config.TransportConfig, log *slog.Logger) (transport, error) {
	log = log.With("backend", tc.Backend)

	switch tc.Backend {
	case config.BackendPCSC:
		return pcsc.New(pcsc.Config{
			ReaderIndex: tc.ReaderIndex,
			ReaderName:  tc.ReaderName,
			TagTimeout:  tc.TagTimeout,
			Logger:      log,
		}), nil
	case config.BackendLibNFC:
		return libnfc.New(libnfc.Config{
			Connection: tc.ConnString,
			TagTimeout: tc.TagTimeout,
			Logger:     log,
		}), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", tc.Backend)
	}
}
