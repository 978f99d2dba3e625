package overlay

import (
	"context"
	"io"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/provmap/internal/fetcher"
)

// Status classifies an overlay index load.
type Status string

// Load outcomes.
const (
	StatusLoaded Status = "loaded"
	StatusEmpty  Status = "empty"
	StatusFailed Status = "failed"
)

// Empty-state messages shown in place of the overlay list.
const (
	MessageEmpty  = "Geen overlays gevonden. Voeg data/overlays/index.json toe."
	MessageFailed = "Overlays konden niet worden geladen."
)

// Outcome is the result of loading the optional overlay index. A failed
// load is a value, not an error: the rest of the session is unaffected.
type Outcome struct {
	Status   Status    `json:"status"`
	Overlays []Overlay `json:"overlays"`
	Message  string    `json:"message,omitempty"`
	Err      error     `json:"-"`
}

// Opener opens an asset location for reading.
type Opener func(ctx context.Context, location string) (io.ReadCloser, error)

// LoadIndex fetches and decodes the overlay index at location. It never
// returns an error; failures are reported through the Outcome.
func LoadIndex(ctx context.Context, open Opener, location string) Outcome {
	if location == "" {
		return Outcome{Status: StatusEmpty, Message: MessageEmpty}
	}

	rc, err := open(ctx, location)
	if err != nil {
		return failed(location, eris.Wrap(err, "overlay: open index"))
	}
	defer rc.Close() //nolint:errcheck

	itemCh, errCh := fetcher.DecodeJSONArray[Overlay](ctx, rc)
	var items []Overlay
	for item := range itemCh {
		if err := item.Validate(); err != nil {
			zap.L().Warn("overlay: skipping index entry", zap.String("location", location), zap.Error(err))
			continue
		}
		items = append(items, item)
	}
	if err := <-errCh; err != nil {
		return failed(location, eris.Wrap(err, "overlay: decode index"))
	}

	if len(items) == 0 {
		return Outcome{Status: StatusEmpty, Message: MessageEmpty}
	}
	return Outcome{Status: StatusLoaded, Overlays: items}
}

func failed(location string, err error) Outcome {
	zap.L().Info("overlay: index unavailable", zap.String("location", location), zap.Error(err))
	return Outcome{Status: StatusFailed, Message: MessageFailed, Err: err}
}
