package overlay

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadIndex(t *testing.T) {
	open := staticOpener{
		"index.json": `[{"id":"flood","title":"Overstroming","url":"img/flood.png"},{"id":"broken"}]`,
		"empty.json": `[]`,
		"bad.json":   `{"id":"flood"}`,
	}

	tests := []struct {
		name     string
		location string
		status   Status
		count    int
		message  string
	}{
		{name: "loaded", location: "index.json", status: StatusLoaded, count: 1},
		{name: "empty list", location: "empty.json", status: StatusEmpty, message: MessageEmpty},
		{name: "not configured", location: "", status: StatusEmpty, message: MessageEmpty},
		{name: "missing file", location: "missing.json", status: StatusFailed, message: MessageFailed},
		{name: "not an array", location: "bad.json", status: StatusFailed, message: MessageFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := LoadIndex(context.Background(), open.open, tt.location)
			assert.Equal(t, tt.status, out.Status)
			assert.Len(t, out.Overlays, tt.count)
			assert.Equal(t, tt.message, out.Message)
			if tt.status == StatusFailed {
				require.Error(t, out.Err)
			} else {
				assert.NoError(t, out.Err)
			}
		})
	}
}
