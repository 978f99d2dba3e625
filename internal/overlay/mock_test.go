package overlay

import (
	"context"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/mock"

	"github.com/sells-group/provmap/internal/geometry"
)

// mockDisplay is a testify mock of Display.
type mockDisplay struct {
	mock.Mock
}

func (m *mockDisplay) AddRaster(l *Layer) {
	m.Called(l)
}

func (m *mockDisplay) RemoveRaster(instanceID string) {
	m.Called(instanceID)
}

func (m *mockDisplay) BringToFront(instanceID string) {
	m.Called(instanceID)
}

func (m *mockDisplay) SetRasterOpacity(instanceID string, opacity float64) {
	m.Called(instanceID, opacity)
}

// permissive allows every display call and records them.
func permissive() *mockDisplay {
	d := &mockDisplay{}
	d.On("AddRaster", mock.Anything).Return()
	d.On("RemoveRaster", mock.Anything).Return()
	d.On("BringToFront", mock.Anything).Return()
	d.On("SetRasterOpacity", mock.Anything, mock.Anything).Return()
	return d
}

func bounds(s, w, n, e float64) *geometry.Bounds {
	return &geometry.Bounds{South: s, West: w, North: n, East: e}
}

// staticOpener serves fixed documents by location.
type staticOpener map[string]string

func (o staticOpener) open(_ context.Context, location string) (io.ReadCloser, error) {
	doc, ok := o[location]
	if !ok {
		return nil, eris.Errorf("not found: %s", location)
	}
	return io.NopCloser(strings.NewReader(doc)), nil
}
