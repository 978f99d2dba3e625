package session

import (
	"context"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/provmap/internal/alias"
	"github.com/sells-group/provmap/internal/catalog"
	"github.com/sells-group/provmap/internal/fetcher"
	"github.com/sells-group/provmap/internal/geometry"
)

// Required assets.
const (
	AssetDataset  = "dataset"
	AssetAliases  = "aliases"
	AssetGroups   = "groups"
	AssetGeometry = "geometry"
	AssetOverlays = "overlays"
)

// LoadError reports a required asset that could not be loaded.
type LoadError struct {
	Asset    string
	Location string
	Err      error
}

func (e *LoadError) Error() string {
	return "session: load " + e.Asset + " from " + e.Location + ": " + e.Err.Error()
}

func (e *LoadError) Unwrap() error { return e.Err }

// Alert is the message shown to the user in place of the map.
func (e *LoadError) Alert() string {
	return "Kon " + baseName(e.Location) + " niet laden."
}

func baseName(location string) string {
	if u, err := url.Parse(location); err == nil && len(u.Scheme) > 1 {
		return path.Base(u.Path)
	}
	return filepath.Base(location)
}

// Source opens asset locations. *fetcher.Source implements it.
type Source interface {
	Open(ctx context.Context, location string) (io.ReadCloser, error)
	Localize(ctx context.Context, location, dir string) (string, error)
}

func (s *Session) loadDataset(ctx context.Context, location, tmpDir string) (*fetcher.Table, error) {
	switch fetcher.Ext(location) {
	case ".xlsx", ".xlsm":
		local, err := s.src.Localize(ctx, location, tmpDir)
		if err != nil {
			return nil, err
		}
		return fetcher.ReadXLSX(ctx, local, fetcher.XLSXOptions{SheetName: s.cfg.Data.Sheet})
	default:
		rc, err := s.src.Open(ctx, location)
		if err != nil {
			return nil, err
		}
		defer rc.Close() //nolint:errcheck
		return fetcher.ReadCSV(ctx, rc, fetcher.CSVOptions{LazyQuotes: true})
	}
}

// loadAliases merges the inline table with the optional alias file.
func (s *Session) loadAliases(ctx context.Context, location string) (*alias.Table, error) {
	entries := append([]alias.Entry(nil), s.cfg.Aliases...)
	if location != "" {
		rc, err := s.src.Open(ctx, location)
		if err != nil {
			return nil, err
		}
		defer rc.Close() //nolint:errcheck
		file, err := alias.Load(rc)
		if err != nil {
			return nil, err
		}
		entries = append(entries, file.Entries()...)
	}
	return alias.New(entries)
}

func (s *Session) loadGroups(ctx context.Context, location string) ([]catalog.Group, error) {
	rc, err := s.src.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer rc.Close() //nolint:errcheck
	return catalog.DecodeGroups(rc, s.cfg.Display.GroupTitles)
}

func (s *Session) loadGeometry(ctx context.Context, location, tmpDir string) (*geometry.Collection, error) {
	switch fetcher.Ext(location) {
	case ".shp":
		local, err := s.src.Localize(ctx, location, tmpDir)
		if err != nil {
			return nil, err
		}
		if local != location {
			// Downloaded: the attribute table has to sit next to it.
			u, err := url.Parse(location)
			if err != nil {
				return nil, eris.Wrap(err, "session: parse geometry url")
			}
			u.Path = strings.TrimSuffix(u.Path, path.Ext(u.Path)) + ".dbf"
			if _, err := s.src.Localize(ctx, u.String(), tmpDir); err != nil {
				return nil, eris.Wrap(err, "session: shapefile attributes")
			}
		}
		return geometry.LoadShapefile(local)
	case ".zip":
		local, err := s.src.Localize(ctx, location, tmpDir)
		if err != nil {
			return nil, err
		}
		dir, err := os.MkdirTemp(tmpDir, "shp-")
		if err != nil {
			return nil, eris.Wrap(err, "session: create extract dir")
		}
		files, err := fetcher.ExtractZIP(local, dir)
		if err != nil {
			return nil, err
		}
		shpPath, ok := fetcher.FindExt(files, ".shp")
		if !ok {
			return nil, eris.Errorf("session: no .shp file in %s", location)
		}
		return geometry.LoadShapefile(shpPath)
	default:
		rc, err := s.src.Open(ctx, location)
		if err != nil {
			return nil, err
		}
		defer rc.Close() //nolint:errcheck
		return geometry.DecodeGeoJSON(rc)
	}
}
