// Package fetcher opens map assets from local paths, HTTP or FTP and parses
// the tabular and JSON formats they come in.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Fetcher downloads a remote asset.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// Source resolves asset locations. Plain paths and file:// URLs are read from
// disk; http(s) and ftp locations go through the matching Fetcher. Every
// location is attempted exactly once.
type Source struct {
	HTTP Fetcher
	FTP  Fetcher
}

// NewSource returns a Source using the given HTTP options and a default FTP
// fetcher with the same timeout.
func NewSource(opts HTTPOptions) *Source {
	return &Source{
		HTTP: NewHTTPFetcher(opts),
		FTP:  NewFTPFetcher(FTPOptions{Timeout: opts.Timeout}),
	}
}

// Open returns a reader for location. The caller must close it.
func (s *Source) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	f, local, err := s.route(location)
	if err != nil {
		return nil, err
	}
	if f == nil {
		rc, err := os.Open(local) //nolint:gosec
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: open %s", local)
		}
		return rc, nil
	}
	return f.Download(ctx, location)
}

// Localize makes location available as a file on disk and returns its path.
// Local files are returned as-is; remote assets are downloaded into dir under
// their base name.
func (s *Source) Localize(ctx context.Context, location, dir string) (string, error) {
	f, local, err := s.route(location)
	if err != nil {
		return "", err
	}
	if f == nil {
		if _, err := os.Stat(local); err != nil {
			return "", eris.Wrapf(err, "fetcher: stat %s", local)
		}
		return local, nil
	}

	u, _ := url.Parse(location)
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		name = "asset"
	}
	dest := filepath.Join(dir, name)
	n, err := f.DownloadToFile(ctx, location, dest)
	if err != nil {
		return "", err
	}
	zap.L().Debug("fetcher: localized asset",
		zap.String("location", location),
		zap.String("path", dest),
		zap.Int64("bytes", n),
	)
	return dest, nil
}

// route picks the fetcher for location, or returns a nil fetcher and the
// local path for on-disk assets.
func (s *Source) route(location string) (Fetcher, string, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, "", eris.New("fetcher: empty location")
	}
	u, err := url.Parse(location)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// No scheme, or a Windows drive letter.
		return nil, location, nil
	}

	var f Fetcher
	switch strings.ToLower(u.Scheme) {
	case "file":
		return nil, u.Path, nil
	case "http", "https":
		f = s.HTTP
	case "ftp":
		f = s.FTP
	default:
		return nil, "", eris.Errorf("fetcher: unsupported scheme %q", u.Scheme)
	}
	if f == nil {
		return nil, "", eris.Errorf("fetcher: no fetcher configured for %s", u.Scheme)
	}
	return f, "", nil
}

// Ext returns the lower-case file extension of location, ignoring any query
// string on URLs.
func Ext(location string) string {
	if u, err := url.Parse(location); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		return strings.ToLower(path.Ext(u.Path))
	}
	return strings.ToLower(filepath.Ext(location))
}

func writeFile(rc io.ReadCloser, dest string) (int64, error) {
	defer rc.Close() //nolint:errcheck

	file, err := os.Create(dest) //nolint:gosec
	if err != nil {
		return 0, eris.Wrap(err, "fetcher: create file")
	}
	defer file.Close() //nolint:errcheck

	n, err := io.Copy(file, rc)
	if err != nil {
		return n, eris.Wrap(err, "fetcher: write file")
	}
	return n, nil
}
