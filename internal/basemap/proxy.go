// Package basemap proxies and caches the raster tiles drawn under the
// province layer.
package basemap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Defaults for the CARTO light basemap without labels.
const (
	DefaultURL    = "https://a.basemaps.cartocdn.com/light_nolabels/{z}/{x}/{y}.png"
	DefaultFormat = "png"
	Attribution   = "&copy; OpenStreetMap contributors &copy; CARTO"
	MaxZoom       = 20
)

// ErrInvalidTile is returned for tile coordinates outside the pyramid.
var ErrInvalidTile = eris.New("basemap: invalid tile")

// Options configures a Proxy.
type Options struct {
	// URL is the upstream template with {z}, {x} and {y} placeholders.
	URL       string
	Format    string
	UserAgent string
	Timeout   time.Duration
	// RateLimit bounds upstream requests per second; zero disables limiting.
	RateLimit float64
	Cache     *Cache
	// OnResult is told "hit", "miss" or "error" for every tile request.
	OnResult func(result string)
}

// Proxy fetches basemap tiles from an upstream tile server through a cache.
type Proxy struct {
	template  string
	format    string
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
	cache     *Cache
	onResult  func(string)
}

// NewProxy creates a tile proxy.
func NewProxy(opts Options) *Proxy {
	p := &Proxy{
		template:  opts.URL,
		format:    opts.Format,
		userAgent: opts.UserAgent,
		client:    &http.Client{Timeout: opts.Timeout},
		cache:     opts.Cache,
		onResult:  opts.OnResult,
	}
	if p.template == "" {
		p.template = DefaultURL
	}
	if p.format == "" {
		p.format = DefaultFormat
	}
	if p.userAgent == "" {
		p.userAgent = "provmap/1.0"
	}
	if p.client.Timeout == 0 {
		p.client.Timeout = 30 * time.Second
	}
	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	if p.onResult == nil {
		p.onResult = func(string) {}
	}
	return p
}

// TileURL expands the upstream template for t.
func (p *Proxy) TileURL(t Tile) string {
	return strings.NewReplacer(
		"{z}", strconv.Itoa(t.Z),
		"{x}", strconv.Itoa(t.X),
		"{y}", strconv.Itoa(t.Y),
	).Replace(p.template)
}

// Fetch returns the tile bytes and their content type.
func (p *Proxy) Fetch(ctx context.Context, t Tile) ([]byte, string, error) {
	if !t.Valid() {
		return nil, "", eris.Wrapf(ErrInvalidTile, "basemap: %d/%d/%d", t.Z, t.X, t.Y)
	}
	if p.cache != nil {
		if data := p.cache.Get(t); data != nil {
			p.onResult("hit")
			return data, p.ContentType(), nil
		}
	}

	data, err := p.fetchUpstream(ctx, t)
	if err != nil {
		p.onResult("error")
		return nil, "", err
	}
	p.onResult("miss")
	if p.cache != nil {
		p.cache.Put(t, data)
	}
	return data, p.ContentType(), nil
}

func (p *Proxy) fetchUpstream(ctx context.Context, t Tile) ([]byte, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "basemap: rate limiter wait")
		}
	}

	url := p.TileURL(t)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "basemap: create request")
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "basemap: fetch tile")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("basemap: upstream returned %d for %s", resp.StatusCode, url)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "basemap: read tile body")
	}

	zap.L().Debug("basemap: fetched tile", zap.String("url", url), zap.Int("bytes", len(data)))
	return data, nil
}

// ContentType returns the MIME type of the configured tile format.
func (p *Proxy) ContentType() string {
	switch p.format {
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

// ServeHTTP serves /{z}/{x}/{y}.{ext}.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var t Tile
	var ext string
	if _, err := fmt.Sscanf(r.URL.Path, "/%d/%d/%d.%s", &t.Z, &t.X, &t.Y, &ext); err != nil {
		http.Error(w, "invalid tile path", http.StatusBadRequest)
		return
	}

	data, ct, err := p.Fetch(r.Context(), t)
	switch {
	case eris.Is(err, ErrInvalidTile):
		http.Error(w, "invalid tile", http.StatusBadRequest)
		return
	case err != nil:
		zap.L().Error("basemap: tile fetch failed", zap.Error(err))
		http.Error(w, "upstream fetch failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", ct)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(data)
}
