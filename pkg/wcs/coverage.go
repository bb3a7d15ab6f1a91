// Package wcs fetches terrain elevation coverages as GeoTIFF.
package wcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"

	"github.com/bcgeo/bcdata-go/pkg/logging"
	"github.com/bcgeo/bcdata-go/pkg/tile"
	"github.com/bcgeo/bcdata-go/pkg/wfs"
)

// DefaultCoverageURL is the provincial WCS endpoint.
const DefaultCoverageURL = "https://openmaps.gov.bc.ca/om/wcs"

// demCoverage is the 25m provincial DEM layer.
const demCoverage = "pub:bc_elevation_25m_bcalb"

// nativeResolution is the DEM's cell size in metres. Requests may
// downsample but never upsample.
const nativeResolution = 25

// defaultPixelCeiling caps the pixel count of a single GetCoverage
// request; larger extents are quartered into tiles before fetching.
const defaultPixelCeiling = 4096 * 4096

// validInterpolations are the resampling methods the server accepts.
var validInterpolations = map[string]bool{
	"nearest":  true,
	"bilinear": true,
	"bicubic":  true,
}

// Config holds coverage client settings.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	Retry     wfs.RetryConfig
}

// DefaultConfig returns settings for the provincial endpoint.
func DefaultConfig() Config {
	return Config{
		BaseURL:   DefaultCoverageURL,
		UserAgent: "bcdata-go/0.1.0",
		Timeout:   120 * time.Second,
		Retry:     wfs.DefaultRetryConfig(),
	}
}

// Client requests coverages from a WCS endpoint.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     zerolog.Logger
}

// New creates a coverage client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user agent is required")
	}
	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logging.NewLogger("wcs"),
	}, nil
}

// SetHTTPClient replaces the underlying HTTP client, for testing.
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

// DEMOptions control a GetDEM request.
type DEMOptions struct {
	// SrcCRS is the CRS of the input bounds. Defaults to EPSG:3005.
	SrcCRS string
	// DstCRS is the CRS of the output raster. Defaults to EPSG:3005.
	DstCRS string
	// Resolution is the output cell size in metres, 25 or greater.
	Resolution int
	// Align snaps the bounds to the provincial 100m raster grid.
	// Only valid when both CRS values are EPSG:3005.
	Align bool
	// Interpolation selects the resampling method when downsampling
	// (nearest, bilinear, bicubic). Defaults to bilinear when
	// Resolution exceeds 25 and is invalid at native resolution.
	Interpolation string
	// PixelCeiling caps the pixel count of a single request when
	// fetching tiled. Zero means the default ceiling.
	PixelCeiling int
}

// AlignBounds snaps bounds outward to the provincial 100m raster grid,
// shifted 12.5m to match cell centers.
func AlignBounds(b orb.Bound) orb.Bound {
	return orb.Bound{
		Min: orb.Point{
			math.Trunc(b.Min[0]/100)*100 - 12.5,
			math.Trunc(b.Min[1]/100)*100 - 12.5,
		},
		Max: orb.Point{
			(math.Trunc(b.Max[0]/100)+1)*100 + 87.5,
			(math.Trunc(b.Max[1]/100)+1)*100 + 87.5,
		},
	}
}

// GetDEM requests the provincial DEM for bounds and writes the GeoTIFF
// to outFile. Returns the path written.
func (c *Client) GetDEM(ctx context.Context, bounds orb.Bound, outFile string, opts DEMOptions) (string, error) {
	if opts.SrcCRS == "" {
		opts.SrcCRS = "EPSG:3005"
	}
	if opts.DstCRS == "" {
		opts.DstCRS = "EPSG:3005"
	}
	if opts.Resolution == 0 {
		opts.Resolution = nativeResolution
	}
	if opts.Resolution < nativeResolution {
		return "", fmt.Errorf("resolution requested must be %dm or greater", nativeResolution)
	}

	if opts.Align {
		if !strings.EqualFold(opts.SrcCRS, "EPSG:3005") || !strings.EqualFold(opts.DstCRS, "EPSG:3005") {
			return "", fmt.Errorf("align is only valid for EPSG:3005 bounds and outputs, target CRS is %s", opts.DstCRS)
		}
		bounds = AlignBounds(bounds)
	}

	if opts.Interpolation == "" && opts.Resolution > nativeResolution {
		c.logger.Info().Msg("interpolation not specified, defaulting to bilinear")
		opts.Interpolation = "bilinear"
	}
	if opts.Interpolation != "" {
		if opts.Resolution == nativeResolution {
			return "", fmt.Errorf("interpolation %s invalid at native resolution, no resampling required", opts.Interpolation)
		}
		if !validInterpolations[opts.Interpolation] {
			return "", fmt.Errorf("interpolation %s invalid, valid methods are nearest, bilinear, bicubic", opts.Interpolation)
		}
	}

	params := url.Values{}
	params.Set("service", "WCS")
	params.Set("version", "1.0.0")
	params.Set("request", "GetCoverage")
	params.Set("coverage", demCoverage)
	params.Set("Format", "GeoTIFF")
	params.Set("bbox", formatBounds(bounds))
	params.Set("CRS", opts.SrcCRS)
	params.Set("RESPONSE_CRS", opts.DstCRS)
	params.Set("resx", strconv.Itoa(opts.Resolution))
	params.Set("resy", strconv.Itoa(opts.Resolution))
	if opts.Interpolation != "" {
		params.Set("INTERPOLATION", opts.Interpolation)
	}
	rawurl := c.config.BaseURL + "?" + params.Encode()

	var body []byte
	err := wfs.Retry(ctx, c.config.Retry, func() error {
		var err error
		body, err = c.fetch(ctx, rawurl)
		return err
	})
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(outFile, body, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", outFile, err)
	}
	c.logger.Info().
		Str("path", outFile).
		Int("bytes", len(body)).
		Msg("wrote coverage")
	return outFile, nil
}

// GetDEMTiled requests the provincial DEM for bounds too large for one
// GetCoverage call, writing one GeoTIFF per tile into outDir. The extent
// is quartered until each tile's pixel count is at or under the ceiling.
// Returns the paths written; a *tile.PartialCoverageError is returned
// alongside them when the split reached its area floor, in which case the
// affected tiles may be truncated by the server.
func (c *Client) GetDEMTiled(ctx context.Context, bounds orb.Bound, outDir string, opts DEMOptions) ([]string, error) {
	if opts.Resolution == 0 {
		opts.Resolution = nativeResolution
	}
	if opts.Resolution < nativeResolution {
		return nil, fmt.Errorf("resolution requested must be %dm or greater", nativeResolution)
	}
	ceiling := opts.PixelCeiling
	if ceiling == 0 {
		ceiling = defaultPixelCeiling
	}

	if opts.SrcCRS == "" {
		opts.SrcCRS = "EPSG:3005"
	}
	if opts.DstCRS == "" {
		opts.DstCRS = "EPSG:3005"
	}

	// Snapping per tile would expand each tile outward and overlap its
	// neighbours, so the full extent is aligned up front.
	if opts.Align {
		if !strings.EqualFold(opts.SrcCRS, "EPSG:3005") || !strings.EqualFold(opts.DstCRS, "EPSG:3005") {
			return nil, fmt.Errorf("align is only valid for EPSG:3005 bounds and outputs, target CRS is %s", opts.DstCRS)
		}
		bounds = AlignBounds(bounds)
		opts.Align = false
	}

	res := float64(opts.Resolution)
	estimate := func(ctx context.Context, b orb.Bound) (int, error) {
		w := int(math.Ceil((b.Max[0] - b.Min[0]) / res))
		h := int(math.Ceil((b.Max[1] - b.Min[1]) / res))
		return w * h, nil
	}

	tiles, splitErr := tile.Split(ctx, bounds, estimate, tile.Options{
		Ceiling: ceiling,
		MinSpan: res,
	})
	var partial *tile.PartialCoverageError
	if splitErr != nil && !errors.As(splitErr, &partial) {
		return nil, splitErr
	}

	c.logger.Info().
		Int("tiles", len(tiles)).
		Int("ceiling", ceiling).
		Msg("coverage request split")

	paths := make([]string, 0, len(tiles))
	for i, t := range tiles {
		outFile := filepath.Join(outDir, fmt.Sprintf("dem_%d.tif", i))
		if _, err := c.GetDEM(ctx, t.Bound, outFile, opts); err != nil {
			return paths, fmt.Errorf("tile %d of %d: %w", i, len(tiles), err)
		}
		paths = append(paths, outFile)
	}

	if partial != nil {
		return paths, partial
	}
	return paths, nil
}

// fetch performs one GetCoverage request and validates the payload is a
// GeoTIFF rather than a service exception document.
func (c *Client) fetch(ctx context.Context, rawurl string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)

	c.logger.Debug().Str("url", rawurl).Msg("requesting coverage")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &wfs.ServiceError{
			ErrorClass: wfs.ErrorClassNetwork,
			Message:    fmt.Sprintf("request failed: %v", err),
			Err:        err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, wfs.NewServiceError(resp.StatusCode, strings.TrimSpace(string(body)))
	}

	contentType := resp.Header.Get("Content-Type")
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &wfs.ServiceError{
			ErrorClass: wfs.ErrorClassNetwork,
			Message:    fmt.Sprintf("failed to read response: %v", err),
			Err:        err,
		}
	}

	switch {
	case strings.HasPrefix(contentType, "image/tiff"):
		return body, nil
	case strings.Contains(contentType, "vnd.ogc.se_xml"):
		return nil, &wfs.ServiceError{
			StatusCode: resp.StatusCode,
			ErrorClass: wfs.ErrorClassClient,
			Message:    fmt.Sprintf("coverage request failed: %s", strings.TrimSpace(string(body))),
		}
	default:
		return nil, &wfs.ServiceError{
			StatusCode: resp.StatusCode,
			ErrorClass: wfs.ErrorClassServer,
			Message:    fmt.Sprintf("unexpected content type %s", contentType),
		}
	}
}

func formatBounds(b orb.Bound) string {
	coords := []float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]}
	parts := make([]string, len(coords))
	for i, v := range coords {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}
