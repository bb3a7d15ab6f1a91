// Package catalog resolves dataset identifiers against the BC Data
// Catalogue API and the feature service's table list, and produces the
// typed schema descriptors the rest of the system consumes.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/bcgeo/bcdata-go/pkg/cache"
	"github.com/bcgeo/bcdata-go/pkg/wfs"
)

// ErrNotFound indicates the dataset is not present in the catalogue.
var ErrNotFound = errors.New("dataset not found in catalogue")

// AmbiguousDatasetError is returned when a catalogue package maps to more
// than one feature-service layer. The caller is expected to prompt with
// the candidate list.
type AmbiguousDatasetError struct {
	Package string
	Layers  []string
}

// Error implements the error interface.
func (e *AmbiguousDatasetError) Error() string {
	return fmt.Sprintf("package %s includes more than one WFS resource, specify one of: %s",
		e.Package, strings.Join(e.Layers, ", "))
}

// Config holds the catalogue client configuration.
type Config struct {
	// APIURL is the CKAN action API base.
	APIURL string

	// UserAgent is sent with every request.
	UserAgent string

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// Retry is the transient-failure retry policy.
	Retry wfs.RetryConfig
}

// DefaultConfig returns a configuration pointed at the public catalogue.
func DefaultConfig() Config {
	return Config{
		APIURL:    "https://catalogue.data.gov.bc.ca/api/3/action/",
		UserAgent: "bcdata-go/0.1.0",
		Timeout:   30 * time.Second,
		Retry:     wfs.DefaultRetryConfig(),
	}
}

// Catalog combines the CKAN API, the feature service's capability/schema
// endpoints and the metadata cache into the catalogue collaborator.
type Catalog struct {
	config     Config
	httpClient *http.Client
	wfs        *wfs.Client
	cache      *cache.Manager
	logger     zerolog.Logger
}

// New creates a catalogue client. The WFS client supplies capabilities and
// DescribeFeatureType; the cache manager holds table lists and schemas.
func New(cfg Config, wfsClient *wfs.Client, cacheManager *cache.Manager) (*Catalog, error) {
	if cfg.APIURL == "" {
		return nil, fmt.Errorf("catalogue API URL is required")
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if wfsClient == nil {
		return nil, fmt.Errorf("wfs client is required")
	}
	if cacheManager == nil {
		return nil, fmt.Errorf("cache manager is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = wfs.DefaultRetryConfig()
	}

	return &Catalog{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		wfs:        wfsClient,
		cache:      cacheManager,
		logger:     log.With().Str("component", "catalog").Logger(),
	}, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Catalog) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// get performs one CKAN API request with retry.
func (c *Catalog) get(ctx context.Context, action string, params url.Values) ([]byte, error) {
	rawurl := c.config.APIURL + action + "?" + params.Encode()

	var body []byte
	err := wfs.Retry(ctx, c.config.Retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", c.config.UserAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return &wfs.ServiceError{
				ErrorClass: wfs.ErrorClassNetwork,
				Message:    "catalogue transport failure",
				Err:        err,
			}
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			return &wfs.ServiceError{
				StatusCode: resp.StatusCode,
				ErrorClass: classifyCatalogueStatus(resp.StatusCode),
				Message:    resp.Status,
			}
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return &wfs.ServiceError{
				ErrorClass: wfs.ErrorClassNetwork,
				Message:    "read catalogue response",
				Err:        err,
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func classifyCatalogueStatus(status int) wfs.ErrorClass {
	if status >= 500 {
		return wfs.ErrorClassServer
	}
	return wfs.ErrorClassClient
}

// capabilitiesKey is the cache key for the combined table list + server
// page size.
const capabilitiesKey = "capabilities"

type cachedCapabilities struct {
	Tables   []string `json:"tables"`
	PageSize int      `json:"pagesize"`
}

func (c *Catalog) capabilities(ctx context.Context, refresh bool) (*cachedCapabilities, error) {
	if refresh {
		if err := c.cache.Delete(ctx, capabilitiesKey); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to invalidate capabilities cache")
		}
	}

	data, err := c.cache.GetOrRefresh(ctx, capabilitiesKey, cache.TableListTTL, func(ctx context.Context) ([]byte, error) {
		caps, err := c.wfs.Capabilities(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(&cachedCapabilities{
			Tables:   caps.Tables,
			PageSize: caps.PageSize,
		})
	})
	if err != nil {
		return nil, err
	}

	var caps cachedCapabilities
	if err := json.Unmarshal(data, &caps); err != nil {
		return nil, fmt.Errorf("decode cached capabilities: %w", err)
	}
	return &caps, nil
}

// ListTables returns all tables available via the feature service, from the
// cache unless refresh is set or the cached list is more than a day old.
func (c *Catalog) ListTables(ctx context.Context, refresh bool) ([]string, error) {
	caps, err := c.capabilities(ctx, refresh)
	if err != nil {
		return nil, err
	}
	return caps.Tables, nil
}

// ServerPageSize returns the service's per-request result ceiling.
func (c *Catalog) ServerPageSize(ctx context.Context) (int, error) {
	caps, err := c.capabilities(ctx, false)
	if err != nil {
		return 0, err
	}
	return caps.PageSize, nil
}

// ResolveName resolves a dataset identifier (short catalogue id or
// schema-qualified table name, either case) to the canonical uppercase
// table name. Resolved once per session; the result is immutable.
func (c *Catalog) ResolveName(ctx context.Context, dataset string) (string, error) {
	upper := strings.ToUpper(dataset)

	tables, err := c.ListTables(ctx, false)
	if err != nil {
		return "", err
	}
	for _, t := range tables {
		if t == upper {
			return upper, nil
		}
	}

	return c.TableName(ctx, dataset)
}

// TableName queries the catalogue for the feature-service layer backing a
// package id. The object_name in the package record is not a reliable key,
// so the layer name is parsed out of the package's WMS resource URLs. A
// package with several WFS layers yields an *AmbiguousDatasetError.
func (c *Catalog) TableName(ctx context.Context, pkg string) (string, error) {
	// Package ids are lowercase in the catalogue.
	pkg = strings.ToLower(pkg)

	params := url.Values{}
	params.Set("id", pkg)

	body, err := c.get(ctx, "package_show", params)
	if err != nil {
		var se *wfs.ServiceError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return "", fmt.Errorf("%w: %s", ErrNotFound, pkg)
		}
		return "", err
	}

	var layers []string
	for _, res := range gjson.GetBytes(body, `result.resources.#(format=="wms")#.url`).Array() {
		name, err := layerNameFromURL(res.String())
		if err != nil {
			c.logger.Debug().Err(err).Str("url", res.String()).Msg("Skipping unparseable WMS resource URL")
			continue
		}
		layers = append(layers, name)
	}

	switch len(layers) {
	case 0:
		return "", fmt.Errorf("%w: no WFS resource for package %s", ErrNotFound, pkg)
	case 1:
		return layers[0], nil
	default:
		return "", &AmbiguousDatasetError{Package: pkg, Layers: layers}
	}
}

// layerNameFromURL extracts the layer name from a WMS resource URL, where
// it is the fourth path element (e.g. /geo/pub/<LAYER>/ows).
func layerNameFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	parts := strings.Split(u.Path, "/")
	if len(parts) < 4 || parts[3] == "" {
		return "", fmt.Errorf("no layer name in path %q", u.Path)
	}
	return parts[3], nil
}

// TableDefinition searches the catalogue for the source column details of
// a table. Only tables served via WFS are supported.
func (c *Catalog) TableDefinition(ctx context.Context, table string) (*Definition, error) {
	table = strings.ToUpper(table)

	tables, err := c.ListTables(ctx, false)
	if err != nil {
		return nil, err
	}
	found := false
	for _, t := range tables {
		if t == table {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: only tables available via WFS are supported, %s not served", ErrNotFound, table)
	}

	params := url.Values{}
	params.Set("q", table)

	body, err := c.get(ctx, "package_search", params)
	if err != nil {
		return nil, err
	}

	if gjson.GetBytes(body, "result.count").Int() == 0 {
		c.logger.Warn().Str("dataset", table).Msg("Catalogue search returned no results")
		return nil, fmt.Errorf("%w: catalogue search returned nothing for %s", ErrNotFound, table)
	}

	var def *Definition
	gjson.GetBytes(body, "result.results.#.resources").ForEach(func(_, resources gjson.Result) bool {
		resources.ForEach(func(_, resource gjson.Result) bool {
			if def != nil {
				return false
			}
			if !resourceMatchesTable(resource, table) {
				return true
			}
			details := resource.Get("details").String()
			if details == "" {
				return true
			}
			def = &Definition{
				Comments: resource.Get("object_table_comments").String(),
				Columns:  parseColumns(details),
			}
			return false
		})
		return def == nil
	})

	if def == nil {
		return nil, fmt.Errorf("catalogue search for %s does not return a table schema", table)
	}
	return def, nil
}

// resourceMatchesTable reports whether a catalogue resource describes the
// table, by WMS URL for wms resources or preview_info for multiple-format
// resources.
func resourceMatchesTable(resource gjson.Result, table string) bool {
	switch resource.Get("format").String() {
	case "wms":
		name, err := layerNameFromURL(resource.Get("url").String())
		return err == nil && name == table
	case "multiple":
		// preview_info is JSON embedded in a string field.
		preview := resource.Get("preview_info").String()
		return gjson.Get(preview, "layer_name").String() == table
	default:
		return false
	}
}

// parseColumns decodes the details field, itself JSON embedded in a string.
func parseColumns(details string) []Column {
	var columns []Column
	gjson.Parse(details).ForEach(func(_, col gjson.Result) bool {
		columns = append(columns, Column{
			Name:      col.Get("column_name").String(),
			Type:      col.Get("data_type").String(),
			Precision: int(col.Get("data_precision").Int()),
			Comments:  col.Get("column_comments").String(),
		})
		return true
	})
	return columns
}

// Schema returns the typed schema descriptor for a table, from the cache
// unless refresh is set or the cached copy is more than thirty days old.
func (c *Catalog) Schema(ctx context.Context, table string, refresh bool) (*Schema, error) {
	table = strings.ToUpper(table)
	key := "schema-" + table

	if refresh {
		if err := c.cache.Delete(ctx, key); err != nil {
			c.logger.Warn().Err(err).Str("dataset", table).Msg("Failed to invalidate schema cache")
		}
	}

	data, err := c.cache.GetOrRefresh(ctx, key, cache.SchemaTTL, func(ctx context.Context) ([]byte, error) {
		ft, err := c.wfs.DescribeFeatureType(ctx, table)
		if err != nil {
			return nil, err
		}

		schema := &Schema{
			Table:          table,
			GeometryColumn: ft.GeometryColumn,
			GeometryType:   ft.GeometryType,
		}
		for _, f := range ft.Fields {
			schema.Fields = append(schema.Fields, SchemaField{Name: f.Name, Type: f.Type})
		}
		return json.Marshal(schema)
	})
	if err != nil {
		return nil, err
	}

	var schema Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("decode cached schema for %s: %w", table, err)
	}
	return &schema, nil
}
