package bcdata

import (
	"fmt"

	"github.com/bcgeo/bcdata-go/pkg/cache"
	"github.com/bcgeo/bcdata-go/pkg/catalog"
	"github.com/bcgeo/bcdata-go/pkg/wfs"
)

// NewDefault wires a Downloader against the provincial endpoints with a
// file-backed metadata cache in the default location.
func NewDefault() (*Downloader, error) {
	wfsClient, err := wfs.New(wfs.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create WFS client: %w", err)
	}

	backend, err := cache.NewFileBackend(cache.DefaultCachePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata cache: %w", err)
	}

	cat, err := catalog.New(catalog.DefaultConfig(), wfsClient, cache.NewManager(backend))
	if err != nil {
		return nil, fmt.Errorf("failed to create catalogue client: %w", err)
	}

	return NewDownloader(wfsClient, cat)
}
