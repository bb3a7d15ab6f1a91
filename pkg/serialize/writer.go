// Package serialize writes assembled feature sets as GeoJSON
// FeatureCollections or line-delimited GeoJSON, optionally gzipped.
package serialize

import (
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/paulmach/orb/geojson"
	"github.com/tidwall/sjson"
)

// Options configure serialization.
type Options struct {
	// CRS is the coordinate reference the features are expressed in. Per
	// RFC 7946 the default (epsg:4326) is implied; any other reference is
	// recorded as a named crs member on the collection.
	CRS string

	// Lowercase rewrites property keys to lowercase.
	Lowercase bool

	// Gzip compresses the output stream.
	Gzip bool
}

// WriteFeatureCollection writes the features as a single FeatureCollection.
func WriteFeatureCollection(w io.Writer, features []*geojson.Feature, opts Options) error {
	out, closeOut, err := wrap(w, opts)
	if err != nil {
		return err
	}

	fc := geojson.NewFeatureCollection()
	fc.Features = prepare(features, opts)

	body, err := fc.MarshalJSON()
	if err != nil {
		closeOut()
		return fmt.Errorf("marshal feature collection: %w", err)
	}

	if member := crsMember(opts.CRS); member != "" {
		body, err = sjson.SetRawBytes(body, "crs", []byte(member))
		if err != nil {
			closeOut()
			return fmt.Errorf("set crs member: %w", err)
		}
	}

	if _, err := out.Write(body); err != nil {
		closeOut()
		return err
	}
	return closeOut()
}

// WriteGeoJSONL writes the features one per line.
func WriteGeoJSONL(w io.Writer, features []*geojson.Feature, opts Options) error {
	out, closeOut, err := wrap(w, opts)
	if err != nil {
		return err
	}

	for _, f := range prepare(features, opts) {
		body, err := f.MarshalJSON()
		if err != nil {
			closeOut()
			return fmt.Errorf("marshal feature: %w", err)
		}
		if _, err := out.Write(append(body, '\n')); err != nil {
			closeOut()
			return err
		}
	}
	return closeOut()
}

// wrap applies output compression. The returned close function flushes the
// compressor but never the caller's writer.
func wrap(w io.Writer, opts Options) (io.Writer, func() error, error) {
	if !opts.Gzip {
		return w, func() error { return nil }, nil
	}
	gz := gzip.NewWriter(w)
	return gz, gz.Close, nil
}

// prepare applies property-key rewrites without mutating the input
// features; the caller may still be holding the assembled result.
func prepare(features []*geojson.Feature, opts Options) []*geojson.Feature {
	if !opts.Lowercase {
		return features
	}

	out := make([]*geojson.Feature, 0, len(features))
	for _, f := range features {
		nf := &geojson.Feature{
			ID:       f.ID,
			Type:     f.Type,
			Geometry: f.Geometry,
		}
		if f.Properties != nil {
			nf.Properties = make(geojson.Properties, len(f.Properties))
			for k, v := range f.Properties {
				nf.Properties[strings.ToLower(k)] = v
			}
		}
		out = append(out, nf)
	}
	return out
}

// crsMember renders the named crs object for non-default output references.
func crsMember(crs string) string {
	if crs == "" || strings.EqualFold(crs, "epsg:4326") {
		return ""
	}
	parts := strings.SplitN(crs, ":", 2)
	if len(parts) != 2 {
		return ""
	}
	return fmt.Sprintf(`{"type":"name","properties":{"name":"urn:ogc:def:crs:EPSG::%s"}}`, parts[1])
}
