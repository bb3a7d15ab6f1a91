package wfs

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/paulmach/orb/geojson"
)

// Feature pages can run to tens of megabytes; swap orb's JSON codec for
// json-iterator.
var jsonCodec = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            false,
	ValidateJsonRawMessage: true,
}.Froze()

func init() {
	geojson.CustomJSONMarshaler = jsonCodec
	geojson.CustomJSONUnmarshaler = jsonCodec
}
