package count

import (
	"flag"

	"github.com/sfomuseum/go-flags/flagset"
)

var query string
var bounds string
var boundsCRS string

func DefaultFlagSet() *flag.FlagSet {

	fs := flagset.NewFlagSet("count")

	fs.StringVar(&query, "query", "", "A CQL filter predicate applied server side.")
	fs.StringVar(&bounds, "bounds", "", "Restrict the count to 'minx,miny,maxx,maxy'.")
	fs.StringVar(&boundsCRS, "bounds-crs", "", "CRS of the bounds. Default EPSG:3005.")

	return fs
}
