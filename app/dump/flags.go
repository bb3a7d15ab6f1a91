package dump

import (
	"flag"

	"github.com/sfomuseum/go-flags/flagset"
)

var query string
var bounds string
var boundsCRS string
var crs string
var sortby string
var pagesize int
var workers int
var count int
var noCountCheck bool
var dedupe bool
var strict bool
var out string
var gzipOutput bool
var lowercase bool
var verbose bool

func DefaultFlagSet() *flag.FlagSet {

	fs := flagset.NewFlagSet("dump")

	fs.StringVar(&query, "query", "", "A CQL filter predicate applied server side.")
	fs.StringVar(&bounds, "bounds", "", "Restrict results to 'minx,miny,maxx,maxy'.")
	fs.StringVar(&boundsCRS, "bounds-crs", "", "CRS of the bounds. Default EPSG:3005.")
	fs.StringVar(&crs, "crs", "", "Output CRS. Default epsg:4326.")
	fs.StringVar(&sortby, "sortby", "", "Column used to order paged requests. Defaults to the table's sort key.")
	fs.IntVar(&pagesize, "pagesize", 0, "Features requested per page. Defaults to the server's page size.")
	fs.IntVar(&workers, "workers", 0, "Concurrent page requests. Default 4.")
	fs.IntVar(&count, "count", 0, "Cap the number of features requested.")
	fs.BoolVar(&noCountCheck, "no-count-check", false, "Skip the server count request. Requires -count.")
	fs.BoolVar(&dedupe, "dedupe", false, "Drop features repeating an already seen id.")
	fs.BoolVar(&strict, "strict", false, "Treat an incomplete result as a fatal error.")
	fs.StringVar(&out, "out", "", "Output path. Defaults to stdout.")
	fs.BoolVar(&gzipOutput, "gzip", false, "Gzip the output.")
	fs.BoolVar(&lowercase, "lowercase", false, "Lowercase property names.")
	fs.BoolVar(&verbose, "verbose", false, "Enable debug logging.")

	return fs
}
