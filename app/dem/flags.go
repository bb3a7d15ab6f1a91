package dem

import (
	"flag"

	"github.com/sfomuseum/go-flags/flagset"
)

var bounds string
var out string
var outDir string
var resolution int
var align bool
var interpolation string
var srcCRS string
var dstCRS string

func DefaultFlagSet() *flag.FlagSet {

	fs := flagset.NewFlagSet("dem")

	fs.StringVar(&bounds, "bounds", "", "Extent of the coverage as 'minx,miny,maxx,maxy'. Required.")
	fs.StringVar(&out, "out", "dem.tif", "Output GeoTIFF path.")
	fs.StringVar(&outDir, "out-dir", "", "Split extents too large for one request into tiles and write one GeoTIFF per tile into this directory.")
	fs.IntVar(&resolution, "resolution", 25, "Output cell size in metres, 25 or greater.")
	fs.BoolVar(&align, "align", false, "Snap bounds to the provincial 100m raster grid.")
	fs.StringVar(&interpolation, "interpolation", "", "Resampling method when downsampling (nearest, bilinear, bicubic).")
	fs.StringVar(&srcCRS, "src-crs", "EPSG:3005", "CRS of the bounds.")
	fs.StringVar(&dstCRS, "dst-crs", "EPSG:3005", "CRS of the output raster.")

	return fs
}
