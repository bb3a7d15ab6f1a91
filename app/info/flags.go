package info

import (
	"flag"

	"github.com/sfomuseum/go-flags/flagset"
)

var indent bool
var refresh bool

func DefaultFlagSet() *flag.FlagSet {

	fs := flagset.NewFlagSet("info")

	fs.BoolVar(&indent, "indent", false, "Indent the JSON output.")
	fs.BoolVar(&refresh, "refresh", false, "Refresh the cached schema from the server.")

	return fs
}
