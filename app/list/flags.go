package list

import (
	"flag"

	"github.com/sfomuseum/go-flags/flagset"
)

var refresh bool

func DefaultFlagSet() *flag.FlagSet {

	fs := flagset.NewFlagSet("list")

	fs.BoolVar(&refresh, "refresh", false, "Refresh the cached table list from the server.")

	return fs
}
