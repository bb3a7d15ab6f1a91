package main

import (
	"context"
	"fmt"
	"os"

	"github.com/bcgeo/bcdata-go/app/cat"
	"github.com/bcgeo/bcdata-go/app/count"
	"github.com/bcgeo/bcdata-go/app/dem"
	"github.com/bcgeo/bcdata-go/app/dump"
	"github.com/bcgeo/bcdata-go/app/info"
	"github.com/bcgeo/bcdata-go/app/list"
	"github.com/bcgeo/bcdata-go/app/load"
)

const usage = `bcdata - download data from the British Columbia geographic data services

Usage:
  bcdata list [options]
  bcdata info [options] dataset
  bcdata count [options] dataset
  bcdata dump [options] dataset
  bcdata cat [options] dataset
  bcdata dem [options]
  bcdata pg [options] dataset

Run 'bcdata <command> -h' for command options.`

func main() {

	ctx := context.Background()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	command := os.Args[1]

	// Subcommand flag sets parse os.Args[2:].
	os.Args = os.Args[1:]

	var err error

	switch command {
	case "list":
		err = list.Run(ctx)
	case "info":
		err = info.Run(ctx)
	case "count":
		err = count.Run(ctx)
	case "dump":
		err = dump.Run(ctx)
	case "cat":
		err = cat.Run(ctx)
	case "dem":
		err = dem.Run(ctx)
	case "pg":
		err = load.Run(ctx)
	case "-h", "--help", "help":
		fmt.Fprintln(os.Stdout, usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %s\n\n%s\n", command, usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to run %s, %v\n", command, err)
		os.Exit(1)
	}
}
