package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v3"

	_ "github.com/KimMachineGun/automemlimit"
	_ "go.uber.org/automaxprocs"
)

func main() {
	app := &cli.App{
		Name:        "cafemap",
		Description: "Cafe map cluster interaction engine and development harness",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "serve headless map sessions over http",
				Flags: append(append(markerFlags(), interactionFlags()...),
					&cli.StringFlag{
						Name:  "listen",
						Value: ":8080",
					},
					&cli.StringFlag{
						Name:        "otel.endpoint",
						DefaultText: "",
					},
				),
				Action: serve,
			},
			{
				Name:  "simulate",
				Usage: "replay taps on a headless map and print every decision",
				Flags: append(append(markerFlags(), interactionFlags()...),
					&cli.StringFlag{
						Name:  "center",
						Usage: "camera center as lng,lat",
						Value: "13.405,52.52",
					},
					&cli.Float64Flag{
						Name:  "zoom",
						Value: 12,
					},
					&cli.StringSliceFlag{
						Name:    "tap",
						Aliases: []string{"t"},
						Usage:   "screen point as x,y, repeatable",
					},
				),
				Action: simulate,
			},
			{
				Name:  "bench",
				Usage: "drive many concurrent sessions with random taps",
				Flags: append(append(markerFlags(), interactionFlags()...),
					&cli.IntFlag{
						Name:  "sessions",
						Value: 64,
					},
					&cli.IntFlag{
						Name:  "taps",
						Value: 1000,
						Usage: "taps per session",
					},
					&cli.IntFlag{
						Name:        "threads",
						Aliases:     []string{"j"},
						DefaultText: "max",
					},
					&cli.StringFlag{
						Name:  "stats",
						Usage: "write the runtime report to this file instead of stdout",
					},
				),
				Action: bench,
			},
			{
				Name:  "import-osm",
				Usage: "extract cafes from an osm pbf extract",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:      "input",
						Aliases:   []string{"i"},
						Required:  true,
						TakesFile: true,
					},
					&cli.StringFlag{
						Name:      "output",
						Aliases:   []string{"o"},
						Required:  true,
						TakesFile: true,
						Usage:     "cafes json, zstd compressed when ending in .zst",
					},
					&cli.IntFlag{
						Name:        "threads",
						Aliases:     []string{"j"},
						DefaultText: "max",
					},
				},
				Action: importOSM,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
