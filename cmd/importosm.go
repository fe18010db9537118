package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/cheggaaa/pb/v3/termutil"
	"github.com/dustin/go-humanize"
	"github.com/royalcat/cafemap/internal/telemetry"
	"github.com/royalcat/cafemap/markers"
	"github.com/urfave/cli/v3"
)

func importOSM(ctx *cli.Context) error {
	telemetry.SetupLogger(slog.LevelInfo)
	log := slog.Default()

	threads := ctx.Int("threads")
	if threads == 0 {
		threads = runtime.GOMAXPROCS(0)
	}

	input := ctx.String("input")
	file, err := os.Open(input)
	if err != nil {
		return err
	}
	defer file.Close()
	stat, err := file.Stat()
	if err != nil {
		return err
	}

	bar := pb.Start64(stat.Size())
	bar.Set("prefix", "scanning "+input)
	bar.Set(pb.Bytes, true)
	bar.SetRefreshRate(time.Second)
	if w, err := termutil.TerminalWidth(); w == 0 || err != nil {
		bar.SetTemplateString(`{{with string . "prefix"}}{{.}} {{end}}{{counters . }} {{bar . }} {{percent . }} {{speed . }} {{rtime . "ETA %s"}}` + "\n")
	}

	cafes, err := markers.ImportOSM(ctx.Context, file, threads, func(n int64) { bar.SetCurrent(n) })
	bar.Finish()
	if err != nil {
		return err
	}

	output := ctx.String("output")
	if err := markers.SaveFile(output, cafes); err != nil {
		return fmt.Errorf("failed to save cafes: %w", err)
	}

	log.Info("osm import complete",
		"input", input,
		"input_size", humanize.IBytes(uint64(stat.Size())),
		"cafes", humanize.Comma(int64(len(cafes))),
		"output", output,
	)
	return nil
}
