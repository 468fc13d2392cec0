package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/schollz/progressbar/v3"

	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/internal/distmatrix"
)

// chunkBar renders matrix build progress. A bar is created on the first
// chunk of each build, once the chunk count is known.
type chunkBar struct {
	w   io.Writer
	bar *progressbar.ProgressBar
}

func newChunkBar(w io.Writer) *chunkBar {
	return &chunkBar{w: w}
}

func (c *chunkBar) update(cp distmatrix.ChunkProgress) {
	if c.bar == nil || cp.Done == 1 {
		c.bar = progressbar.NewOptions(cp.Total,
			progressbar.OptionSetWriter(c.w),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowCount(),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("[cyan]Building distance matrix...[reset]"),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(c.w)
			}),
		)
	}
	if err := c.bar.Set(cp.Done); err != nil {
		slog.Warn("failed to update progress bar", "error", err)
	}
}
