package cmd

import (
	"bytes"
	"errors"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// List cached kd-trees.
func ListCache(ctx *cli.Context) error {
	setupLogging(ctx)

	cache, err := openCache(ctx)
	if err != nil {
		return err
	}
	if cache == nil {
		return errors.New("missing --cache-dir")
	}
	defer cache.Close()

	entries, err := cache.List()
	if err != nil {
		return err
	}

	var (
		buf   bytes.Buffer
		total uint64
	)
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Digest", "Triangles", "Size", "Created"})
	for _, entry := range entries {
		total += uint64(entry.Size)
		table.Append([]string{
			entry.Digest.String(),
			humanize.Comma(int64(entry.Triangles)),
			humanize.Bytes(uint64(entry.Size)),
			humanize.Time(entry.Created),
		})
	}
	table.SetFooter([]string{"", humanize.Comma(int64(len(entries))) + " trees", humanize.Bytes(total), ""})
	table.Render()

	logger.Noticef("cached kd-trees\n%s", buf.String())
	return nil
}

// Remove all cached kd-trees.
func PurgeCache(ctx *cli.Context) error {
	setupLogging(ctx)

	cache, err := openCache(ctx)
	if err != nil {
		return err
	}
	if cache == nil {
		return errors.New("missing --cache-dir")
	}
	defer cache.Close()

	removed, err := cache.Purge()
	if err != nil {
		return err
	}
	logger.Noticef("removed %d cached kd-trees", removed)
	return nil
}
