package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/KilimcininKorOglu/tagstore/internal/storage"
)

func initCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Create an empty database",
		Action: func(c *cli.Context) error {
			e, err := openEngine(c, false)
			if err != nil {
				return err
			}
			path := e.DB().Path()
			if err := e.Close(); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "Initialized %s\n", path)
			return nil
		},
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show header and heap statistics",
		Action: func(c *cli.Context) error {
			e, err := openEngine(c, true)
			if err != nil {
				return err
			}
			defer e.Close()

			count, err := e.Tags().Count()
			if err != nil {
				return err
			}
			ids, err := e.Tags().TaggerIDs()
			if err != nil {
				return err
			}

			s := e.DB().Stats()
			w := c.App.Writer
			fmt.Fprintf(w, "Path:        %s\n", e.DB().Path())
			fmt.Fprintf(w, "File size:   %s\n", humanize.IBytes(uint64(s.FileSize)))
			fmt.Fprintf(w, "Chunk size:  %s\n", humanize.IBytes(uint64(s.ChunkSize)))
			fmt.Fprintf(w, "Heap end:    %s\n", humanize.IBytes(s.HeapEnd))
			fmt.Fprintf(w, "Used:        %s in %s blocks\n",
				humanize.IBytes(s.UsedBytes), humanize.Comma(int64(s.UsedBlocks)))
			fmt.Fprintf(w, "Free:        %s in %s blocks\n",
				humanize.IBytes(s.FreeBytes), humanize.Comma(int64(s.FreeBlocks)))
			fmt.Fprintf(w, "Tags:        %s\n", humanize.Comma(int64(count)))
			fmt.Fprintf(w, "Tagger ids:  %s\n", humanize.Comma(int64(len(ids))))
			return nil
		},
	}
}

func verifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "Check the index trees and the heap",
		Action: func(c *cli.Context) error {
			e, err := openEngine(c, true)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.Verify(); err != nil {
				return err
			}

			var used, free int
			err = e.DB().Walk(func(b storage.BlockInfo) bool {
				if b.Used {
					used++
				} else {
					free++
				}
				return true
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(c.App.Writer, "OK: %d used blocks, %d free blocks\n", used, free)
			return nil
		},
	}
}
