package main

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/KilimcininKorOglu/tagstore/internal/storage"
	"github.com/KilimcininKorOglu/tagstore/internal/tags"
)

// ErrTagsNotWritten is returned when the index rejects a tag update.
var ErrTagsNotWritten = errors.New("tags were not written, see log for details")

func nodeFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "node",
		Aliases:  []string{"n"},
		Usage:    "Node record (decimal or 0x hex)",
		Required: true,
	}
}

func tagsCommand() *cli.Command {
	return &cli.Command{
		Name:  "tags",
		Usage: "Read and write the tags of a node",
		Subcommands: []*cli.Command{
			{
				Name:   "get",
				Usage:  "Print the tags of a node",
				Flags:  []cli.Flag{nodeFlag(), &cli.StringFlag{Name: "id", Usage: "Only print this tagger id"}},
				Action: tagsGetAction,
			},
			{
				Name:      "set",
				Usage:     "Replace the tags of a node",
				ArgsUsage: "ID=HEX...",
				Flags:     []cli.Flag{nodeFlag()},
				Action:    tagsSetAction,
			},
			{
				Name:   "clear",
				Usage:  "Remove every tag of a node",
				Flags:  []cli.Flag{nodeFlag()},
				Action: tagsClearAction,
			},
			{
				Name:   "ids",
				Usage:  "List interned tagger ids",
				Action: tagsIDsAction,
			},
		},
	}
}

func parseNode(s string) (storage.Record, error) {
	n, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return storage.NullRecord, errors.Wrapf(err, "invalid node %q", s)
	}
	if n == 0 {
		return storage.NullRecord, errors.Wrap(tags.ErrNullNode, "invalid node 0")
	}
	return storage.Record(n), nil
}

// parseTagArg parses "id=hex" into a tag.
func parseTagArg(arg string) (tags.Tag, error) {
	id, payload, ok := strings.Cut(arg, "=")
	if !ok || id == "" {
		return nil, errors.Errorf("invalid tag %q, want ID=HEX", arg)
	}
	data, err := hex.DecodeString(payload)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid payload for %q", id)
	}
	return tags.NewMemoryTagWithData(id, data), nil
}

func tagsGetAction(c *cli.Context) error {
	node, err := parseNode(c.String("node"))
	if err != nil {
		return err
	}

	e, err := openEngine(c, true)
	if err != nil {
		return err
	}
	defer e.Close()

	w := c.App.Writer
	if id := c.String("id"); id != "" {
		tag := e.Tags().GetTag(node, id)
		if tag == nil {
			return errors.Errorf("no tag %q on node %s", id, node)
		}
		fmt.Fprintf(w, "%s\t%s\n", id, hex.EncodeToString(tag.Bytes(0, -1)))
		return nil
	}

	for tag := range e.Tags().Tags(node).All() {
		fmt.Fprintf(w, "%s\t%s\n", tag.TaggerID(), hex.EncodeToString(tag.Bytes(0, -1)))
	}
	return nil
}

func tagsSetAction(c *cli.Context) error {
	node, err := parseNode(c.String("node"))
	if err != nil {
		return err
	}

	desired := make([]tags.Tag, 0, c.NArg())
	for _, arg := range c.Args().Slice() {
		tag, err := parseTagArg(arg)
		if err != nil {
			return err
		}
		desired = append(desired, tag)
	}

	e, err := openEngine(c, false)
	if err != nil {
		return err
	}
	defer e.Close()

	if !e.Tags().SetTags(node, desired) {
		return ErrTagsNotWritten
	}
	return nil
}

func tagsClearAction(c *cli.Context) error {
	node, err := parseNode(c.String("node"))
	if err != nil {
		return err
	}

	e, err := openEngine(c, false)
	if err != nil {
		return err
	}
	defer e.Close()

	if !e.Tags().RemoveTags(node) {
		return ErrTagsNotWritten
	}
	return nil
}

func tagsIDsAction(c *cli.Context) error {
	e, err := openEngine(c, true)
	if err != nil {
		return err
	}
	defer e.Close()

	ids, err := e.Tags().TaggerIDs()
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Fprintln(c.App.Writer, id)
	}
	return nil
}
