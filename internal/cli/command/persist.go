package command

import (
	"fmt"
	"net/http"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/shardkv/internal/cli/connection"
)

// DumpCommand returns the dump command.
func DumpCommand() *cli.Command {
	return &cli.Command{
		Name:        "dump",
		Usage:       "Write the store to a JSON file on the server host",
		ArgsUsage:   "PATH",
		Description: "Relative paths are resolved against the server's data directory.",
		Action:      dumpAction,
	}
}

func dumpAction(c *cli.Context) error {
	if err := exactArgs(c, 1); err != nil {
		return err
	}
	rt, err := getRuntime(c)
	if err != nil {
		return err
	}

	var res snapshotResult
	if err := rt.client.Post(c.Context, "/kv/dump", pathRequest{Path: c.Args().First()}, &res); err != nil {
		return err
	}
	return rt.print(res, fmt.Sprintf("DUMPED %d entries to %s", res.Entries, res.Path))
}

// LoadCommand returns the load command.
func LoadCommand() *cli.Command {
	return &cli.Command{
		Name:      "load",
		Usage:     "Replace the store with a JSON dump on the server host",
		ArgsUsage: "PATH",
		Description: "Current pairs are lost. With --backup the store is dumped to the\n" +
			"given path first and the load is skipped if that dump fails.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "backup",
				Usage: "dump the current store to `PATH` before loading",
			},
		},
		Action: loadAction,
	}
}

func loadAction(c *cli.Context) error {
	if err := exactArgs(c, 1); err != nil {
		return err
	}
	rt, err := getRuntime(c)
	if err != nil {
		return err
	}

	if backup := c.String("backup"); backup != "" {
		if err := rt.client.Post(c.Context, "/kv/dump", pathRequest{Path: backup}, nil); err != nil {
			return fmt.Errorf("backup before load: %w", err)
		}
	}

	var res snapshotResult
	err = rt.client.Post(c.Context, "/kv/load", pathRequest{Path: c.Args().First()}, &res)
	switch {
	case connection.IsStatus(err, http.StatusNotFound):
		return fmt.Errorf("dump file not found: %s", c.Args().First())
	case connection.IsStatus(err, http.StatusUnprocessableEntity):
		return fmt.Errorf("dump file is corrupt, store left unchanged: %w", err)
	case err != nil:
		return err
	}
	return rt.print(res, fmt.Sprintf("LOADED %d entries from %s", res.Entries, res.Path))
}
