package command

import (
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/shardkv/internal/cli/output"
)

// ShardsCommand returns the shards command.
func ShardsCommand() *cli.Command {
	return &cli.Command{
		Name:   "shards",
		Usage:  "Show the number of keys in each shard",
		Action: shardsAction,
	}
}

func shardsAction(c *cli.Context) error {
	rt, err := getRuntime(c)
	if err != nil {
		return err
	}

	var res shardsResult
	if err := rt.client.Get(c.Context, "/admin/v1/shards", &res); err != nil {
		return err
	}
	if rt.format != output.FormatTable {
		return rt.render(res)
	}

	table := output.NewTable("SHARD", "KEYS")
	for _, s := range res.Shards {
		table.AddRow(strconv.Itoa(s.Index), strconv.Itoa(s.Count))
	}
	table.AddRow("total", strconv.Itoa(res.Total))
	return rt.render(table)
}

// StatusCommand returns the status command.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Show server version and store size",
		Action: statusAction,
	}
}

func statusAction(c *cli.Context) error {
	rt, err := getRuntime(c)
	if err != nil {
		return err
	}

	var res statusResult
	if err := rt.client.Get(c.Context, "/admin/v1/status/summary", &res); err != nil {
		return err
	}
	return rt.render(res)
}

// HealthCommand returns the health command.
func HealthCommand() *cli.Command {
	return &cli.Command{
		Name:   "health",
		Usage:  "Check that the server is up",
		Action: healthAction,
	}
}

func healthAction(c *cli.Context) error {
	rt, err := getRuntime(c)
	if err != nil {
		return err
	}

	var res healthResult
	if err := rt.client.Get(c.Context, "/health", &res); err != nil {
		return err
	}
	return rt.print(res, res.Status)
}
