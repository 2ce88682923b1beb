package command

import (
	"errors"
	"net/http"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/shardkv/internal/cli/connection"
	"github.com/yndnr/shardkv/internal/cli/output"
)

var (
	errKeyExists   = errors.New("pair with such key already present, use change")
	errKeyNotFound = errors.New("key not found")
)

// bulkKey is the one key the single-key routes cannot address, because
// /kv/bulk is the bulk endpoint.
const bulkKey = "bulk"

// SetCommand returns the set command.
func SetCommand() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "Add a key that does not exist yet",
		ArgsUsage: "KEY VALUE...",
		Description: "Words after KEY are joined with single spaces to form the value.\n" +
			"Fails if the key already exists; use change to overwrite.",
		Action: setAction,
	}
}

func setAction(c *cli.Context) error {
	key, value, err := keyValueArgs(c)
	if err != nil {
		return err
	}
	rt, err := getRuntime(c)
	if err != nil {
		return err
	}

	var res keyResult
	err = rt.client.Post(c.Context, "/kv", entry{Key: key, Value: value}, &res)
	if connection.IsStatus(err, http.StatusConflict) {
		return errKeyExists
	}
	if err != nil {
		return err
	}
	return rt.print(res, "OK")
}

// ChangeCommand returns the change command.
func ChangeCommand() *cli.Command {
	return &cli.Command{
		Name:        "change",
		Usage:       "Replace the value of an existing key",
		ArgsUsage:   "KEY VALUE...",
		Description: "Fails if the key does not exist; use set to add it.",
		Action:      changeAction,
	}
}

func changeAction(c *cli.Context) error {
	key, value, err := keyValueArgs(c)
	if err != nil {
		return err
	}
	rt, err := getRuntime(c)
	if err != nil {
		return err
	}

	var res keyResult
	err = rt.client.Put(c.Context, "/kv", entry{Key: key, Value: value}, &res)
	if connection.IsStatus(err, http.StatusNotFound) {
		return errKeyNotFound
	}
	if err != nil {
		return err
	}
	return rt.print(res, "UPDATED")
}

// GetCommand returns the get command.
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Print the value of a key",
		ArgsUsage: "KEY",
		Action:    getAction,
	}
}

func getAction(c *cli.Context) error {
	if err := exactArgs(c, 1); err != nil {
		return err
	}
	rt, err := getRuntime(c)
	if err != nil {
		return err
	}

	var res entry
	err = rt.client.Get(c.Context, connection.KeyPath(c.Args().First()), &res)
	if connection.IsStatus(err, http.StatusNotFound) {
		return errKeyNotFound
	}
	if err != nil {
		return err
	}
	return rt.print(res, res.Value)
}

// GetAllCommand returns the getall command.
func GetAllCommand() *cli.Command {
	return &cli.Command{
		Name:   "getall",
		Usage:  "List every key and value",
		Action: getAllAction,
	}
}

func getAllAction(c *cli.Context) error {
	rt, err := getRuntime(c)
	if err != nil {
		return err
	}

	entries := map[string]string{}
	if err := rt.client.Get(c.Context, "/kv", &entries); err != nil {
		return err
	}
	if rt.format == output.FormatTable && len(entries) == 0 {
		return rt.print(nil, "Storage is empty")
	}
	return rt.render(entries)
}

// DeleteCommand returns the delete command.
func DeleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Aliases:   []string{"del"},
		Usage:     "Remove a key",
		ArgsUsage: "KEY",
		Action:    deleteAction,
	}
}

func deleteAction(c *cli.Context) error {
	if err := exactArgs(c, 1); err != nil {
		return err
	}
	rt, err := getRuntime(c)
	if err != nil {
		return err
	}

	key := c.Args().First()
	if key == bulkKey {
		var res removeManyResult
		err = rt.client.Delete(c.Context, "/kv/bulk", []string{key}, &res)
	} else {
		err = rt.client.Delete(c.Context, connection.KeyPath(key), nil, nil)
	}
	if connection.IsStatus(err, http.StatusNotFound) {
		return errKeyNotFound
	}
	if err != nil {
		return err
	}
	return rt.print(keyResult{Key: key}, "DELETED")
}

// DeleteAllCommand returns the deleteall command.
func DeleteAllCommand() *cli.Command {
	return &cli.Command{
		Name:   "deleteall",
		Usage:  "Remove every key",
		Action: deleteAllAction,
	}
}

func deleteAllAction(c *cli.Context) error {
	rt, err := getRuntime(c)
	if err != nil {
		return err
	}

	status, err := rt.client.Status(c.Context, http.MethodDelete, "/kv", nil, nil)
	if err != nil {
		return err
	}
	if status == http.StatusNoContent {
		return rt.print(clearResult{Cleared: false}, "Storage is already empty")
	}
	return rt.print(clearResult{Cleared: true}, "CLEARED")
}

// keyValueArgs returns KEY and the remaining words joined as the value.
func keyValueArgs(c *cli.Context) (string, string, error) {
	if c.NArg() < 2 {
		return "", "", errors.New(c.Command.Name + ": expected KEY VALUE...")
	}
	args := c.Args().Slice()
	return args[0], strings.Join(args[1:], " "), nil
}
