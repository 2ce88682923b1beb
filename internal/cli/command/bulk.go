package command

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/shardkv/internal/cli/connection"
)

func separatorFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "separator",
		Usage: "string between key and value in each PAIR",
		Value: "=",
	}
}

// SetMultCommand returns the setmult command.
func SetMultCommand() *cli.Command {
	return &cli.Command{
		Name:        "setmult",
		Usage:       "Add several keys at once",
		ArgsUsage:   "KEY=VALUE...",
		Description: "Keys that already exist are skipped and listed.",
		Flags:       []cli.Flag{separatorFlag()},
		Action:      setMultAction,
	}
}

func setMultAction(c *cli.Context) error {
	pairs, err := parsePairs(c.Args().Slice(), c.String("separator"))
	if err != nil {
		return err
	}
	rt, err := getRuntime(c)
	if err != nil {
		return err
	}

	var res addManyResult
	err = rt.client.Post(c.Context, "/kv/bulk", pairs, &res)
	if connection.IsStatus(err, http.StatusConflict) {
		// Nothing was added; the skipped keys arrive in the error details.
		res = addManyResult{Skipped: failedKeys(err, "skipped")}
		err = nil
	}
	if err != nil {
		return err
	}
	return rt.print(res, summary("Inserted", res.Added, "Skipped", res.Skipped))
}

// ChangeMultCommand returns the changemult command.
func ChangeMultCommand() *cli.Command {
	return &cli.Command{
		Name:        "changemult",
		Usage:       "Replace the values of several existing keys",
		ArgsUsage:   "KEY=VALUE...",
		Description: "Keys that do not exist are left absent and listed.",
		Flags:       []cli.Flag{separatorFlag()},
		Action:      changeMultAction,
	}
}

func changeMultAction(c *cli.Context) error {
	pairs, err := parsePairs(c.Args().Slice(), c.String("separator"))
	if err != nil {
		return err
	}
	rt, err := getRuntime(c)
	if err != nil {
		return err
	}

	var res updateManyResult
	err = rt.client.Put(c.Context, "/kv/bulk", pairs, &res)
	if connection.IsStatus(err, http.StatusNotFound) {
		res = updateManyResult{Absent: failedKeys(err, "absent")}
		err = nil
	}
	if err != nil {
		return err
	}
	return rt.print(res, summary("Updated", res.Updated, "Absent", res.Absent))
}

// DelMultCommand returns the delmult command.
func DelMultCommand() *cli.Command {
	return &cli.Command{
		Name:      "delmult",
		Usage:     "Remove several keys at once",
		ArgsUsage: "KEY...",
		Action:    delMultAction,
	}
}

func delMultAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("delmult: no keys given")
	}
	rt, err := getRuntime(c)
	if err != nil {
		return err
	}

	var res removeManyResult
	err = rt.client.Delete(c.Context, "/kv/bulk", c.Args().Slice(), &res)
	if connection.IsStatus(err, http.StatusNotFound) {
		res = removeManyResult{Absent: failedKeys(err, "absent")}
		err = nil
	}
	if err != nil {
		return err
	}
	return rt.print(res, summary("Removed", res.Removed, "Absent", res.Absent))
}

// parsePairs turns KEY<sep>VALUE arguments into a map. The value may
// contain the separator; the key is everything before its first
// occurrence. A later pair for the same key wins.
func parsePairs(args []string, sep string) (map[string]string, error) {
	if sep == "" {
		return nil, errors.New("separator must not be empty")
	}
	if len(args) == 0 {
		return nil, errors.New("no pairs given")
	}

	pairs := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, sep)
		if !ok {
			return nil, fmt.Errorf("malformed pair %q: want KEY%sVALUE", arg, sep)
		}
		pairs[key] = value
	}
	return pairs, nil
}

// failedKeys extracts the key list named field from an error's details.
func failedKeys(err error, field string) []string {
	var apiErr *connection.APIError
	if !errors.As(err, &apiErr) {
		return []string{}
	}
	details := map[string][]string{}
	if !apiErr.DecodeDetails(&details) || details[field] == nil {
		return []string{}
	}
	return details[field]
}

// summary renders "Inserted 2. Skipped: a, b".
func summary(verb string, n int, label string, keys []string) string {
	msg := fmt.Sprintf("%s %d.", verb, n)
	if len(keys) > 0 {
		msg += " " + label + ": " + strings.Join(keys, ", ")
	}
	return msg
}
