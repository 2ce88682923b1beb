package command

import (
	"context"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/shardkv/internal/cli/repl"
)

// REPLCommand returns the repl command.
func REPLCommand() *cli.Command {
	return &cli.Command{
		Name:  "repl",
		Usage: "Start an interactive session",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-history",
				Usage: "do not read or write the history file",
			},
		},
		Action: replAction,
	}
}

func replAction(c *cli.Context) error {
	rt, err := getRuntime(c)
	if err != nil {
		return err
	}

	historyFile := rt.cfg.HistoryFile
	if c.Bool("no-history") {
		historyFile = ""
	}

	exec := &appExecutor{rt: rt, in: c.App.Reader, out: c.App.Writer}
	r := repl.New(exec,
		repl.WithInput(c.App.Reader),
		repl.WithOutput(c.App.Writer),
		repl.WithHistory(repl.NewHistory(historyFile, repl.DefaultHistorySize)),
	)
	return r.Run(c.Context)
}

// appExecutor runs each REPL line as a fresh invocation of the CLI app,
// carrying over the resolved connection and output settings.
type appExecutor struct {
	rt  *runtime
	in  io.Reader
	out io.Writer
}

func (e *appExecutor) Execute(ctx context.Context, args []string) error {
	app := App()
	app.Reader = e.in
	app.Writer = e.out
	app.ErrWriter = e.out
	app.ExitErrHandler = func(*cli.Context, error) {}

	argv := []string{
		AppName,
		"--server", e.rt.client.Server(),
		"--output", string(e.rt.format),
		"--timeout", e.rt.cfg.Timeout.String(),
	}
	if e.rt.cfg.CAFile != "" {
		argv = append(argv, "--ca-file", e.rt.cfg.CAFile)
	}
	if e.rt.cfg.Insecure {
		argv = append(argv, "--insecure")
	}
	return app.RunContext(ctx, append(argv, args...))
}

func (e *appExecutor) IsEmpty(ctx context.Context) (bool, error) {
	var res statusResult
	if err := e.rt.client.Get(ctx, "/admin/v1/status/summary", &res); err != nil {
		return false, err
	}
	return res.Keys == 0, nil
}
