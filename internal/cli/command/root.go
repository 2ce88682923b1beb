package command

import (
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/shardkv/internal/cli/config"
	"github.com/yndnr/shardkv/internal/cli/connection"
	"github.com/yndnr/shardkv/internal/cli/output"
	"github.com/yndnr/shardkv/internal/infra/buildinfo"
	"github.com/yndnr/shardkv/internal/infra/tlsroots"
)

// AppName is the binary name.
const AppName = "shardkv-cli"

const runtimeKey = "runtime"

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:     AppName,
		Usage:    "command-line client for the shardkv server",
		Version:  buildinfo.String(),
		Flags:    globalFlags(),
		Metadata: map[string]any{},
		Commands: []*cli.Command{
			SetCommand(),
			ChangeCommand(),
			GetCommand(),
			GetAllCommand(),
			DeleteCommand(),
			DeleteAllCommand(),
			SetMultCommand(),
			ChangeMultCommand(),
			DelMultCommand(),
			DumpCommand(),
			LoadCommand(),
			ShardsCommand(),
			StatusCommand(),
			HealthCommand(),
			REPLCommand(),
		},
		Before: setup,
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "shardkv server address (e.g. localhost:5034, https://kv:5034, unix:///run/shardkv.sock)",
			EnvVars: []string{"SHARDKV_SERVER"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format: table, json, yaml",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "CLI config file (default ~/.shardkv/cli.yaml)",
			EnvVars: []string{"SHARDKV_CLI_CONFIG"},
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "per-request timeout",
		},
		&cli.StringFlag{
			Name:    "ca-file",
			Usage:   "PEM file with extra CA certificates for https servers",
			EnvVars: []string{"SHARDKV_CA_FILE"},
		},
		&cli.BoolFlag{
			Name:  "insecure",
			Usage: "skip server certificate verification",
		},
	}
}

// runtime is the per-invocation state shared by all commands.
type runtime struct {
	cfg    *config.CLIConfig
	client *connection.HTTPClient
	format output.Format
	out    io.Writer
}

// setup resolves settings in the order flag, environment, config file,
// default and stores the resulting runtime in the app metadata.
func setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	if c.IsSet("server") {
		cfg.Server = c.String("server")
	}
	if c.IsSet("output") {
		cfg.Output = c.String("output")
	}
	if c.IsSet("timeout") {
		cfg.Timeout = c.Duration("timeout")
	}
	if c.IsSet("ca-file") {
		cfg.CAFile = c.String("ca-file")
	}
	if c.IsSet("insecure") {
		cfg.Insecure = c.Bool("insecure")
	}

	format, err := output.ParseFormat(cfg.Output)
	if err != nil {
		return err
	}

	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	c.App.Metadata[runtimeKey] = &runtime{
		cfg:    cfg,
		client: client,
		format: format,
		out:    c.App.Writer,
	}
	return nil
}

// newClient builds the HTTP client for cfg. Trust settings apply only to
// https servers.
func newClient(cfg *config.CLIConfig) (*connection.HTTPClient, error) {
	opts := []connection.Option{connection.WithTimeout(cfg.Timeout)}
	if strings.HasPrefix(cfg.Server, "https://") && (cfg.CAFile != "" || cfg.Insecure) {
		tlsCfg, err := tlsroots.ClientConfig(cfg.CAFile, cfg.Insecure)
		if err != nil {
			return nil, err
		}
		opts = append(opts, connection.WithTLSConfig(tlsCfg))
	}
	return connection.NewHTTPClient(cfg.Server, opts...), nil
}

func getRuntime(c *cli.Context) (*runtime, error) {
	rt, ok := c.App.Metadata[runtimeKey].(*runtime)
	if !ok {
		return nil, fmt.Errorf("%s: not initialised", AppName)
	}
	return rt, nil
}

// print writes text in table mode and data in the structured formats.
func (rt *runtime) print(data any, text string) error {
	if rt.format == output.FormatTable {
		_, err := fmt.Fprintln(rt.out, text)
		return err
	}
	return output.NewFormatter(rt.format).Format(rt.out, data)
}

// render writes data through the selected formatter.
func (rt *runtime) render(data any) error {
	return output.NewFormatter(rt.format).Format(rt.out, data)
}

// exactArgs fails unless the command got exactly n arguments.
func exactArgs(c *cli.Context, n int) error {
	if c.NArg() != n {
		return fmt.Errorf("%s: expected %d argument(s) %s, got %d", c.Command.Name, n, c.Command.ArgsUsage, c.NArg())
	}
	return nil
}
