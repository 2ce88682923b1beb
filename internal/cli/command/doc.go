// Package command defines the shardkv-cli commands.
//
// It uses urfave/cli/v2 for parsing. Every command is a thin wrapper over
// one HTTP endpoint: it builds the request, maps the interesting error
// statuses to short messages and prints the result in the selected output
// format. The repl command reuses the same commands for each line typed.
package command
