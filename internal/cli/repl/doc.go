// Package repl implements the interactive mode of shardkv-cli.
//
// The REPL reads one command per line in a small case-insensitive
// language:
//
//	SET key value             CHANGE key value
//	SETMULT {a:1 b:2}         CHANGEMULT {a:10 b:20}
//	GET key                   GETALL
//	DELETE key                DELMULT {a b c}
//	DELETEALL                 SHARDS
//	DUMP path.json            LOAD path.json
//	HELP                      EXIT
//
// Each line is translated into the argument list of a shardkv-cli command
// and handed to an Executor. LOAD and EXIT offer to dump a non-empty store
// first.
package repl
