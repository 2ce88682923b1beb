// Package output renders command results for shardkv-cli.
//
// Three formats are supported: table (aligned columns through
// text/tabwriter, the default), json and yaml. Table output converts
// structs, slices of structs and maps into a Table; map rows are sorted by
// key so listings are stable between runs.
package output
