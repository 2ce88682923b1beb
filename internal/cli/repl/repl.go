package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
)

// Banner is printed when the REPL starts and on HELP.
const Banner = `SET key value
CHANGE key value
SETMULT {a:1 b:2}
CHANGEMULT {a:10 b:20}
GET key
GETALL
DELETE key
DELMULT {a b c}
DELETEALL
SHARDS
STATUS
DUMP path.json
LOAD path.json
EXIT`

// Executor runs translated commands against a server.
type Executor interface {
	// Execute runs one shardkv-cli command given its arguments.
	Execute(ctx context.Context, args []string) error
	// IsEmpty reports whether the store holds no entries.
	IsEmpty(ctx context.Context) (bool, error)
}

// REPL represents the Read-Eval-Print Loop.
type REPL struct {
	exec      Executor
	input     *bufio.Reader
	output    io.Writer
	prompt    string
	completer *Completer
	history   *History
}

// Option configures a REPL.
type Option func(*REPL)

// WithInput sets the input stream.
func WithInput(r io.Reader) Option {
	return func(rp *REPL) { rp.input = bufio.NewReader(r) }
}

// WithOutput sets the output stream.
func WithOutput(w io.Writer) Option {
	return func(rp *REPL) { rp.output = w }
}

// WithHistory sets the history store.
func WithHistory(h *History) Option {
	return func(rp *REPL) { rp.history = h }
}

// WithPrompt sets the prompt string.
func WithPrompt(p string) Option {
	return func(rp *REPL) { rp.prompt = p }
}

// New creates a new REPL instance.
func New(exec Executor, opts ...Option) *REPL {
	r := &REPL{
		exec:      exec,
		input:     bufio.NewReader(os.Stdin),
		output:    os.Stdout,
		prompt:    "shardkv> ",
		completer: NewCompleter(),
		history:   NewHistory("", DefaultHistorySize),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run starts the REPL loop. It returns nil after EXIT or end of input and
// the context error if ctx is cancelled between lines.
func (r *REPL) Run(ctx context.Context) error {
	if err := r.history.Load(); err != nil {
		fmt.Fprintf(r.output, "warning: load history: %v\n", err)
	}
	defer func() {
		if err := r.history.Save(); err != nil {
			fmt.Fprintf(r.output, "warning: save history: %v\n", err)
		}
	}()

	fmt.Fprintln(r.output, Banner)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := r.readLine(r.prompt)
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(r.output)
			fmt.Fprintln(r.output, "Bye!")
			return nil
		}
		if err != nil {
			return err
		}
		if line == "" {
			continue
		}

		r.history.Add(line)
		if done := r.handle(ctx, line); done {
			return nil
		}
	}
}

// handle processes one line and reports whether the session should end.
func (r *REPL) handle(ctx context.Context, input string) bool {
	line, err := Translate(input)
	switch {
	case errors.Is(err, errNoPairs):
		fmt.Fprintln(r.output, "No pairs parsed.")
		return false
	case errors.Is(err, errNoKeys):
		fmt.Fprintln(r.output, "No keys parsed.")
		return false
	case err != nil:
		fmt.Fprintln(r.output, "Unknown or malformed command.")
		if line.Keyword != "" && !slices.Contains(Keywords, line.Keyword) {
			if s := r.completer.Suggest(line.Keyword); s != "" {
				fmt.Fprintf(r.output, "Did you mean %s?\n", s)
			}
		}
		return false
	}

	switch line.Keyword {
	case "":
		return false
	case "HELP":
		fmt.Fprintln(r.output, Banner)
		return false
	case "EXIT", "QUIT":
		if err := r.offerDump(ctx, "Dump before exit? [Y/N]: ", "Path: "); err != nil {
			fmt.Fprintf(r.output, "Error: %v\n", err)
		}
		fmt.Fprintln(r.output, "Bye!")
		return true
	case "LOAD":
		if err := r.offerDump(ctx, "Current pairs will be lost. Dump first? [Y/N]: ", "Path to dump: "); err != nil {
			fmt.Fprintf(r.output, "Error: %v\n", err)
			return false
		}
	}

	if err := r.exec.Execute(ctx, line.Args); err != nil {
		fmt.Fprintf(r.output, "Error: %v\n", err)
	}
	return false
}

// offerDump asks whether to dump a non-empty store and does so on "Y".
func (r *REPL) offerDump(ctx context.Context, question, pathPrompt string) error {
	empty, err := r.exec.IsEmpty(ctx)
	if err != nil {
		return err
	}
	if empty {
		return nil
	}

	answer, err := r.readLine(question)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	if !strings.EqualFold(answer, "Y") {
		return nil
	}

	path, err := r.readLine(pathPrompt)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	if path == "" {
		return errors.New("no dump path given")
	}
	return r.exec.Execute(ctx, []string{"dump", "--", path})
}

// readLine prints prompt and returns the next trimmed line. A final line
// without a newline is returned with a nil error.
func (r *REPL) readLine(prompt string) (string, error) {
	fmt.Fprint(r.output, prompt)
	line, err := r.input.ReadString('\n')
	if errors.Is(err, io.EOF) && line != "" {
		err = nil
	}
	return strings.TrimSpace(line), err
}
