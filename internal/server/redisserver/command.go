package redisserver

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/yndnr/shardkv/internal/core/domain"
	"github.com/yndnr/shardkv/internal/telemetry/metric"
)

// Store is the service the commands run against. service.KVService
// implements it.
type Store interface {
	Add(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, error)
	Update(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	GetAll(ctx context.Context) map[string]string
	ClearAll(ctx context.Context) bool
	Len() int
}

// maxUpsertAttempts bounds the update-then-add loop behind SET and MSET.
const maxUpsertAttempts = 8

var (
	errSyntax   = errors.New("ERR syntax error")
	errNoUpsert = domain.ErrInternal.WithDetails("key changed concurrently, retry")
)

// commandFunc runs one command and writes its reply. A returned error is
// written as the reply instead.
type commandFunc func(ctx context.Context, c *Conn, args []string) error

type command struct {
	// arity follows Redis: positive means exactly that many words including
	// the name, negative means at least -arity.
	arity int
	run   commandFunc
}

// CommandHandler dispatches commands to the store.
type CommandHandler struct {
	store    Store
	metrics  *metric.Registry
	commands map[string]command
}

// NewCommandHandler creates a handler over store. metrics may be nil.
func NewCommandHandler(store Store, metrics *metric.Registry) *CommandHandler {
	h := &CommandHandler{store: store, metrics: metrics}
	h.commands = map[string]command{
		"PING":     {-1, h.ping},
		"ECHO":     {2, h.echo},
		"QUIT":     {1, h.quit},
		"COMMAND":  {-1, h.commandInfo},
		"GET":      {2, h.get},
		"SET":      {-3, h.set},
		"SETNX":    {3, h.setNX},
		"MGET":     {-2, h.mget},
		"MSET":     {-3, h.mset},
		"DEL":      {-2, h.del},
		"EXISTS":   {-2, h.exists},
		"KEYS":     {2, h.keys},
		"DBSIZE":   {1, h.dbSize},
		"FLUSHDB":  {-1, h.flush},
		"FLUSHALL": {-1, h.flush},
	}
	return h
}

// Handle runs one command read from c and buffers the reply on c.
func (h *CommandHandler) Handle(ctx context.Context, c *Conn, raw [][]byte) {
	if len(raw) == 0 {
		_ = WriteError(c.bw, "ERR no command")
		return
	}

	name := normalizeCommandName(raw[0])
	cmd, ok := h.commands[name]
	if !ok {
		h.metrics.RecordRESPCommand("unknown", metric.ResultError)
		_ = WriteError(c.bw, "ERR unknown command '"+string(raw[0])+"'")
		return
	}

	label := strings.ToLower(name)
	if (cmd.arity > 0 && len(raw) != cmd.arity) || (cmd.arity < 0 && len(raw) < -cmd.arity) {
		h.metrics.RecordRESPCommand(label, metric.ResultError)
		_ = WriteError(c.bw, "ERR wrong number of arguments for '"+label+"' command")
		return
	}

	args := make([]string, len(raw)-1)
	for i, a := range raw[1:] {
		args[i] = string(a)
	}

	if err := cmd.run(ctx, c, args); err != nil {
		h.metrics.RecordRESPCommand(label, metric.ResultError)
		_ = WriteError(c.bw, formatRedisError(err))
		return
	}
	h.metrics.RecordRESPCommand(label, metric.ResultOK)
}

// formatRedisError renders err as a RESP error line. Domain errors become
// "ERR <code> <message>"; errors already carrying a Redis prefix pass
// through unchanged.
func formatRedisError(err error) string {
	var de *domain.DomainError
	if errors.As(err, &de) {
		return "ERR " + de.Code + " " + de.Message
	}
	msg := err.Error()
	if strings.HasPrefix(msg, "ERR ") {
		return msg
	}
	return "ERR " + msg
}

// ============================================================================
// Connection Commands
// ============================================================================

func (h *CommandHandler) ping(_ context.Context, c *Conn, args []string) error {
	switch len(args) {
	case 0:
		return WriteSimpleString(c.bw, "PONG")
	case 1:
		return WriteBulkString(c.bw, args[0])
	default:
		return errors.New("ERR wrong number of arguments for 'ping' command")
	}
}

func (h *CommandHandler) echo(_ context.Context, c *Conn, args []string) error {
	return WriteBulkString(c.bw, args[0])
}

func (h *CommandHandler) quit(_ context.Context, c *Conn, _ []string) error {
	c.quit = true
	return WriteSimpleString(c.bw, "OK")
}

// commandInfo answers the COMMAND probe redis-cli sends on connect. An empty
// array tells the client to skip command hints.
func (h *CommandHandler) commandInfo(_ context.Context, c *Conn, _ []string) error {
	return WriteArrayHeader(c.bw, 0)
}

// ============================================================================
// Key Commands
// ============================================================================

func (h *CommandHandler) get(ctx context.Context, c *Conn, args []string) error {
	v, err := h.store.Get(ctx, args[0])
	if errors.Is(err, domain.ErrKeyNotFound) {
		return WriteNullBulk(c.bw)
	}
	if err != nil {
		return err
	}
	return WriteBulkString(c.bw, v)
}

// set handles SET key value [NX|XX]. A condition that does not hold is
// answered with a null bulk string, as Redis does.
func (h *CommandHandler) set(ctx context.Context, c *Conn, args []string) error {
	key, value := args[0], args[1]

	var nx, xx bool
	for _, opt := range args[2:] {
		switch strings.ToUpper(opt) {
		case "NX":
			nx = true
		case "XX":
			xx = true
		default:
			return errSyntax
		}
	}
	if nx && xx {
		return errSyntax
	}

	var err error
	switch {
	case nx:
		err = h.store.Add(ctx, key, value)
		if errors.Is(err, domain.ErrKeyExists) {
			return WriteNullBulk(c.bw)
		}
	case xx:
		err = h.store.Update(ctx, key, value)
		if errors.Is(err, domain.ErrKeyNotFound) {
			return WriteNullBulk(c.bw)
		}
	default:
		err = h.upsert(ctx, key, value)
	}
	if err != nil {
		return err
	}
	return WriteSimpleString(c.bw, "OK")
}

func (h *CommandHandler) setNX(ctx context.Context, c *Conn, args []string) error {
	err := h.store.Add(ctx, args[0], args[1])
	if errors.Is(err, domain.ErrKeyExists) {
		return WriteInteger(c.bw, 0)
	}
	if err != nil {
		return err
	}
	return WriteInteger(c.bw, 1)
}

// upsert stores value whether or not key exists. The store only offers
// conditional writes, so this alternates update and add until one of them
// applies. Each attempt can lose to a concurrent add or remove of the same
// key; after maxUpsertAttempts losses the command fails.
func (h *CommandHandler) upsert(ctx context.Context, key, value string) error {
	for range maxUpsertAttempts {
		err := h.store.Update(ctx, key, value)
		if !errors.Is(err, domain.ErrKeyNotFound) {
			return err
		}
		err = h.store.Add(ctx, key, value)
		if !errors.Is(err, domain.ErrKeyExists) {
			return err
		}
	}
	return errNoUpsert
}

func (h *CommandHandler) mget(ctx context.Context, c *Conn, args []string) error {
	if err := WriteArrayHeader(c.bw, len(args)); err != nil {
		return err
	}
	for _, key := range args {
		v, err := h.store.Get(ctx, key)
		if err != nil {
			// MGET answers nil for any key it cannot read.
			if err := WriteNullBulk(c.bw); err != nil {
				return err
			}
			continue
		}
		if err := WriteBulkString(c.bw, v); err != nil {
			return err
		}
	}
	return nil
}

// mset stores every pair. Keys are validated before anything is written.
func (h *CommandHandler) mset(ctx context.Context, c *Conn, args []string) error {
	if len(args)%2 != 0 {
		return errors.New("ERR wrong number of arguments for 'mset' command")
	}
	for i := 0; i < len(args); i += 2 {
		if err := domain.ValidateKey(args[i]); err != nil {
			return err
		}
		if err := domain.ValidateValue(args[i+1]); err != nil {
			return err
		}
	}
	for i := 0; i < len(args); i += 2 {
		if err := h.upsert(ctx, args[i], args[i+1]); err != nil {
			return err
		}
	}
	return WriteSimpleString(c.bw, "OK")
}

func (h *CommandHandler) del(ctx context.Context, c *Conn, args []string) error {
	var n int64
	for _, key := range args {
		err := h.store.Remove(ctx, key)
		switch {
		case err == nil:
			n++
		case errors.Is(err, domain.ErrKeyNotFound):
		default:
			return err
		}
	}
	return WriteInteger(c.bw, n)
}

// exists counts the given keys that are present. A key named twice counts
// twice.
func (h *CommandHandler) exists(ctx context.Context, c *Conn, args []string) error {
	var n int64
	for _, key := range args {
		if _, err := h.store.Get(ctx, key); err == nil {
			n++
		}
	}
	return WriteInteger(c.bw, n)
}

// ============================================================================
// Store Commands
// ============================================================================

// keys lists every key matching a glob pattern, sorted.
func (h *CommandHandler) keys(ctx context.Context, c *Conn, args []string) error {
	pattern := args[0]

	var out []string
	for k := range h.store.GetAll(ctx) {
		if matchGlob(pattern, k) {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return WriteStringArray(c.bw, out)
}

func (h *CommandHandler) dbSize(_ context.Context, c *Conn, _ []string) error {
	return WriteInteger(c.bw, int64(h.store.Len()))
}

// flush clears the store. The optional ASYNC or SYNC modifier is accepted
// and ignored; clearing is always synchronous.
func (h *CommandHandler) flush(ctx context.Context, c *Conn, args []string) error {
	if len(args) > 1 {
		return errSyntax
	}
	if len(args) == 1 {
		if m := strings.ToUpper(args[0]); m != "ASYNC" && m != "SYNC" {
			return errSyntax
		}
	}
	h.store.ClearAll(ctx)
	return WriteSimpleString(c.bw, "OK")
}

// matchGlob reports whether s matches pattern, where '*' matches any run of
// characters (including none) and '?' exactly one. Other characters match
// themselves; a backslash escapes the next pattern character.
func matchGlob(pattern, s string) bool {
	p := []rune(pattern)
	r := []rune(s)

	// Position to resume from after the last '*': star is the pattern index
	// following it, mark the input index it currently swallows up to.
	star, mark := -1, 0
	pi, si := 0, 0
	for si < len(r) {
		switch {
		case pi < len(p) && p[pi] == '*':
			star, mark = pi+1, si
			pi++
		case pi < len(p) && p[pi] == '\\' && pi+1 < len(p) && p[pi+1] == r[si]:
			pi += 2
			si++
		case pi < len(p) && p[pi] != '\\' && (p[pi] == '?' || p[pi] == r[si]):
			pi++
			si++
		case star >= 0:
			mark++
			pi, si = star, mark
		default:
			return false
		}
	}
	for pi < len(p) && p[pi] == '*' {
		pi++
	}
	return pi == len(p)
}
