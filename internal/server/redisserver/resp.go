package redisserver

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Protocol limits. A command over any of them closes the connection.
const (
	// MaxArrayLen limits the number of elements in a command array.
	MaxArrayLen = 64 * 1024

	// MaxBulkLen limits a single key or value (8 MiB, the default HTTP body limit).
	MaxBulkLen = 8 << 20

	// MaxCommandLen limits the bulk payload of one command, summed over
	// its arguments.
	MaxCommandLen = MaxBulkLen

	// MaxInlineLen limits an inline command line.
	MaxInlineLen = 64 * 1024
)

var (
	ErrProtocol      = errors.New("resp: protocol error")
	ErrLimitExceeded = errors.New("resp: limit exceeded")
)

// ReadCommand reads one command, either a RESP array of bulk strings or an
// inline line as typed into telnet. An empty array or blank line yields a
// nil slice and no error.
func ReadCommand(r *bufio.Reader) ([][]byte, error) {
	b, err := r.Peek(1)
	if err != nil {
		return nil, err
	}

	if b[0] == '*' {
		return readArrayCommand(r)
	}

	line, err := readLine(r, MaxInlineLen)
	if err != nil {
		return nil, err
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, nil
	}
	out := make([][]byte, len(fields))
	for i, f := range fields {
		out[i] = []byte(f)
	}
	return out, nil
}

func readArrayCommand(r *bufio.Reader) ([][]byte, error) {
	n, err := readLength(r, '*', "array")
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}
	if n > MaxArrayLen {
		return nil, fmt.Errorf("%w: array length %d exceeds limit %d", ErrLimitExceeded, n, MaxArrayLen)
	}

	out := make([][]byte, 0, n)
	budget := MaxCommandLen
	for range n {
		arg, err := readBulkString(r, budget)
		if err != nil {
			return nil, err
		}
		budget -= len(arg)
		out = append(out, arg)
	}
	return out, nil
}

// readBulkString reads one bulk string. budget is what is left of the
// command's MaxCommandLen; a length over it fails before the payload is read.
func readBulkString(r *bufio.Reader, budget int) ([]byte, error) {
	n, err := readLength(r, '$', "bulk")
	if err != nil {
		return nil, err
	}
	switch {
	case n == -1:
		return nil, nil
	case n < 0:
		return nil, fmt.Errorf("%w: invalid bulk length %d", ErrProtocol, n)
	case n > MaxBulkLen:
		return nil, fmt.Errorf("%w: bulk length %d exceeds limit %d", ErrLimitExceeded, n, MaxBulkLen)
	case n > budget:
		return nil, fmt.Errorf("%w: command payload exceeds limit %d", ErrLimitExceeded, MaxCommandLen)
	}

	buf := make([]byte, n+2)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	if !bytes.HasSuffix(buf, []byte("\r\n")) {
		return nil, fmt.Errorf("%w: invalid bulk terminator", ErrProtocol)
	}
	return buf[:n], nil
}

// readLength reads a "<prefix><int>\r\n" header.
func readLength(r *bufio.Reader, prefix byte, what string) (int, error) {
	line, err := readLine(r, 32)
	if err != nil {
		return 0, err
	}
	if len(line) < 2 || line[0] != prefix {
		return 0, fmt.Errorf("%w: expected %s header", ErrProtocol, what)
	}
	n, err := strconv.Atoi(line[1:])
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s length", ErrProtocol, what)
	}
	return n, nil
}

// readLine reads up to CRLF and returns the line without it.
func readLine(r *bufio.Reader, maxLen int) (string, error) {
	var buf []byte
	for {
		frag, err := r.ReadSlice('\n')
		buf = append(buf, frag...)
		if len(buf) > maxLen+2 {
			return "", fmt.Errorf("%w: line length exceeds limit %d", ErrLimitExceeded, maxLen)
		}
		if err == nil {
			break
		}
		if !errors.Is(err, bufio.ErrBufferFull) {
			return "", err
		}
	}

	if !bytes.HasSuffix(buf, []byte("\r\n")) {
		return "", fmt.Errorf("%w: missing CRLF", ErrProtocol)
	}
	return string(buf[:len(buf)-2]), nil
}

func WriteSimpleString(w *bufio.Writer, s string) error {
	_, err := w.WriteString("+" + s + "\r\n")
	return err
}

// WriteError writes an error reply. CR and LF in s are replaced by spaces
// since they would end the reply early.
func WriteError(w *bufio.Writer, s string) error {
	s = strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
	_, err := w.WriteString("-" + s + "\r\n")
	return err
}

func WriteInteger(w *bufio.Writer, n int64) error {
	_, err := w.WriteString(":" + strconv.FormatInt(n, 10) + "\r\n")
	return err
}

func WriteNullBulk(w *bufio.Writer) error {
	_, err := w.WriteString("$-1\r\n")
	return err
}

func WriteBulkString(w *bufio.Writer, s string) error {
	if _, err := w.WriteString("$" + strconv.Itoa(len(s)) + "\r\n"); err != nil {
		return err
	}
	if _, err := w.WriteString(s); err != nil {
		return err
	}
	_, err := w.WriteString("\r\n")
	return err
}

func WriteArrayHeader(w *bufio.Writer, n int) error {
	_, err := w.WriteString("*" + strconv.Itoa(n) + "\r\n")
	return err
}

// WriteStringArray writes ss as an array of bulk strings.
func WriteStringArray(w *bufio.Writer, ss []string) error {
	if err := WriteArrayHeader(w, len(ss)); err != nil {
		return err
	}
	for _, s := range ss {
		if err := WriteBulkString(w, s); err != nil {
			return err
		}
	}
	return nil
}

func normalizeCommandName(b []byte) string {
	// Uppercase ASCII without allocating twice for tokens already in upper case.
	if bytes.ContainsAny(b, "abcdefghijklmnopqrstuvwxyz") {
		return strings.ToUpper(string(b))
	}
	return string(b)
}
