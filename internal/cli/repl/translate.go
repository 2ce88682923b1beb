package repl

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrMalformed is returned for unknown keywords and wrong arity.
	ErrMalformed = errors.New("unknown or malformed command")

	errNoPairs = errors.New("no pairs parsed")
	errNoKeys  = errors.New("no keys parsed")

	blockSep = regexp.MustCompile(`[,\s]+`)
)

// Line is a parsed REPL input line.
type Line struct {
	// Keyword is the upper-cased first word.
	Keyword string
	// Args are the shardkv-cli arguments the line translates to. User
	// supplied words follow a "--" so that a key such as "-x" is never read
	// as a flag. Empty for keywords the REPL handles itself.
	Args []string
}

// Translate parses a REPL line. Blank lines yield a zero Line and no error.
func Translate(input string) (Line, error) {
	words, err := splitWords(input)
	if err != nil {
		return Line{}, err
	}
	if len(words) == 0 {
		return Line{}, nil
	}

	keyword := strings.ToUpper(words[0])
	args := words[1:]
	line := Line{Keyword: keyword}

	switch keyword {
	case "SET", "CHANGE":
		if len(args) < 2 {
			return line, fmt.Errorf("%w: %s needs a key and a value", ErrMalformed, keyword)
		}
		line.Args = append([]string{strings.ToLower(keyword), "--"}, args...)

	case "SETMULT", "CHANGEMULT":
		pairs := parsePairBlock(strings.Join(args, " "))
		if len(pairs) == 0 {
			return line, errNoPairs
		}
		line.Args = append([]string{strings.ToLower(keyword), "--separator", ":", "--"}, pairs...)

	case "DELMULT":
		keys := parseKeyBlock(strings.Join(args, " "))
		if len(keys) == 0 {
			return line, errNoKeys
		}
		line.Args = append([]string{"delmult", "--"}, keys...)

	case "GET", "DELETE", "DUMP", "LOAD":
		if len(args) != 1 {
			return line, fmt.Errorf("%w: %s takes exactly one argument", ErrMalformed, keyword)
		}
		line.Args = []string{strings.ToLower(keyword), "--", args[0]}

	case "GETALL", "DELETEALL", "SHARDS", "STATUS":
		if len(args) != 0 {
			return line, fmt.Errorf("%w: %s takes no arguments", ErrMalformed, keyword)
		}
		line.Args = []string{strings.ToLower(keyword)}

	case "HELP", "EXIT", "QUIT":

	default:
		return line, fmt.Errorf("%w: %s", ErrMalformed, words[0])
	}
	return line, nil
}

// stripBlock removes the surrounding braces or brackets of a block.
func stripBlock(block string) string {
	inner := strings.TrimSpace(block)
	inner = strings.TrimLeft(inner, "{[")
	inner = strings.TrimRight(inner, "]}")
	return strings.TrimSpace(inner)
}

// parsePairBlock splits "{a:1, b:2}" into "a:1" and "b:2". Tokens without
// a colon are ignored. A later duplicate key replaces the earlier one.
func parsePairBlock(block string) []string {
	inner := stripBlock(block)
	if inner == "" {
		return nil
	}

	var pairs []string
	index := make(map[string]int)
	for _, tok := range blockSep.Split(inner, -1) {
		key, _, ok := strings.Cut(tok, ":")
		if !ok {
			continue
		}
		if i, dup := index[key]; dup {
			pairs[i] = tok
			continue
		}
		index[key] = len(pairs)
		pairs = append(pairs, tok)
	}
	return pairs
}

// parseKeyBlock splits "{a, b c}" into its keys.
func parseKeyBlock(block string) []string {
	inner := stripBlock(block)
	if inner == "" {
		return nil
	}

	var keys []string
	for _, k := range blockSep.Split(inner, -1) {
		if k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// splitWords splits a line on whitespace. Single or double quotes group
// words and are removed; a backslash escapes the next character outside
// single quotes.
func splitWords(s string) ([]string, error) {
	var (
		words   []string
		cur     strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)

	for _, r := range s {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\' && quote != '\'':
			escaped = true
			inWord = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inWord = true
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			if inWord {
				words = append(words, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(r)
			inWord = true
		}
	}

	if quote != 0 {
		return nil, fmt.Errorf("%w: unterminated quote", ErrMalformed)
	}
	if escaped {
		cur.WriteRune('\\')
	}
	if inWord {
		words = append(words, cur.String())
	}
	return words, nil
}
