// Package parser turns raw console lines into structured commands. Both the
// classic "action Class id arg..." form and the dotted "Class.action(args)"
// form normalize into the same Command. Values are typed here so that later
// layers never guess.
package parser

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"hbnb/pkg/domain"
)

// Action names a console command.
type Action string

// Recognized actions.
const (
	ActionNone    Action = ""
	ActionQuit    Action = "quit"
	ActionCreate  Action = "create"
	ActionShow    Action = "show"
	ActionDestroy Action = "destroy"
	ActionAll     Action = "all"
	ActionUpdate  Action = "update"
	ActionCount   Action = "count"
	ActionHelp    Action = "help"
)

// ErrUnknownSyntax reports a line that matches no command form.
var ErrUnknownSyntax = errors.New("unknown syntax")

// Pair is one typed attribute assignment.
type Pair struct {
	Key   string
	Value domain.Value
}

// Command is the structured form of one console line. Class and ID are raw
// user input; the dispatcher validates them.
type Command struct {
	Action  Action
	Class   string
	ID      string
	Args    []string
	Payload []Pair
	Raw     string
}

var (
	dottedRe = regexp.MustCompile(`^([A-Za-z_]\w*)\.(\w+)\((.*)\)$`)
	keyRe    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	intRe    = regexp.MustCompile(`^[+-]?\d+$`)
	floatRe  = regexp.MustCompile(`^[+-]?(\d+\.\d*|\.\d+|\d+)([eE][+-]?\d+)?$`)
)

// Parse converts one line into a Command. Blank lines yield ActionNone.
func Parse(line string) (Command, error) {
	raw := strings.TrimSpace(line)
	cmd := Command{Raw: raw}
	if raw == "" {
		return cmd, nil
	}
	if m := dottedRe.FindStringSubmatch(raw); m != nil {
		return parseDotted(cmd, m[1], m[2], m[3])
	}
	tokens := Tokenize(raw)
	switch head := tokens[0]; head {
	case "quit", "EOF":
		cmd.Action = ActionQuit
	case "help":
		cmd.Action = ActionHelp
		cmd.Args = tokens[1:]
	case "create":
		cmd.Action = ActionCreate
		cmd.Class = at(tokens, 1)
		for _, tok := range tail(tokens, 2) {
			if p, ok := ParsePair(tok); ok {
				cmd.Payload = append(cmd.Payload, p)
			}
		}
	case "show", "destroy", "all", "count":
		cmd.Action = Action(head)
		cmd.Class = at(tokens, 1)
		cmd.ID = unquote(at(tokens, 2))
	case "update":
		cmd.Action = ActionUpdate
		cmd.Class = at(tokens, 1)
		cmd.ID = unquote(at(tokens, 2))
		rest := tail(tokens, 3)
		switch {
		case len(rest) >= 2:
			cmd.Payload = []Pair{{Key: unquote(rest[0]), Value: ParseArgument(rest[1])}}
		case len(rest) == 1:
			cmd.Args = []string{unquote(rest[0])}
		}
	default:
		return cmd, ErrUnknownSyntax
	}
	return cmd, nil
}

func parseDotted(cmd Command, class, action, inner string) (Command, error) {
	cmd.Class = class
	args := SplitArgs(inner, ',')
	switch Action(action) {
	case ActionAll, ActionCount:
		cmd.Action = Action(action)
	case ActionShow, ActionDestroy:
		cmd.Action = Action(action)
		cmd.ID = unquote(at(args, 0))
	case ActionUpdate:
		cmd.Action = ActionUpdate
		cmd.ID = unquote(at(args, 0))
		rest := strings.TrimSpace(after(inner, ','))
		switch {
		case strings.HasPrefix(rest, "{"):
			cmd.Payload = ParseDict(rest)
		case len(args) >= 3:
			cmd.Payload = []Pair{{Key: unquote(args[1]), Value: ParseArgument(args[2])}}
		case len(args) == 2 && args[1] != "":
			cmd.Args = []string{unquote(args[1])}
		}
	default:
		return cmd, ErrUnknownSyntax
	}
	return cmd, nil
}

// ParsePair parses a create-style `key=value` token. Quoted values drop the
// quotes, turn '_' into a space and unescape '\"'. Unquoted values become an
// int, then a float, then a raw string. ok is false for a malformed token.
func ParsePair(token string) (Pair, bool) {
	key, value, found := strings.Cut(token, "=")
	if !found || !keyRe.MatchString(key) || value == "" {
		return Pair{}, false
	}
	if strings.HasPrefix(value, `"`) {
		s, ok := unquoteDouble(value)
		if !ok {
			return Pair{}, false
		}
		return Pair{Key: key, Value: domain.StringValue(strings.ReplaceAll(s, "_", " "))}, true
	}
	if strings.ContainsAny(value, `"'`) {
		return Pair{}, false
	}
	return Pair{Key: key, Value: ParseValue(value)}, true
}

// ParseValue infers the kind of an unquoted value.
func ParseValue(raw string) domain.Value {
	if intRe.MatchString(raw) {
		if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return domain.IntValue(i)
		}
	}
	if floatRe.MatchString(raw) {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return domain.FloatValue(f)
		}
	}
	return domain.StringValue(raw)
}

// ParseArgument types an update argument: a quoted argument is always a
// string, anything else goes through ParseValue.
func ParseArgument(raw string) domain.Value {
	raw = strings.TrimSpace(raw)
	if isQuoted(raw) {
		return domain.StringValue(unquote(raw))
	}
	return ParseValue(raw)
}

// ParseDict parses a `{'key': value, ...}` literal. Malformed entries are
// skipped.
func ParseDict(s string) []Pair {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return nil
	}
	var pairs []Pair
	for _, entry := range SplitArgs(s[1:len(s)-1], ',') {
		parts := SplitArgs(entry, ':')
		if len(parts) != 2 || parts[1] == "" {
			continue
		}
		key := unquote(parts[0])
		if !keyRe.MatchString(key) {
			continue
		}
		pairs = append(pairs, Pair{Key: key, Value: ParseArgument(parts[1])})
	}
	return pairs
}

// Tokenize splits a classic command line on whitespace, keeping double-quoted
// runs (with '\"' escapes) inside a single token. A run opens only at the start
// of a token or right after its first '='; any other quote is literal. A run
// left open at the end of the line only spoils the token that opened it.
func Tokenize(line string) []string {
	var tokens []string
	var cur strings.Builder
	inQuote, escaped, started := false, false, false
	start := 0
	for i, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\' && inQuote:
			cur.WriteRune(r)
			escaped = true
		case r == '"' && inQuote:
			cur.WriteRune(r)
			inQuote = false
		case r == '"' && opensRun(cur.String(), started):
			if !started {
				start = i
			}
			cur.WriteRune(r)
			inQuote, started = true, true
		case !inQuote && (r == ' ' || r == '\t'):
			if started {
				tokens = append(tokens, cur.String())
				cur.Reset()
				started = false
			}
		default:
			if !started {
				start = i
			}
			cur.WriteRune(r)
			started = true
		}
	}
	if inQuote {
		word, rest := line[start:], ""
		if j := strings.IndexAny(word, " \t"); j >= 0 {
			word, rest = word[:j], word[j:]
		}
		return append(append(tokens, word), Tokenize(rest)...)
	}
	if started {
		tokens = append(tokens, cur.String())
	}
	return tokens
}

func opensRun(prefix string, started bool) bool {
	return !started || (strings.HasSuffix(prefix, "=") && strings.Count(prefix, "=") == 1)
}

// SplitArgs splits s on sep outside single or double quotes and outside
// braces, trimming each part.
func SplitArgs(s string, sep rune) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var parts []string
	var cur strings.Builder
	var quote rune
	depth := 0
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			escaped = false
		case quote != 0 && r == '\\':
			escaped = true
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '{':
			depth++
		case r == '}':
			depth--
		case r == sep && depth == 0:
			parts = append(parts, strings.TrimSpace(cur.String()))
			cur.Reset()
			continue
		}
		cur.WriteRune(r)
	}
	return append(parts, strings.TrimSpace(cur.String()))
}

func unquoteDouble(s string) (string, bool) {
	if len(s) < 2 || !strings.HasPrefix(s, `"`) || !strings.HasSuffix(s, `"`) {
		return "", false
	}
	inner := s[1 : len(s)-1]
	var b strings.Builder
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		switch {
		case c == '\\' && i+1 < len(inner) && inner[i+1] == '"':
			b.WriteByte('"')
			i++
		case c == '"':
			return "", false
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), true
}

func isQuoted(s string) bool {
	return len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0]
}

// unquote strips one level of matching quotes and unescapes the quote
// character inside.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if !isQuoted(s) {
		return s
	}
	q := string(s[0])
	return strings.ReplaceAll(s[1:len(s)-1], `\`+q, q)
}

func at(tokens []string, i int) string {
	if i < len(tokens) {
		return tokens[i]
	}
	return ""
}

func tail(tokens []string, i int) []string {
	if i < len(tokens) {
		return tokens[i:]
	}
	return nil
}

func after(s string, sep rune) string {
	if _, rest, ok := strings.Cut(s, string(sep)); ok {
		return rest
	}
	return ""
}
