package bot

import (
	"errors"
	"strconv"
	"strings"
)

// Repeat count bounds. Handlers never see a count outside them.
const (
	DefaultCount = 1
	MinCount     = 1
	MaxCount     = 100
)

// Args are the arguments extracted from a matched message.
type Args struct {
	// Flags holds declared flags by canonical name. Count flags are always
	// present and hold the clamped number.
	Flags  map[string]string
	Target string

	counts map[string]int
}

// Flag returns the value of a declared flag, or def when absent.
func (a Args) Flag(name, def string) string {
	if v, ok := a.Flags[name]; ok {
		return v
	}
	return def
}

// Count returns a count flag, DefaultCount when it was not declared.
func (a Args) Count(name string) int {
	if n, ok := a.counts[name]; ok {
		return n
	}
	return DefaultCount
}

// Extract pulls declared flags and the target out of a matched message.
// The target is the text after the match with every flag token removed.
// Undeclared flags are dropped along with their value.
func Extract(m Match) Args {
	specs := m.Entry.Flags
	words, found := scanTokens(strings.Fields(m.Text[m.End:]), specs)

	args := Args{Flags: make(map[string]string), Target: strings.Join(words, " ")}
	for _, s := range specs {
		f, ok := found[s.Name]
		switch {
		case s.Count:
			n := DefaultCount
			if ok {
				n = parseCount(f.value, f.hasValue)
			}
			if args.counts == nil {
				args.counts = make(map[string]int)
			}
			args.counts[s.Name] = n
			args.Flags[s.Name] = strconv.Itoa(n)
		case ok && f.hasValue:
			args.Flags[s.Name] = f.value
		}
	}
	return args
}

type rawFlag struct {
	value    string
	hasValue bool
}

// scanTokens separates declared flags, keyed by canonical name, from the
// remaining words. A later occurrence of a flag overrides an earlier one.
// A flag without "=" takes the next token as its value unless that token is
// itself a flag.
func scanTokens(tokens []string, specs []FlagSpec) ([]string, map[string]rawFlag) {
	var words []string
	flags := make(map[string]rawFlag)
	for i := 0; i < len(tokens); i++ {
		name, value, hasValue, ok := parseFlagToken(tokens[i])
		if !ok {
			words = append(words, tokens[i])
			continue
		}
		if !hasValue && i+1 < len(tokens) && !isFlagToken(tokens[i+1]) {
			value, hasValue = tokens[i+1], true
			i++
		}
		if spec, known := lookupFlag(specs, name); known {
			flags[spec.Name] = rawFlag{value: value, hasValue: hasValue}
		}
	}
	return words, flags
}

// parseFlagToken splits "-x", "--x", "-x=v" and "--x=v". Negative numbers
// and a lone dash are not flags.
func parseFlagToken(tok string) (name, value string, hasValue, ok bool) {
	if !strings.HasPrefix(tok, "-") {
		return "", "", false, false
	}
	body := strings.TrimPrefix(strings.TrimPrefix(tok, "-"), "-")
	if body == "" {
		return "", "", false, false
	}
	if _, err := strconv.Atoi(body); err == nil {
		return "", "", false, false
	}
	name, value, hasValue = strings.Cut(body, "=")
	if name == "" {
		return "", "", false, false
	}
	return name, value, hasValue, true
}

func lookupFlag(specs []FlagSpec, name string) (FlagSpec, bool) {
	name = strings.ToLower(name)
	for _, s := range specs {
		if strings.ToLower(s.Name) == name {
			return s, true
		}
		for _, a := range s.Aliases {
			if strings.ToLower(a) == name {
				return s, true
			}
		}
	}
	return FlagSpec{}, false
}

func isFlagToken(tok string) bool {
	_, _, _, ok := parseFlagToken(tok)
	return ok
}

// parseCount turns a raw count into a number in [MinCount, MaxCount].
// Missing or non-numeric input gives DefaultCount.
func parseCount(raw string, present bool) int {
	if !present {
		return DefaultCount
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		var numErr *strconv.NumError
		if !errors.As(err, &numErr) || !errors.Is(numErr.Err, strconv.ErrRange) {
			return DefaultCount
		}
		if strings.HasPrefix(strings.TrimSpace(raw), "-") {
			return MinCount
		}
		return MaxCount
	}
	return min(max(n, MinCount), MaxCount)
}
