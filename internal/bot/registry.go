package bot

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/garyellow/chatbot-go/internal/config"
	domerrors "github.com/garyellow/chatbot-go/internal/errors"
	"golang.org/x/text/cases"
)

// FlagSpec declares a flag a command understands.
type FlagSpec struct {
	Name    string
	Aliases []string
	// Count flags are parsed as integers and clamped to [MinCount, MaxCount].
	Count bool
}

// Entry is one free-text command.
type Entry struct {
	Pattern    string
	Regex      bool
	Name       string // handler name, used in logs and metrics
	Handler    Handler
	Help       string
	Privileged bool
	Flags      []FlagSpec

	re    *regexp.Regexp
	order int
}

// Registry holds free-text commands. It is built at startup and sealed
// before serving; reads after Seal need no locking.
type Registry struct {
	mu      sync.RWMutex
	entries []*Entry
	keys    map[string]*Entry
	sealed  bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{keys: make(map[string]*Entry)}
}

var fold = cases.Fold()

// patternKey identifies patterns that would match exactly the same input.
func patternKey(pattern string, regex bool) string {
	if regex {
		return "re:" + pattern
	}
	return "lit:" + fold.String(strings.Join(strings.Fields(pattern), " "))
}

// compilePattern builds the case-insensitive matcher for a pattern. Literal
// patterns match as whole words separated by any run of whitespace.
func compilePattern(pattern string, regex bool) (*regexp.Regexp, error) {
	if regex {
		return regexp.Compile("(?i)" + pattern)
	}
	words := strings.Fields(pattern)
	if len(words) == 0 {
		return nil, domerrors.NewValidationError("pattern", "empty pattern")
	}
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	expr := strings.Join(quoted, `\s+`)
	first, _ := utf8.DecodeRuneInString(words[0])
	last, _ := utf8.DecodeLastRuneInString(words[len(words)-1])
	if isWordRune(first) {
		expr = `\b` + expr
	}
	if isWordRune(last) {
		expr += `\b`
	}
	return regexp.Compile("(?i)" + expr)
}

// isWordRune matches the ASCII-only definition \b uses.
func isWordRune(r rune) bool {
	return r < utf8.RuneSelf && (r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r))
}

// Register adds an entry. A pattern equal to an existing one is a
// DuplicateRegistrationError; registering after Seal fails with ErrSealed.
func (r *Registry) Register(e Entry) error {
	if strings.TrimSpace(e.Pattern) == "" {
		return domerrors.NewValidationError("pattern", "empty pattern")
	}
	if e.Handler == nil {
		return domerrors.NewValidationError("handler", fmt.Sprintf("pattern %q has no handler", e.Pattern))
	}
	re, err := compilePattern(e.Pattern, e.Regex)
	if err != nil {
		return fmt.Errorf("pattern %q: %w", e.Pattern, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return domerrors.ErrSealed
	}
	key := patternKey(e.Pattern, e.Regex)
	if existing, ok := r.keys[key]; ok {
		return domerrors.NewDuplicateRegistrationError("pattern", e.Pattern, existing.Name)
	}

	entry := e
	entry.Flags = append([]FlagSpec(nil), e.Flags...)
	entry.re = re
	entry.order = len(r.entries)
	r.entries = append(r.entries, &entry)
	r.keys[key] = &entry
	return nil
}

// Seal freezes the registry.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Sealed reports whether Seal has been called.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// ListAll returns the entries in registration order.
func (r *Registry) ListAll() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, len(r.entries))
	for i, e := range r.entries {
		out[i] = *e
	}
	return out
}

// Search returns entries whose pattern or help text contains term,
// ignoring case. An empty term returns everything.
func (r *Registry) Search(term string) []Entry {
	term = fold.String(strings.TrimSpace(term))
	all := r.ListAll()
	if term == "" {
		return all
	}
	var out []Entry
	for _, e := range all {
		if strings.Contains(fold.String(e.Pattern), term) || strings.Contains(fold.String(e.Help), term) {
			out = append(out, e)
		}
	}
	return out
}

func (r *Registry) snapshot() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.sealed {
		return r.entries
	}
	return append([]*Entry(nil), r.entries...)
}

// FlagSpecs converts definition-source flags.
func FlagSpecs(defs []config.FlagDefinition) []FlagSpec {
	if len(defs) == 0 {
		return nil
	}
	out := make([]FlagSpec, len(defs))
	for i, d := range defs {
		out[i] = FlagSpec{
			Name:    d.Name,
			Aliases: append([]string(nil), d.Aliases...),
			Count:   d.Kind == config.FlagKindCount,
		}
	}
	return out
}
