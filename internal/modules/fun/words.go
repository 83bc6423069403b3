package fun

import "strings"

// Group selects the word list used by insults and compliments.
type Group int

const (
	GroupStandard Group = iota
	GroupPirate
	GroupShakespeare
	GroupNerd
)

// DefaultGroup is used when no group, or an unknown one, is given.
const DefaultGroup = GroupStandard

var groupNames = map[string]Group{
	"standard":    GroupStandard,
	"default":     GroupStandard,
	"pirate":      GroupPirate,
	"arr":         GroupPirate,
	"shakespeare": GroupShakespeare,
	"bard":        GroupShakespeare,
	"nerd":        GroupNerd,
	"geek":        GroupNerd,
}

// ParseGroup maps user input to a Group. Unknown or empty input falls back
// to DefaultGroup and reports false.
func ParseGroup(s string) (Group, bool) {
	g, ok := groupNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return DefaultGroup, false
	}
	return g, true
}

func (g Group) String() string {
	switch g {
	case GroupPirate:
		return "pirate"
	case GroupShakespeare:
		return "shakespeare"
	case GroupNerd:
		return "nerd"
	default:
		return "standard"
	}
}

type wordList struct {
	adjectives []string
	nouns      []string
}

var insults = map[Group]wordList{
	GroupStandard: {
		adjectives: []string{"soggy", "half-baked", "overcooked", "lukewarm", "crusty", "unbuttered"},
		nouns:      []string{"potato", "sock", "traffic cone", "spreadsheet", "doorknob", "wet noodle"},
	},
	GroupPirate: {
		adjectives: []string{"bilge-sucking", "scurvy", "lily-livered", "barnacle-brained", "landlubbing"},
		nouns:      []string{"bilge rat", "swab", "scallywag", "sea cucumber", "powder monkey"},
	},
	GroupShakespeare: {
		adjectives: []string{"beslubbering", "clouted", "fawning", "reeky", "tottering", "yeasty"},
		nouns:      []string{"flap-dragon", "canker-blossom", "hedge-pig", "measle", "ratsbane"},
	},
	GroupNerd: {
		adjectives: []string{"deprecated", "off-by-one", "unindexed", "memory-leaking", "single-threaded"},
		nouns:      []string{"null pointer", "merge conflict", "segfault", "tab character", "legacy monolith"},
	},
}

var compliments = map[Group]wordList{
	GroupStandard: {
		adjectives: []string{"brilliant", "kind", "radiant", "thoughtful", "unstoppable"},
		nouns:      []string{"sunbeam", "legend", "ray of light", "treasure", "champion"},
	},
	GroupPirate: {
		adjectives: []string{"fearless", "sea-worthy", "gold-hearted", "sharp-eyed"},
		nouns:      []string{"captain", "first mate", "buccaneer", "navigator"},
	},
	GroupShakespeare: {
		adjectives: []string{"honey-tongued", "sweet-faced", "well-spoken", "heaven-kissed"},
		nouns:      []string{"paragon", "nightingale", "jewel", "sovereign"},
	},
	GroupNerd: {
		adjectives: []string{"well-tested", "zero-downtime", "lock-free", "fully-typed"},
		nouns:      []string{"pull request", "compiler", "cache hit", "unit test"},
	},
}
