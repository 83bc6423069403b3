// Package buildinfo holds build-time metadata injected via -ldflags.
package buildinfo

// Version is the semantic version or tag for this build.
// Inject via: -X github.com/garyellow/chatbot-go/internal/buildinfo.Version=...
var Version = ""

// Commit is the git commit SHA for this build.
// Inject via: -X github.com/garyellow/chatbot-go/internal/buildinfo.Commit=...
var Commit = ""

// BuildDate is the RFC3339 build timestamp.
// Inject via: -X github.com/garyellow/chatbot-go/internal/buildinfo.BuildDate=...
var BuildDate = ""

// Release identifies the build for error reports, e.g. "chatbot-go@v1.2.0".
// Without a version it falls back to the short commit, then "dev".
func Release() string {
	switch {
	case Version != "":
		return "chatbot-go@" + Version
	case len(Commit) >= 7:
		return "chatbot-go@" + Commit[:7]
	case Commit != "":
		return "chatbot-go@" + Commit
	}
	return "chatbot-go@dev"
}

// String describes the build on one line.
func String() string {
	s := Release()
	if BuildDate != "" {
		s += " (" + BuildDate + ")"
	}
	return s
}
