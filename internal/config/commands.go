package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

//go:embed commands.yaml
var defaultCommands []byte

// Flag kinds understood by the argument extractor.
const (
	FlagKindString = "string"
	FlagKindCount  = "count"
)

// FlagDefinition declares one flag a command accepts.
type FlagDefinition struct {
	Name    string   `yaml:"name" toml:"name"`
	Aliases []string `yaml:"aliases,omitempty" toml:"aliases"`
	Kind    string   `yaml:"kind,omitempty" toml:"kind"`
}

// CommandDefinition is one entry of the static command definition source.
type CommandDefinition struct {
	Pattern    string           `yaml:"pattern" toml:"pattern"`
	Regex      bool             `yaml:"regex,omitempty" toml:"regex"`
	Handler    string           `yaml:"handler" toml:"handler"`
	Help       string           `yaml:"help" toml:"help"`
	Privileged bool             `yaml:"privileged,omitempty" toml:"privileged"`
	Flags      []FlagDefinition `yaml:"flags,omitempty" toml:"flags"`
}

type commandFile struct {
	Commands []CommandDefinition `yaml:"commands" toml:"commands"`
}

// DefaultCommands returns the embedded definitions.
func DefaultCommands() ([]CommandDefinition, error) {
	return ParseCommands(defaultCommands, "yaml")
}

// LoadCommands reads definitions from path, or the embedded defaults when
// path is empty. The format follows the file extension.
func LoadCommands(path string) ([]CommandDefinition, error) {
	if path == "" {
		return DefaultCommands()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read command definitions: %w", err)
	}
	var format string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = "yaml"
	case ".toml":
		format = "toml"
	default:
		return nil, fmt.Errorf("command definitions %s: unsupported extension %q", path, filepath.Ext(path))
	}
	defs, err := ParseCommands(data, format)
	if err != nil {
		return nil, fmt.Errorf("command definitions %s: %w", path, err)
	}
	return defs, nil
}

// ParseCommands decodes and validates definitions in the given format
// ("yaml" or "toml"). Unknown keys are rejected.
func ParseCommands(data []byte, format string) ([]CommandDefinition, error) {
	var file commandFile
	switch format {
	case "yaml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&file); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	case "toml":
		md, err := toml.Decode(string(data), &file)
		if err != nil {
			return nil, fmt.Errorf("decode toml: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("decode toml: unknown keys %v", undecoded)
		}
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}

	if len(file.Commands) == 0 {
		return nil, errors.New("no commands defined")
	}
	var errs []error
	for i := range file.Commands {
		def := &file.Commands[i]
		def.normalize()
		if err := def.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("command %d (%q): %w", i, def.Pattern, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return file.Commands, nil
}

func (d *CommandDefinition) normalize() {
	d.Pattern = strings.TrimSpace(d.Pattern)
	d.Handler = strings.TrimSpace(d.Handler)
	for i := range d.Flags {
		if d.Flags[i].Kind == "" {
			d.Flags[i].Kind = FlagKindString
		}
	}
}

// Validate checks a single definition in isolation. Cross-entry rules such
// as duplicate patterns are enforced by the registry.
func (d CommandDefinition) Validate() error {
	var errs []error
	if d.Pattern == "" {
		errs = append(errs, errors.New("pattern is required"))
	}
	if d.Handler == "" {
		errs = append(errs, errors.New("handler is required"))
	}
	if d.Regex && d.Pattern != "" {
		if _, err := regexp.Compile(d.Pattern); err != nil {
			errs = append(errs, fmt.Errorf("invalid regex: %w", err))
		}
	}
	seen := make(map[string]bool)
	for _, f := range d.Flags {
		names := append([]string{f.Name}, f.Aliases...)
		for _, name := range names {
			if name == "" || strings.HasPrefix(name, "-") || strings.ContainsAny(name, " =") {
				errs = append(errs, fmt.Errorf("invalid flag name %q", name))
				continue
			}
			if seen[name] {
				errs = append(errs, fmt.Errorf("flag %q declared twice", name))
			}
			seen[name] = true
		}
		if f.Kind != FlagKindString && f.Kind != FlagKindCount {
			errs = append(errs, fmt.Errorf("flag %q: unknown kind %q", f.Name, f.Kind))
		}
	}
	return errors.Join(errs...)
}
