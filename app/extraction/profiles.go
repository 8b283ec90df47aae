package extraction

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed extraction.yml
var defaultProfiles []byte

type Profile struct {
	Type    Type           `yaml:"-"`
	Prompt  string         `yaml:"prompt"`
	Options map[string]any `yaml:"options"`
}

type Profiles struct {
	Model        string              `yaml:"model"`
	Temperature  float32             `yaml:"temperature"`
	ChunkSize    int                 `yaml:"chunk_size"`
	SystemPrompt string              `yaml:"system_prompt"`
	Types        map[string]*Profile `yaml:"types"`
}

// Profile returns the prompt settings for a concrete type.
func (p *Profiles) Profile(t Type) (*Profile, error) {
	profile, ok := p.Types[string(t)]
	if !ok {
		return nil, fmt.Errorf("%w: no profile for %q", ErrUnknownType, t)
	}
	return profile, nil
}

// Expand resolves TypeAll to every configured type in a stable order.
func (p *Profiles) Expand(t Type) []Type {
	if t != TypeAll {
		return []Type{t}
	}

	types := make([]Type, 0, len(p.Types))
	for _, known := range knownTypes {
		if _, ok := p.Types[string(known)]; ok {
			types = append(types, known)
		}
	}
	return types
}

// Options builds the options object handed to the backend for one type.
func (p *Profiles) Options(t Type) map[string]any {
	options := map[string]any{"extraction_type": string(t)}
	for _, expanded := range p.Expand(t) {
		profile, ok := p.Types[string(expanded)]
		if !ok {
			continue
		}
		for k, v := range profile.Options {
			options[k] = v
		}
	}
	return options
}

type ProfileCache struct {
	path     string
	profiles *Profiles
	mu       sync.RWMutex
}

// NewProfileCache reads profiles from path, or from the embedded defaults when
// path is empty or missing.
func NewProfileCache(path string) *ProfileCache {
	return &ProfileCache{path: path}
}

func (pc *ProfileCache) Run() error {
	data := defaultProfiles
	source := "embedded"

	if pc.path != "" {
		if _, err := os.Stat(pc.path); err == nil {
			fileData, err := os.ReadFile(pc.path)
			if err != nil {
				return fmt.Errorf("failed to read file: %w", err)
			}
			data = fileData
			source = pc.path
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat %s: %w", pc.path, err)
		}
	}

	profiles, err := ParseProfiles(data)
	if err != nil {
		return fmt.Errorf("invalid profiles %s: %w", source, err)
	}

	pc.mu.Lock()
	pc.profiles = profiles
	pc.mu.Unlock()

	slog.Debug("Extraction profiles loaded", "source", source, "model", profiles.Model, "types", len(profiles.Types), "chunk_size", profiles.ChunkSize)
	return nil
}

func (pc *ProfileCache) Get() *Profiles {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.profiles
}

// ParseProfiles decodes YAML, applies defaults and validates the result.
func ParseProfiles(data []byte) (*Profiles, error) {
	var profiles Profiles
	if err := yaml.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if profiles.Model == "" {
		profiles.Model = "gemini-2.0-flash"
	}
	if profiles.ChunkSize == 0 {
		profiles.ChunkSize = 8000
	}

	if err := validateProfiles(&profiles); err != nil {
		return nil, err
	}

	for name, profile := range profiles.Types {
		profile.Type = Type(name)
	}

	return &profiles, nil
}

func validateProfiles(profiles *Profiles) error {
	if profiles.ChunkSize < 0 {
		return fmt.Errorf("chunk size must be non-negative")
	}
	if profiles.Temperature < 0 || profiles.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if len(profiles.Types) == 0 {
		return fmt.Errorf("at least one extraction type is required")
	}

	names := make([]string, 0, len(profiles.Types))
	for name := range profiles.Types {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		profile := profiles.Types[name]
		if !slices.Contains(knownTypes, Type(name)) {
			return fmt.Errorf("%w: %s", ErrUnknownType, name)
		}
		if profile == nil || profile.Prompt == "" {
			return fmt.Errorf("prompt is required for %s", name)
		}
	}

	return nil
}
