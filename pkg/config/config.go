package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultSystemPrompt is used when a personality config has no system_prompt key.
const DefaultSystemPrompt = "You are an AI."

// ProviderConfig holds the defaults for a single LLM vendor.
type ProviderConfig struct {
	DefaultModel      string         `yaml:"default_model"`
	DefaultParameters map[string]any `yaml:"default_parameters"`
	BaseURL           string         `yaml:"base_url,omitempty"`
}

// PersonalityConfig holds the system-level instruction for the conversation.
type PersonalityConfig struct {
	Name string `yaml:"name,omitempty"`

	// SystemPrompt is a pointer so an explicit empty prompt can be told
	// apart from a missing key.
	SystemPrompt *string `yaml:"system_prompt"`
}

// Prompt returns the configured system prompt, or DefaultSystemPrompt when
// the key is absent.
func (p *PersonalityConfig) Prompt() string {
	if p == nil || p.SystemPrompt == nil {
		return DefaultSystemPrompt
	}
	return *p.SystemPrompt
}

// Model returns the configured default model, or fallback when unset.
func (p *ProviderConfig) Model(fallback string) string {
	if p == nil || p.DefaultModel == "" {
		return fallback
	}
	return p.DefaultModel
}

// ErrorKind categorizes config load failures.
type ErrorKind int

const (
	KindNotFound ErrorKind = iota + 1
	KindParse
	KindIO
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindParse:
		return "parse"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

// ErrEmptyDocument is wrapped by a KindParse LoadError when a file holds no
// usable mapping.
var ErrEmptyDocument = errors.New("document is empty")

// LoadError reports a config file that could not be loaded.
type LoadError struct {
	Path string
	Kind ErrorKind
	Err  error
}

func (e *LoadError) Error() string {
	switch e.Kind {
	case KindNotFound:
		return fmt.Sprintf("config file not found: %s", e.Path)
	case KindParse:
		return fmt.Sprintf("parsing config file %s: %v", e.Path, e.Err)
	default:
		return fmt.Sprintf("reading config file %s: %v", e.Path, e.Err)
	}
}

func (e *LoadError) Unwrap() error { return e.Err }

// Load reads the YAML document at path and decodes it into a new T.
// All failures are returned as *LoadError.
func Load[T any](path string) (*T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &LoadError{Path: path, Kind: KindNotFound, Err: err}
		}
		return nil, &LoadError{Path: path, Kind: KindIO, Err: err}
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &LoadError{Path: path, Kind: KindParse, Err: err}
	}
	if isEmpty(&doc) {
		return nil, &LoadError{Path: path, Kind: KindParse, Err: ErrEmptyDocument}
	}

	out := new(T)
	if err := doc.Decode(out); err != nil {
		return nil, &LoadError{Path: path, Kind: KindParse, Err: err}
	}
	return out, nil
}

// LoadProvider loads a provider config file.
func LoadProvider(path string) (*ProviderConfig, error) {
	return Load[ProviderConfig](path)
}

// LoadPersonality loads a personality config file.
func LoadPersonality(path string) (*PersonalityConfig, error) {
	return Load[PersonalityConfig](path)
}

func isEmpty(doc *yaml.Node) bool {
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return true
	}
	root := doc.Content[0]
	switch root.Kind {
	case yaml.MappingNode, yaml.SequenceNode:
		return len(root.Content) == 0
	case yaml.ScalarNode:
		return root.Tag == "!!null"
	}
	return false
}
