// Package config loads skemac project configuration from skemac.yaml.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/reoring/skemac"
	"github.com/reoring/skemac/importer"
)

// FileNames are the configuration files looked up in a directory, in order.
var FileNames = []string{"skemac.yaml", "skemac.yml"}

// Validator generation modes.
const (
	ValidatorsNone   = "none"
	ValidatorsSource = "source"
)

// Config represents a skemac.yaml file.
type Config struct {
	// Out is the output directory, relative to Root.
	Out     string `yaml:"out"`
	Dialect string `yaml:"dialect"` // "jsonschema" or "openapi"
	// Validators is "none" or "source" (emit a Go validator package per export).
	Validators string `yaml:"validators"`

	// Include and Exclude select inputs with gitignore-style patterns.
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`

	Pretty    bool `yaml:"pretty"`
	SchemaURI bool `yaml:"schemaURI"`
	// Clean removes generated validator folders before writing.
	Clean bool `yaml:"clean"`
	// Strict renders every object with additionalProperties false.
	Strict bool `yaml:"strict,omitempty"`

	Validator ValidatorConfig `yaml:"validator,omitempty"`
	Import    ImportConfig    `yaml:"import,omitempty"`
	Fetch     FetchConfig     `yaml:"fetch,omitempty"`

	// Root is the directory the file was loaded from. Relative paths resolve
	// against it.
	Root string `yaml:"-"`
}

// ValidatorConfig tunes generated validators.
type ValidatorConfig struct {
	Formats bool `yaml:"formats"`
	Coerce  bool `yaml:"coerce,omitempty"`
	// Assert also generates a Must variant that panics on invalid input.
	Assert bool `yaml:"assert,omitempty"`
}

// ImportConfig tunes the importer.
type ImportConfig struct {
	// Unknown is "", "prune", "strict" or "preserve".
	Unknown        string `yaml:"unknown,omitempty"`
	CEL            bool   `yaml:"cel"`
	EmbeddedChecks bool   `yaml:"embeddedChecks,omitempty"`
}

// FetchConfig controls remote reference resolution.
type FetchConfig struct {
	// Disabled turns remote references into errors.
	Disabled bool `yaml:"disabled,omitempty"`
	// Root resolves relative file references. Defaults to Root.
	Root string `yaml:"root,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Out:        "gen",
		Dialect:    "jsonschema",
		Validators: ValidatorsNone,
		Include:    []string{"*.schema.json", "*.schema.yaml", "*.crd.yaml"},
		Pretty:     true,
		SchemaURI:  true,
		Clean:      true,
		Validator:  ValidatorConfig{Formats: true},
		Import:     ImportConfig{CEL: true},
		Root:       ".",
	}
}

// Load reads the configuration at path. A directory is searched for
// skemac.yaml then skemac.yml; a directory without either yields the
// defaults rooted there. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}
	configPath := path
	if info.IsDir() {
		configPath = ""
		for _, name := range FileNames {
			p := filepath.Join(path, name)
			if _, err := os.Stat(p); err == nil {
				configPath = p
				break
			}
		}
		if configPath == "" {
			cfg := Default()
			cfg.Root = path
			return cfg, nil
		}
	}
	f, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	defer f.Close()
	cfg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", configPath, err)
	}
	cfg.Root = filepath.Dir(configPath)
	return cfg, nil
}

// Parse decodes a configuration over the defaults and validates it.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if c.Out == "" {
		errs = append(errs, errors.New("out must not be empty"))
	}
	if _, ok := skemac.ParseDialect(c.Dialect); !ok {
		errs = append(errs, fmt.Errorf("unknown dialect %q", c.Dialect))
	}
	switch c.Validators {
	case ValidatorsNone, ValidatorsSource:
	default:
		errs = append(errs, fmt.Errorf("validators must be %q or %q, got %q", ValidatorsNone, ValidatorsSource, c.Validators))
	}
	if _, ok := parseUnknown(c.Import.Unknown); !ok {
		errs = append(errs, fmt.Errorf("unknown import.unknown %q", c.Import.Unknown))
	}
	if len(c.Include) == 0 {
		errs = append(errs, errors.New("include must list at least one pattern"))
	}
	for _, p := range append(append([]string(nil), c.Include...), c.Exclude...) {
		if p == "" {
			errs = append(errs, errors.New("empty include/exclude pattern"))
			break
		}
	}
	return errors.Join(errs...)
}

// SchemaDialect returns the parsed dialect.
func (c *Config) SchemaDialect() skemac.Dialect {
	d, _ := skemac.ParseDialect(c.Dialect)
	return d
}

// UnknownBehavior returns the importer setting for unknown keys.
func (c *Config) UnknownBehavior() importer.UnknownBehavior {
	u, _ := parseUnknown(c.Import.Unknown)
	return u
}

// Path resolves p against Root unless it is absolute.
func (c *Config) Path(p string) string {
	if filepath.IsAbs(p) || c.Root == "" {
		return p
	}
	return filepath.Join(c.Root, p)
}

// FetchRoot returns the directory relative file references resolve against.
func (c *Config) FetchRoot() string {
	if c.Fetch.Root != "" {
		return c.Path(c.Fetch.Root)
	}
	return c.Root
}

func parseUnknown(s string) (importer.UnknownBehavior, bool) {
	switch s {
	case "":
		return importer.UnknownDefault, true
	case "prune":
		return importer.UnknownPrune, true
	case "strict":
		return importer.UnknownStrict, true
	case "preserve":
		return importer.UnknownPreserve, true
	}
	return importer.UnknownDefault, false
}
