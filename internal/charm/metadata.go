package charm

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// MetadataFile is the charm-local file declaring which scripts run for which
// lifecycle hooks.
const MetadataFile = "lucky.yaml"

var validate = validator.New()

var hookNameRegex = regexp.MustCompile(`^[a-z][a-z0-9-]{0,62}$`)

func init() {
	validate.RegisterValidation("hookname", func(fl validator.FieldLevel) bool {
		return hookNameRegex.MatchString(fl.Field().String())
	})
}

// Script is one executable step of a hook, resolved relative to the charm dir.
type Script struct {
	Path        string            `yaml:"script" validate:"required"`
	Environment map[string]string `yaml:"environment"`
}

// Metadata is the parsed lucky.yaml.
type Metadata struct {
	Name  string              `yaml:"name" validate:"required,hookname"`
	Hooks map[string][]Script `yaml:"hooks" validate:"required,min=1"`
}

// LoadMetadata reads and validates <charmDir>/lucky.yaml.
func LoadMetadata(charmDir string) (*Metadata, error) {
	path := filepath.Join(charmDir, MetadataFile)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read charm metadata: %w", err)
	}

	var md Metadata
	if err := yaml.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("parse %s: %w", MetadataFile, err)
	}

	if err := md.Validate(); err != nil {
		return nil, err
	}

	return &md, nil
}

// Validate checks the metadata structure, hook names, and script entries.
func (m *Metadata) Validate() error {
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("invalid charm metadata: %w", err)
	}

	for name, scripts := range m.Hooks {
		if !hookNameRegex.MatchString(name) {
			return fmt.Errorf("invalid hook name %q", name)
		}
		if len(scripts) == 0 {
			return fmt.Errorf("hook %q has no scripts", name)
		}
		for _, s := range scripts {
			if err := validate.Struct(s); err != nil {
				return fmt.Errorf("hook %q: %w", name, err)
			}
		}
	}

	return nil
}

// HookNames returns the declared hook names, sorted.
func (m *Metadata) HookNames() []string {
	names := make([]string, 0, len(m.Hooks))
	for name := range m.Hooks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
