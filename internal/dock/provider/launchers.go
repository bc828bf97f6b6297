package provider

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Launcher is one external-application launch definition from
// providers.yaml. The command is run detached; the dock only tracks its PID.
type Launcher struct {
	Name    string   `yaml:"name"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	Env     []string `yaml:"env"`
}

type launcherFile struct {
	Launchers []Launcher `yaml:"launchers"`
}

// LoadLaunchers parses the providers.yaml launcher definitions. A missing
// file yields an empty set, not an error: the external backend simply
// reports itself unavailable.
func LoadLaunchers(path string) (map[string]Launcher, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]Launcher{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading launchers file: %w", err)
	}
	return ParseLaunchers(data)
}

// ParseLaunchers parses launcher definitions from yaml bytes.
func ParseLaunchers(data []byte) (map[string]Launcher, error) {
	var file launcherFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing launchers: %w", err)
	}

	launchers := make(map[string]Launcher, len(file.Launchers))
	for _, l := range file.Launchers {
		if l.Name == "" {
			return nil, fmt.Errorf("parsing launchers: launcher with empty name")
		}
		if l.Command == "" {
			return nil, fmt.Errorf("parsing launchers: launcher %q has no command", l.Name)
		}
		if _, dup := launchers[l.Name]; dup {
			return nil, fmt.Errorf("parsing launchers: duplicate launcher %q", l.Name)
		}
		launchers[l.Name] = l
	}
	return launchers, nil
}
