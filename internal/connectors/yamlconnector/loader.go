package yamlconnector

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gabriel/anime-manga-browser/internal/connectors"
)

// DefaultProfileKey is the key of the built-in profile enabled by LoadDefault.
const DefaultProfileKey = "scrape"

//go:embed defaults/scrape.yaml
var defaultProfile []byte

func ParseProfile(content []byte) (Profile, error) {
	var profile Profile
	if err := yaml.Unmarshal(content, &profile); err != nil {
		return Profile{}, err
	}
	return profile, nil
}

// LoadDefault builds the built-in profile against baseURL. An empty baseURL disables it.
func LoadDefault(baseURL string, opts Options) (*Connector, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, nil
	}

	profile, err := BuiltinProfile(baseURL)
	if err != nil {
		return nil, err
	}

	connector, err := NewConnector(profile, opts)
	if err != nil {
		return nil, fmt.Errorf("default profile: %w", err)
	}
	return connector, nil
}

// LoadFromDir reads every *.yaml/*.yml profile in dirPath. Broken files are reported
// together in the returned error; the profiles that did load are still returned.
func LoadFromDir(dirPath string, opts Options) ([]connectors.Source, error) {
	trimmed := strings.TrimSpace(dirPath)
	if trimmed == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(trimmed)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read profiles dir: %w", err)
	}

	files := make([]string, 0)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if isProfileFile(entry.Name()) {
			files = append(files, filepath.Join(trimmed, entry.Name()))
		}
	}
	sort.Strings(files)

	loaded := make([]connectors.Source, 0, len(files))
	seen := make(map[string]string, len(files))
	errors := make([]string, 0)

	for _, filePath := range files {
		name := filepath.Base(filePath)
		content, err := os.ReadFile(filePath)
		if err != nil {
			errors = append(errors, fmt.Sprintf("%s: %v", name, err))
			continue
		}

		profile, err := ParseProfile(content)
		if err != nil {
			errors = append(errors, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		if !profile.isEnabled() {
			continue
		}

		connector, err := NewConnector(profile, opts)
		if err != nil {
			errors = append(errors, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		if previous, exists := seen[connector.Key()]; exists {
			errors = append(errors, fmt.Sprintf("%s: key %q already defined in %s", name, connector.Key(), previous))
			continue
		}
		seen[connector.Key()] = name
		loaded = append(loaded, connector)
	}

	if len(errors) > 0 {
		return loaded, fmt.Errorf("profiles failed to load: %s", strings.Join(errors, " | "))
	}

	return loaded, nil
}

func isProfileFile(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml")
}
