package refinery

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a refinery; overrides may be nil
type Factory func(overrides map[string]interface{}) BaseRefinery

// Info describes a registered cleaner
type Info struct {
	Version     string   `json:"version"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Aliases     []string `json:"aliases"`
	Steps       []string `json:"steps"`
}

type catalog struct {
	mu        sync.RWMutex
	factories map[string]Factory
	aliases   map[string]string
}

var cleaners = &catalog{
	factories: make(map[string]Factory),
	aliases:   make(map[string]string),
}

// Register adds a cleaner under a version and any number of aliases
func Register(version string, factory Factory, aliases ...string) {
	cleaners.mu.Lock()
	defer cleaners.mu.Unlock()

	cleaners.factories[version] = factory
	for _, alias := range aliases {
		cleaners.aliases[alias] = version
	}
}

// Resolve maps a version or alias to its version
func Resolve(identifier string) (string, error) {
	cleaners.mu.RLock()
	defer cleaners.mu.RUnlock()

	if version, ok := cleaners.aliases[identifier]; ok {
		return version, nil
	}
	if _, ok := cleaners.factories[identifier]; ok {
		return identifier, nil
	}
	return "", fmt.Errorf("unknown cleaner %q, available: %v", identifier, cleaners.versionsLocked())
}

// Create builds the cleaner registered under identifier
func Create(identifier string, overrides map[string]interface{}) (BaseRefinery, error) {
	version, err := Resolve(identifier)
	if err != nil {
		return nil, err
	}

	cleaners.mu.RLock()
	factory := cleaners.factories[version]
	cleaners.mu.RUnlock()

	return factory(overrides), nil
}

// Versions returns the registered versions in order
func Versions() []string {
	cleaners.mu.RLock()
	defer cleaners.mu.RUnlock()
	return cleaners.versionsLocked()
}

func (c *catalog) versionsLocked() []string {
	versions := make([]string, 0, len(c.factories))
	for version := range c.factories {
		versions = append(versions, version)
	}
	sort.Strings(versions)
	return versions
}

// Describe lists every cleaner with its steps, ordered by version
func Describe() []Info {
	cleaners.mu.RLock()
	defer cleaners.mu.RUnlock()

	byVersion := make(map[string][]string)
	for alias, version := range cleaners.aliases {
		byVersion[version] = append(byVersion[version], alias)
	}

	infos := make([]Info, 0, len(cleaners.factories))
	for _, version := range cleaners.versionsLocked() {
		r := cleaners.factories[version](nil)
		aliases := byVersion[version]
		sort.Strings(aliases)

		infos = append(infos, Info{
			Version:     version,
			Name:        r.GetName(),
			Description: r.GetDescription(),
			Aliases:     aliases,
			Steps:       r.GetPipelineSteps(),
		})
	}
	return infos
}

func init() {
	Register("v1", func(overrides map[string]interface{}) BaseRefinery {
		return NewEntityRefinery(overrides)
	}, "entities", "standard")

	Register("v2", func(overrides map[string]interface{}) BaseRefinery {
		return NewNormalizingRefinery(overrides)
	}, "normalize", "nlp")
}
