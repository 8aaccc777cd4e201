package server

import (
	"os"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// Fixture is a declarative starting state for the dev server, loaded
// from YAML.
type Fixture struct {
	ActiveProject string           `yaml:"activeProject"`
	Projects      []FixtureProject `yaml:"projects"`
}

type FixtureProject struct {
	Name          string `yaml:"name"`
	Repository    string `yaml:"repository"`
	OwnerIdentity string `yaml:"ownerIdentity"`
}

// LoadFixture reads a fixture file and applies it to the store.
func (s *Store) LoadFixture(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return oops.Errorf("server: reading fixture %s: %w", path, err)
	}
	var fx Fixture
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return oops.Errorf("server: parsing fixture %s: %w", path, err)
	}
	s.Apply(fx)
	return nil
}

// Apply loads fixture projects into the store.
func (s *Store) Apply(fx Fixture) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range fx.Projects {
		s.projects[p.Name] = newProject(p.Repository, p.OwnerIdentity)
	}
	if fx.ActiveProject != "" {
		s.activeProject = fx.ActiveProject
	}
	log.WithField("projects", len(fx.Projects)).Debug("fixture_applied")
}
