// Package session: connection templates, adapted from the teacher's
// docker.Manager.LoadTemplate, which loaded a YAML Dockerfile template per
// language. Here the same "load a YAML document describing how to reach a
// provider" shape is repurposed for session connection templates per
// provider kind (e.g. a self-hosted Chromium pool vs. the Browserbase API).
package session

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// ConnectionTemplate describes how to reach a given provider kind.
type ConnectionTemplate struct {
	BaseURL        string            `yaml:"baseUrl"`
	ConnectURLFmt  string            `yaml:"connectUrlFormat"`
	DefaultHeaders map[string]string `yaml:"defaultHeaders"`
}

// LoadTemplate reads {dir}/{kind}.yaml and parses it into a
// ConnectionTemplate.
func LoadTemplate(dir, kind string) (*ConnectionTemplate, error) {
	path := filepath.Join(dir, kind+".yaml")

	log.Debug().Str("template_file", path).Msg("loading session connection template")

	data, err := os.ReadFile(path)
	if err != nil {
		log.Error().Str("template_file", path).Err(err).Msg("failed to read connection template")
		return nil, fmt.Errorf("failed to read connection template: %w", err)
	}

	var tmpl ConnectionTemplate
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		log.Error().Str("template_file", path).Err(err).Msg("failed to unmarshal connection template")
		return nil, fmt.Errorf("failed to unmarshal connection template: %w", err)
	}

	return &tmpl, nil
}
