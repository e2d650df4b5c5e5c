// SPDX-FileCopyrightText: Copyright 2026 FastSkill, Inc.
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the manifest file every skill bundle must contain.
const FileName = "SKILL.md"

// maxFrontmatterSize limits frontmatter to prevent YAML parsing attacks.
const maxFrontmatterSize = 64 * 1024

// Frontmatter is the parsed YAML frontmatter of a SKILL.md file.
type Frontmatter struct {
	ID           string            `yaml:"id,omitempty"`
	Name         string            `yaml:"name"`
	Description  string            `yaml:"description"`
	Version      string            `yaml:"version,omitempty"`
	Author       string            `yaml:"author,omitempty"`
	License      string            `yaml:"license,omitempty"`
	Tags         StringOrSlice     `yaml:"tags,omitempty"`
	Capabilities StringOrSlice     `yaml:"capabilities,omitempty"`
	Dependencies map[string]string `yaml:"dependencies,omitempty"`

	// Features maps optional feature names to the features each one
	// enables when selected.
	Features map[string][]string `yaml:"features,omitempty"`

	Metadata map[string]string `yaml:"metadata,omitempty"`
}

// StringOrSlice is a YAML type that can unmarshal from a string or a sequence.
type StringOrSlice []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *StringOrSlice) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		str := value.Value
		if str == "" {
			*s = nil
			return nil
		}
		var parts []string
		if strings.Contains(str, ",") {
			parts = strings.Split(str, ",")
		} else {
			parts = strings.Fields(str)
		}
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				result = append(result, trimmed)
			}
		}
		*s = result
		return nil
	case yaml.SequenceNode:
		var arr []string
		if err := value.Decode(&arr); err != nil {
			return fmt.Errorf("decoding list value: %w", err)
		}
		*s = arr
		return nil
	case yaml.DocumentNode, yaml.MappingNode, yaml.AliasNode:
		return fmt.Errorf("expected string or array, got unsupported YAML node type")
	}
	return fmt.Errorf("unexpected YAML node kind %d", value.Kind)
}

// Parse extracts and parses the YAML frontmatter from SKILL.md content.
func Parse(content []byte) (*Frontmatter, error) {
	content = bytes.TrimSpace(content)

	delimiter := []byte("---")
	if !bytes.HasPrefix(content, delimiter) {
		return nil, fmt.Errorf("%s must start with YAML frontmatter (---)", FileName)
	}

	rest := content[len(delimiter):]
	rest = bytes.TrimPrefix(rest, []byte("\n"))

	endIdx := bytes.Index(rest, delimiter)
	if endIdx == -1 {
		return nil, fmt.Errorf("%s frontmatter missing closing delimiter (---)", FileName)
	}

	fmBytes := rest[:endIdx]

	if len(fmBytes) > maxFrontmatterSize {
		return nil, fmt.Errorf("frontmatter exceeds maximum size of %d bytes", maxFrontmatterSize)
	}

	var fm Frontmatter
	if err := yaml.Unmarshal(fmBytes, &fm); err != nil {
		return nil, fmt.Errorf("parsing frontmatter YAML: %w", err)
	}

	if fm.Name == "" {
		return nil, fmt.Errorf("skill name is required in %s frontmatter", FileName)
	}

	return &fm, nil
}

// SkillID returns the identifier the frontmatter declares for the skill:
// the explicit id field if present, otherwise the name.
func (f *Frontmatter) SkillID() string {
	if f.ID != "" {
		return f.ID
	}
	return f.Name
}
