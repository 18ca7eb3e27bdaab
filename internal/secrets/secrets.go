// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads source credentials from a directory of plain-text
// files. The filename is the key name and the trimmed contents the value.
package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/paper-survey/pkg/types"
)

// Key files read by Apply.
const (
	SemanticScholarAPIKey = "semantic-scholar-api-key"
	OpenAlexEmail         = "openalex-email"
	CrossrefMailto        = "crossref-mailto"
)

// DefaultDir is where the CLI looks for secrets.
const DefaultDir = ".secrets"

// Load reads all files in dir and returns a map of filename to trimmed
// contents. A missing directory is not an error. Unreadable files are
// logged and skipped.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			slog.Warn("could not read secret", "name", name, "error", err)
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Apply copies known secrets into cfg. Values already set in cfg (from the
// config file or environment) win.
func Apply(secrets map[string]string, cfg *types.SourcesConfig) {
	fill := func(dst *string, key string) {
		if *dst == "" {
			*dst = secrets[key]
		}
	}
	fill(&cfg.SemanticScholarAPIKey, SemanticScholarAPIKey)
	fill(&cfg.OpenAlexEmail, OpenAlexEmail)
	fill(&cfg.CrossrefMailto, CrossrefMailto)
}
