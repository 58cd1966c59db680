// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets collects the engine's credentials from two places: a
// directory of one-value files (.secrets/google-api-key holds the Gemini key)
// and a dotenv file (GOOGLE_API_KEY=...). Both resolve to the same names.
//
// Known names: anthropic-api-key, google-api-key, serpapi-api-key, openalex-email.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Known secret names.
const (
	AnthropicAPIKey = "anthropic-api-key"
	GoogleAPIKey    = "google-api-key"
	SerpAPIKey      = "serpapi-api-key"
	OpenAlexEmail   = "openalex-email"
)

// Set maps secret names to values.
type Set map[string]string

// Names returns the loaded names, sorted. Values are never logged.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for k := range s {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Load reads the secrets directory, then the dotenv file. A name found in
// the directory wins over the same name in the dotenv file. Either source
// may be missing; blank values are ignored. A file in dir that cannot be
// read is logged and skipped.
func Load(dir, envFile string, logger *zap.Logger) (Set, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	set := Set{}
	if dir != "" {
		if err := set.readDir(dir, logger); err != nil {
			return nil, err
		}
	}
	if envFile != "" {
		if err := set.readEnvFile(envFile); err != nil {
			return nil, err
		}
	}
	return set, nil
}

func (s Set) readDir(dir string, logger *zap.Logger) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading credentials directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("skipping unreadable credential file", zap.String("name", name), zap.Error(err))
			continue
		}
		s.put(name, string(data))
	}
	return nil
}

// readEnvFile adds dotenv entries under their secret name:
// SERPAPI_API_KEY becomes serpapi-api-key.
func (s Set) readEnvFile(path string) error {
	env, err := godotenv.Read(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading dotenv file %s: %w", path, err)
	}
	for k, v := range env {
		name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(k)), "_", "-")
		if _, exists := s[name]; !exists {
			s.put(name, v)
		}
	}
	return nil
}

func (s Set) put(name, value string) {
	if v := strings.TrimSpace(value); v != "" {
		s[name] = v
	}
}
