// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		env   string
		want  Set
	}{
		{
			name: "key files are trimmed",
			files: map[string]string{
				SerpAPIKey:    "  serp-123  \n",
				GoogleAPIKey:  "AIza-xyz",
				OpenAlexEmail: "user@example.com\n",
			},
			want: Set{SerpAPIKey: "serp-123", GoogleAPIKey: "AIza-xyz", OpenAlexEmail: "user@example.com"},
		},
		{
			name:  "blank files and dotfiles are ignored",
			files: map[string]string{AnthropicAPIKey: "sk-ant", "empty": "  \n\t", ".gitkeep": "", ".hidden": "x"},
			want:  Set{AnthropicAPIKey: "sk-ant"},
		},
		{
			name: "dotenv names are mapped",
			env:  "ANTHROPIC_API_KEY=sk-ant\nSERPAPI_API_KEY=serp\nOPENALEX_EMAIL=me@example.org\nEMPTY=\n",
			want: Set{AnthropicAPIKey: "sk-ant", SerpAPIKey: "serp", OpenAlexEmail: "me@example.org"},
		},
		{
			name:  "directory wins over dotenv",
			files: map[string]string{GoogleAPIKey: "from-dir"},
			env:   "GOOGLE_API_KEY=from-env\nSERPAPI_API_KEY=serp\n",
			want:  Set{GoogleAPIKey: "from-dir", SerpAPIKey: "serp"},
		},
		{
			name: "nothing configured",
			want: Set{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			dir := filepath.Join(root, ".secrets")
			if tt.files != nil {
				require.NoError(t, os.Mkdir(dir, 0o700))
				for name, content := range tt.files {
					writeFile(t, dir, name, content)
				}
			}
			envFile := filepath.Join(root, ".env")
			if tt.env != "" {
				writeFile(t, root, ".env", tt.env)
			}

			got, err := Load(dir, envFile, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadSkipsSubdirectories(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, AnthropicAPIKey, "sk-ant")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	got, err := Load(dir, "", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{AnthropicAPIKey}, got.Names())
}

func TestLoadUnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("file permissions are not enforced for root")
	}
	dir := t.TempDir()
	writeFile(t, dir, GoogleAPIKey, "AIza-ok")
	bad := filepath.Join(dir, SerpAPIKey)
	require.NoError(t, os.WriteFile(bad, []byte("serp"), 0o000))
	t.Cleanup(func() { os.Chmod(bad, 0o644) })

	got, err := Load(dir, "", nil)
	require.NoError(t, err)
	assert.Equal(t, Set{GoogleAPIKey: "AIza-ok"}, got)
}

func TestLoadMalformedEnvFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".env", "GOOGLE_API_KEY='unterminated\n")

	_, err := Load("", filepath.Join(root, ".env"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dotenv file")
}

func TestNames(t *testing.T) {
	s := Set{SerpAPIKey: "a", AnthropicAPIKey: "b", GoogleAPIKey: "c"}
	assert.Equal(t, []string{AnthropicAPIKey, GoogleAPIKey, SerpAPIKey}, s.Names())
	assert.Empty(t, Set{}.Names())
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
