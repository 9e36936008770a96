package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const campaignYAML = `school_name: MAN 1 Kota Cerdas
level: MA
tracks: [Prestasi, Tahfidz]
contacts: ["0812-1111-2222"]
socials:
  - platform: Instagram
    handle: "@mankotacerdas"
aspect_ratio: "4:5"
`

func writeCampaign(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "campaign.yaml")
	require.NoError(t, os.WriteFile(path, []byte(campaignYAML), 0o644))
	return path
}

// isolate points the commands at a throwaway key store and no default key.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("CREDENTIALS_PATH", filepath.Join(t.TempDir(), "ppdb.db"))
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("LOG_LEVEL", "error")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRenderText(t *testing.T) {
	out, err := run(t, "render", "--file", writeCampaign(t))
	require.NoError(t, err)
	assert.Contains(t, out, "MAN 1 Kota Cerdas")
	assert.Contains(t, out, "Prestasi, Tahfidz")
	assert.Contains(t, out, "Instagram: @mankotacerdas")
}

func TestRenderJSON(t *testing.T) {
	out, err := run(t, "render", "--file", writeCampaign(t), "--format", "json")
	require.NoError(t, err)

	var env map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &env))
	params := env["parameters"].(map[string]any)
	assert.Equal(t, "4:5", params["aspect_ratio"])
	assert.Equal(t, "MAN 1 Kota Cerdas", env["meta"].(map[string]any)["school"])
}

func TestRenderRejectsBadInput(t *testing.T) {
	_, err := run(t, "render", "--format", "xml")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("level: Kuliah\n"), 0o644))
	_, err = run(t, "render", "--file", path)
	assert.Error(t, err)
}

func TestKeyCommands(t *testing.T) {
	isolate(t)

	out, err := run(t, "key", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "no key stored")

	_, err = run(t, "key", "set", "AIzaSyabcdwxyz")
	require.NoError(t, err)

	out, err = run(t, "key", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "wxyz")
	assert.NotContains(t, out, "AIzaSy")

	_, err = run(t, "key", "delete")
	require.NoError(t, err)
	out, err = run(t, "key", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "no key stored")
}

func TestGenerate(t *testing.T) {
	isolate(t)

	gotKey := make(chan string, 1)
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey <- r.Header.Get("x-goog-api-key")
		data := base64.StdEncoding.EncodeToString([]byte("fake-png"))
		fmt.Fprintf(w, `{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"image/png","data":%q}}]}}]}`, data)
	}))
	defer provider.Close()
	t.Setenv("GEMINI_BASE_URL", provider.URL)

	_, err := run(t, "key", "set", "stored-key")
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "poster.png")
	out, err := run(t, "generate", "--file", writeCampaign(t), "--out", dest)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "wrote "))
	assert.Equal(t, "stored-key", <-gotKey)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, []byte("fake-png"), data)
}

func TestGenerateWithoutKey(t *testing.T) {
	isolate(t)

	var calls atomic.Int32
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer provider.Close()
	t.Setenv("GEMINI_BASE_URL", provider.URL)

	_, err := run(t, "generate", "--out", filepath.Join(t.TempDir(), "poster.png"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ppdb key set")
	assert.Zero(t, calls.Load())
}
