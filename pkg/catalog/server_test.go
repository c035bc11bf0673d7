package catalog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/skillkit/pkg/lint"
	"github.com/jingkaihe/skillkit/pkg/skills"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "ink", skills.SkillFileName), `---
name: ink
description: Build terminal UIs with Ink and React.
license: MIT
---

# Ink

Read [the hooks guide](references/hooks.md) and [the layout guide](references/layout.md).
`)
	writeFile(t, filepath.Join(root, "ink", "references", "hooks.md"), "# Hooks\n")
	writeFile(t, filepath.Join(root, "docker", skills.SkillFileName), `---
name: docker
description: Write small, secure Dockerfiles.
---

# Docker
`)
	writeFile(t, filepath.Join(root, "secret.txt"), "top secret")

	linter, err := lint.NewLinter()
	require.NoError(t, err)

	srv, err := NewServer(&ServerConfig{Host: "127.0.0.1", Port: 8080, Roots: []string{root}}, linter)
	require.NoError(t, err)
	return srv, root
}

func get(t *testing.T, srv *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestServerConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  ServerConfig
		wantErr string
	}{
		{"valid", ServerConfig{Host: "localhost", Port: 8080, Roots: []string{"."}}, ""},
		{"empty host", ServerConfig{Port: 8080, Roots: []string{"."}}, "host cannot be empty"},
		{"bad port", ServerConfig{Host: "localhost", Port: 70000, Roots: []string{"."}}, "port must be between"},
		{"no roots", ServerConfig{Host: "localhost", Port: 8080}, "at least one skill root"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := get(t, srv, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])
}

func TestListSkills(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := get(t, srv, "/api/skills")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	resp := decode[ListSkillsResponse](t, rec)
	require.Equal(t, 2, resp.Total)
	assert.Equal(t, "docker", resp.Skills[0].Name)
	assert.Equal(t, "ink", resp.Skills[1].Name)
	assert.Equal(t, "MIT", resp.Skills[1].License)
	assert.Equal(t, 1, resp.Skills[1].References)

	resp = decode[ListSkillsResponse](t, get(t, srv, "/api/skills?q=TERMINAL"))
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, "ink", resp.Skills[0].Name)
}

func TestGetSkill(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := get(t, srv, "/api/skills/ink")
	require.Equal(t, http.StatusOK, rec.Code)

	detail := decode[SkillDetail](t, rec)
	assert.Equal(t, "ink", detail.Name)
	assert.Contains(t, detail.Content, "# Ink")
	assert.Equal(t, []string{"SKILL.md", "references/hooks.md"}, detail.Files)
	assert.NotEmpty(t, detail.Links)

	rec = get(t, srv, "/api/skills/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "missing")
}

func TestGetFile(t *testing.T) {
	srv, root := newTestServer(t)

	t.Run("reference", func(t *testing.T) {
		rec := get(t, srv, "/api/skills/ink/files/references/hooks.md")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "# Hooks\n", rec.Body.String())
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/markdown")
	})

	t.Run("missing", func(t *testing.T) {
		rec := get(t, srv, "/api/skills/ink/files/references/layout.md")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("directory", func(t *testing.T) {
		rec := get(t, srv, "/api/skills/ink/files/references")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("symlink escape", func(t *testing.T) {
		link := filepath.Join(root, "ink", "references", "leak.txt")
		if err := os.Symlink(filepath.Join(root, "secret.txt"), link); err != nil {
			t.Skipf("symlinks unavailable: %v", err)
		}
		rec := get(t, srv, "/api/skills/ink/files/references/leak.txt")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.NotContains(t, rec.Body.String(), "top secret")
	})
}

func TestLint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := get(t, srv, "/api/lint")
	require.Equal(t, http.StatusOK, rec.Code)

	report := decode[lint.Report](t, rec)
	assert.NotEmpty(t, report.RunID)
	assert.ElementsMatch(t, []string{"docker", "ink"}, report.Skills)
	assert.Equal(t, 1, report.Errors)

	var rules []string
	for _, f := range report.Findings {
		rules = append(rules, f.Rule)
	}
	assert.Contains(t, rules, "reference-exists")

	filtered := decode[lint.Report](t, get(t, srv, "/api/lint?skill=docker"))
	for _, f := range filtered.Findings {
		assert.Equal(t, "docker", f.Skill)
	}
	assert.Zero(t, filtered.Errors)
}

func TestUnknownRoute(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := get(t, srv, "/api/nothing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not found")
}
