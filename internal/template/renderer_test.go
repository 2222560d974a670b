// Copyright Contributors to the KubeOpenCode project

//go:build !integration

package template

import (
	"os"
	"path/filepath"
	"testing"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	orchestratorv1alpha1 "github.com/5dlabs/orchestrator/api/v1alpha1"
	"github.com/5dlabs/orchestrator/internal/config"
	"github.com/5dlabs/orchestrator/internal/run"
)

func writeTemplateDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("writing template fixture %s: %v", name, err)
		}
	}
	return dir
}

func baseDocsFiles() map[string]string {
	return map[string]string{
		"docs_container.sh.hbs":    "#!/bin/bash\n# {{service}} {{working_directory}}\n",
		"docs_CLAUDE.md.hbs":       "# {{user}}\n",
		"docs_settings.json.hbs":   `{"overwrite": {{overwrite_memory}} }`,
		"docs_prompt.md.hbs":       "Generate docs for {{repository.url}}\n",
	}
}

func TestRenderDocsRun(t *testing.T) {
	dir := writeTemplateDir(t, baseDocsFiles())
	r := New(dir)

	docsRun := run.FromDocsRun(&orchestratorv1alpha1.DocsRun{
		ObjectMeta: metav1.ObjectMeta{Name: "docs-gen-1"},
		Spec: orchestratorv1alpha1.DocsRunSpec{
			RepositoryURL:    "https://github.com/acme/repo",
			WorkingDirectory: "_projects/simple-api",
			GithubUser:       "alice",
		},
	})

	out, err := r.Render(docsRun, &config.Config{})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	want := []string{"container.sh", "CLAUDE.md", "settings.json", "prompt.md"}
	for _, name := range want {
		if _, ok := out[name]; !ok {
			t.Errorf("missing rendered file %q", name)
		}
	}
	if _, ok := out["mcp.json"]; ok {
		t.Error("docs run must not render code-only templates")
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	dir := writeTemplateDir(t, baseDocsFiles())
	r := New(dir)
	docsRun := run.FromDocsRun(&orchestratorv1alpha1.DocsRun{
		ObjectMeta: metav1.ObjectMeta{Name: "docs-gen-1"},
		Spec:       orchestratorv1alpha1.DocsRunSpec{RepositoryURL: "https://x", GithubUser: "bob"},
	})

	first, err := r.Render(docsRun, &config.Config{})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	second, err := r.Render(docsRun, &config.Config{})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	for k, v := range first {
		if second[k] != v {
			t.Errorf("rendering %q twice diverged: %q != %q", k, v, second[k])
		}
	}
}

func TestRenderMissingTemplateNamesLogicalAndMangledKey(t *testing.T) {
	dir := writeTemplateDir(t, map[string]string{})
	r := New(dir)
	docsRun := run.FromDocsRun(&orchestratorv1alpha1.DocsRun{
		Spec: orchestratorv1alpha1.DocsRunSpec{GithubUser: "carol"},
	})

	_, err := r.Render(docsRun, &config.Config{})
	if err == nil {
		t.Fatal("expected error for missing template, got nil")
	}
	var renderErr *RenderError
	if !asRenderError(err, &renderErr) {
		t.Fatalf("expected *RenderError, got %T: %v", err, err)
	}
	if renderErr.LogicalPath == "" || renderErr.MangledKey == "" {
		t.Errorf("RenderError missing logical path or mangled key: %+v", renderErr)
	}
}

func TestDiscoverHooksStripsPrefixAndExtension(t *testing.T) {
	files := baseDocsFiles()
	files["docs_hooks_pre-commit.hbs"] = "echo pre-commit"
	files["code_hooks_post-build.hbs"] = "echo should-not-apply"
	dir := writeTemplateDir(t, files)
	r := New(dir)

	docsRun := run.FromDocsRun(&orchestratorv1alpha1.DocsRun{
		Spec: orchestratorv1alpha1.DocsRunSpec{GithubUser: "dave", RepositoryURL: "https://x"},
	})

	out, err := r.Render(docsRun, &config.Config{})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if out["hooks-pre-commit"] != "echo pre-commit" {
		t.Errorf("hooks-pre-commit = %q, want %q", out["hooks-pre-commit"], "echo pre-commit")
	}
	if _, ok := out["hooks-post-build"]; ok {
		t.Error("code hook file must not be discovered for a docs run")
	}
}

func asRenderError(err error, target **RenderError) bool {
	re, ok := err.(*RenderError)
	if ok {
		*target = re
	}
	return ok
}
