// Copyright Contributors to the KubeOpenCode project

// Package template renders the fixed set of per-run-kind files (plus any
// dynamically discovered hook scripts) that make up a Run's config bundle.
//
// Templates are Handlebars (.hbs) files mounted flat under a single
// directory, per the mangling rule: the logical path "a/b.hbs" is looked up
// as the file "a_b.hbs". No Handlebars engine exists anywhere in the source
// material this repository was grounded on, so raymond (a standalone Go
// Handlebars implementation) renders them; see DESIGN.md for why text/template
// and html/template were both rejected for this job.
package template

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/aymerick/raymond"

	"github.com/5dlabs/orchestrator/internal/config"
	"github.com/5dlabs/orchestrator/internal/run"
)

const (
	docsHookPrefix = "docs_hooks_"
	codeHookPrefix = "code_hooks_"
	hbsExt         = ".hbs"
)

var docsTemplates = []string{"container.sh", "CLAUDE.md", "settings.json", "prompt.md"}

var codeTemplates = []string{
	"container.sh", "CLAUDE.md", "settings.json",
	"mcp.json", "client-config.json", "coding-guidelines.md",
	"github-guidelines.md", "mcp-tools.md",
}

// Renderer loads and caches parsed templates from a mounted directory.
type Renderer struct {
	dir string

	mu    sync.Mutex
	cache map[string]*raymond.Template
}

// New creates a Renderer reading templates from dir (e.g. /claude-templates).
func New(dir string) *Renderer {
	return &Renderer{dir: dir, cache: make(map[string]*raymond.Template)}
}

// RenderError names both the logical template path and its mangled mount key.
type RenderError struct {
	LogicalPath string
	MangledKey  string
	Err         error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("rendering template %q (mounted as %q): %v", e.LogicalPath, e.MangledKey, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

func mangle(logicalPath string) string {
	return strings.ReplaceAll(logicalPath, "/", "_")
}

// Render produces the full file set for r (a docs or code run), keyed by
// output filename. Rendering the same (run, config) pair twice is guaranteed
// to produce byte-identical output, since raymond's evaluation has no hidden
// clock/randomness and the data builder is pure.
func (t *Renderer) Render(r run.Run, cfg *config.Config) (map[string]string, error) {
	kind := "docs"
	names := docsTemplates
	if r.IsCodeRun() {
		kind = "code"
		names = codeTemplates
	}

	data := buildTemplateData(r, cfg)

	out := make(map[string]string, len(names))
	for _, name := range names {
		logical := kind + "/" + name + ".hbs"
		content, err := t.renderNamed(logical, data)
		if err != nil {
			return nil, err
		}
		out[name] = content
	}

	hookFiles, err := t.discoverHooks(kind)
	if err != nil {
		return nil, err
	}
	for _, hf := range hookFiles {
		// hf.name is already the flat, mounted filename (no directory
		// component), so it is its own mangled key.
		content, err := t.renderNamed(hf.name, data)
		if err != nil {
			return nil, err
		}
		out["hooks-"+hf.outputName] = content
	}

	return out, nil
}

func (t *Renderer) renderNamed(logicalPath string, data map[string]interface{}) (string, error) {
	key := mangle(logicalPath)

	tpl, err := t.load(logicalPath, key)
	if err != nil {
		return "", err
	}

	rendered, err := tpl.Exec(data)
	if err != nil {
		return "", &RenderError{LogicalPath: logicalPath, MangledKey: key, Err: err}
	}
	return rendered, nil
}

func (t *Renderer) load(logicalPath, key string) (*raymond.Template, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if tpl, ok := t.cache[key]; ok {
		return tpl, nil
	}

	path := filepath.Join(t.dir, key)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &RenderError{LogicalPath: logicalPath, MangledKey: key, Err: err}
	}

	tpl, err := raymond.Parse(string(raw))
	if err != nil {
		return nil, &RenderError{LogicalPath: logicalPath, MangledKey: key, Err: err}
	}

	t.cache[key] = tpl
	return tpl, nil
}

type hookFile struct {
	name       string // the mangled file name under dir, e.g. "docs_hooks_pre-commit.hbs"
	outputName string // the bundle key suffix after the prefix/extension are stripped
}

// discoverHooks scans the template directory for files named
// "<kind>_hooks_*.hbs" and returns them sorted for deterministic iteration
// order, so repeated renders produce identical bundles.
func (t *Renderer) discoverHooks(kind string) ([]hookFile, error) {
	prefix := docsHookPrefix
	if kind == "code" {
		prefix = codeHookPrefix
	}

	entries, err := os.ReadDir(t.dir)
	if err != nil {
		return nil, fmt.Errorf("listing template directory %s: %w", t.dir, err)
	}

	var hooks []hookFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, hbsExt) {
			continue
		}
		stripped := strings.TrimSuffix(strings.TrimPrefix(name, prefix), hbsExt)
		hooks = append(hooks, hookFile{name: name, outputName: stripped})
	}

	sort.Slice(hooks, func(i, j int) bool { return hooks[i].name < hooks[j].name })
	return hooks, nil
}
