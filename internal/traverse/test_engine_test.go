package traverse

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"constellation/internal/generate"
	"constellation/internal/llm"
	"constellation/internal/output"
	"constellation/internal/scan"
	"constellation/internal/types"
)

type genCall struct {
	identity string
	content  string
	children []types.ChildBrief
}

// recordingGenerator wraps a generator backed by the fake client and records
// every call.
type recordingGenerator struct {
	calls []genCall
	inner generate.Generator
}

func (g *recordingGenerator) Generate(ctx context.Context, identity, content string, children []types.ChildBrief) types.GeneratedOutput {
	g.calls = append(g.calls, genCall{identity: identity, content: content, children: children})
	if g.inner == nil {
		g.inner = fakeGenerator()
	}
	return g.inner.Generate(ctx, identity, content, children)
}

func fakeGenerator() generate.Generator {
	return &generate.LLMGenerator{Client: llm.NewFakeClient(), Logger: quiet()}
}

// bareGenerator returns a diagram with neither fence nor child links.
type bareGenerator struct{}

func (bareGenerator) Generate(_ context.Context, identity, _ string, _ []types.ChildBrief) types.GeneratedOutput {
	return types.GeneratedOutput{Summary: "# " + identity, Diagram: "flowchart TD\n    A --> B"}
}

type downClient struct{ calls int }

func (c *downClient) Name() string { return "down" }
func (c *downClient) Close() error { return nil }
func (c *downClient) GenerateText(context.Context, string) (string, error) {
	c.calls++
	return "", errors.New("503 service unavailable")
}

func quiet() *log.Logger { return log.New(io.Discard, "", 0) }

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newEngine(gen generate.Generator, store output.Store, opts scan.Options) *Engine {
	opts.Logger = quiet()
	return &Engine{
		Scan:      opts,
		Generator: gen,
		Writer:    output.NewWriter(store, "", ""),
		Logger:    quiet(),
	}
}

func read(t *testing.T, store output.Store, key string) string {
	t.Helper()
	b, err := store.Get(context.Background(), key)
	require.NoError(t, err, key)
	return string(b)
}

func TestRun_ProjectScenario(t *testing.T) {
	root := filepath.Join(t.TempDir(), "proj")
	writeFile(t, filepath.Join(root, "a.py"), "print('a')\n")
	writeFile(t, filepath.Join(root, "sub", "b.py"), "print('b')\n")

	gen := &recordingGenerator{}
	store := output.NewMemoryStore()
	e := newEngine(gen, store, scan.Options{Extensions: []string{".py"}})

	rep, err := e.Run(context.Background(), root)
	require.NoError(t, err)

	require.Len(t, gen.calls, 2)
	assert.Equal(t, "proj/sub", gen.calls[0].identity)
	assert.Contains(t, gen.calls[0].content, "--- START FILE: sub/b.py ---")
	assert.Empty(t, gen.calls[0].children)

	assert.Equal(t, "proj", gen.calls[1].identity)
	assert.Contains(t, gen.calls[1].content, "--- START FILE: a.py ---")
	assert.NotContains(t, gen.calls[1].content, "b.py")
	require.Len(t, gen.calls[1].children, 1)
	assert.Equal(t, "proj/sub", gen.calls[1].children[0].Path)
	assert.Equal(t, 1, gen.calls[1].children[0].FilesAggregatedCount)
	assert.Contains(t, gen.calls[1].children[0].SummaryExcerpt, "# Summary for proj/sub")

	keys, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"proj/mermaid.md",
		"proj/sub/mermaid.md",
		"proj/sub/summary.md",
		"proj/summary.md",
	}, keys)
	assert.Contains(t, read(t, store, "proj/mermaid.md"), `"./sub/mermaid.md"`)

	require.Len(t, rep.Summaries, 2)
	assert.Equal(t, "proj", rep.Summaries[0].Path)
	assert.Equal(t, 1, rep.Summaries[0].ChildrenProcessedCount)
	assert.Equal(t, "proj/summary.md", rep.Summaries[0].SummaryFilePath)
	assert.Equal(t, "proj/sub", rep.Summaries[1].Path)
	assert.Equal(t, 2, rep.Directories)
	assert.Equal(t, 2, rep.Files)
	assert.Zero(t, rep.SaveFailures)
	assert.Zero(t, rep.Fallbacks)
	assert.NotEmpty(t, rep.RunID)
}

func TestRun_OnlyDirectChildrenAreBriefed(t *testing.T) {
	root := filepath.Join(t.TempDir(), "proj")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "b", "c"), 0o755))

	gen := &recordingGenerator{}
	rep, err := newEngine(gen, output.NewMemoryStore(), scan.Options{}).Run(context.Background(), root)
	require.NoError(t, err)

	require.Len(t, gen.calls, 4)
	last := gen.calls[3]
	assert.Equal(t, "proj", last.identity)
	require.Len(t, last.children, 1)
	assert.Equal(t, "proj/a", last.children[0].Path)

	paths := make([]string, 0, len(rep.Summaries))
	for _, s := range rep.Summaries {
		paths = append(paths, s.Path)
	}
	assert.Equal(t, []string{"proj", "proj/a", "proj/a/b", "proj/a/b/c"}, paths)
	assert.Equal(t, 3, rep.Summaries[0].ChildrenProcessedCount)
}

func TestRun_EmptyDirectoryStillGenerates(t *testing.T) {
	root := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.MkdirAll(root, 0o755))

	gen := &recordingGenerator{}
	store := output.NewMemoryStore()
	_, err := newEngine(gen, store, scan.Options{}).Run(context.Background(), root)
	require.NoError(t, err)

	require.Len(t, gen.calls, 1)
	assert.Equal(t, "", gen.calls[0].content)
	assert.Empty(t, gen.calls[0].children)

	keys, _ := store.List(context.Background(), "")
	assert.Equal(t, []string{"empty/mermaid.md", "empty/summary.md"}, keys)
}

func TestRun_IgnoredSubtreeProducesNothing(t *testing.T) {
	root := filepath.Join(t.TempDir(), "proj")
	writeFile(t, filepath.Join(root, "build", "deep", "x.py"), "x")
	writeFile(t, filepath.Join(root, "buildx", "y.py"), "y")

	gen := &recordingGenerator{}
	store := output.NewMemoryStore()
	rep, err := newEngine(gen, store, scan.Options{Ignore: []string{"build"}}).Run(context.Background(), root)
	require.NoError(t, err)

	for _, c := range gen.calls {
		assert.False(t, strings.HasPrefix(c.identity, "proj/build/") || c.identity == "proj/build", c.identity)
	}
	keys, _ := store.List(context.Background(), "proj/build")
	assert.Empty(t, keys)
	keys, _ = store.List(context.Background(), "proj/buildx")
	assert.Len(t, keys, 2)
	assert.Equal(t, 2, rep.Directories)
}

func TestRun_RootIsNeverIgnored(t *testing.T) {
	root := filepath.Join(t.TempDir(), "proj")
	require.NoError(t, os.MkdirAll(root, 0o755))

	gen := &recordingGenerator{}
	_, err := newEngine(gen, output.NewMemoryStore(), scan.Options{Ignore: []string{"proj"}}).Run(context.Background(), root)
	require.NoError(t, err)
	assert.Len(t, gen.calls, 1)
}

func TestRun_RetryExhaustionWritesFallback(t *testing.T) {
	root := filepath.Join(t.TempDir(), "proj")
	writeFile(t, filepath.Join(root, "a.py"), "a")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))

	down := &downClient{}
	client := llm.Wrap(down, llm.Retry(3, 0))
	gen := &generate.LLMGenerator{Client: client, Logger: quiet()}
	store := output.NewMemoryStore()

	rep, err := newEngine(gen, store, scan.Options{}).Run(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 2*2*3, down.calls)
	summary := read(t, store, "proj/summary.md")
	assert.Contains(t, summary, "Error")
	diagram := read(t, store, "proj/mermaid.md")
	assert.Equal(t, 1, strings.Count(diagram, "A[Error"))
	assert.NotContains(t, diagram, "click")
	assert.Equal(t, 2, rep.Fallbacks)
}

func TestRun_DiagramFenceAndChildLinks(t *testing.T) {
	root := filepath.Join(t.TempDir(), "proj")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "api"), 0o755))

	store := output.NewMemoryStore()
	_, err := newEngine(bareGenerator{}, store, scan.Options{}).Run(context.Background(), root)
	require.NoError(t, err)

	for _, key := range []string{"proj/mermaid.md", "proj/api/mermaid.md"} {
		doc := read(t, store, key)
		assert.True(t, strings.HasPrefix(doc, "```mermaid\n"), key)
		assert.True(t, strings.HasSuffix(doc, "```\n"), key)
	}
	top := read(t, store, "proj/mermaid.md")
	assert.Contains(t, top, `"./api/mermaid.md"`)
	assert.Contains(t, top, `Dir_proj --> Child0_proj_api["proj/api"]`)
}

// proseGenerator wraps its diagram in chat text, as models sometimes do.
type proseGenerator struct{}

func (proseGenerator) Generate(_ context.Context, identity, _ string, _ []types.ChildBrief) types.GeneratedOutput {
	return types.GeneratedOutput{
		Summary: "# " + identity,
		Diagram: "Here is the diagram:\n```mermaid\nflowchart TD\n    A --> B\n```\nLet me know if you need more.",
	}
}

func TestRun_DiagramProseIsStripped(t *testing.T) {
	root := filepath.Join(t.TempDir(), "proj")
	require.NoError(t, os.MkdirAll(root, 0o755))

	store := output.NewMemoryStore()
	_, err := newEngine(proseGenerator{}, store, scan.Options{}).Run(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, "```mermaid\nflowchart TD\n    A --> B\n```\n", read(t, store, "proj/mermaid.md"))
}

func TestRun_Idempotent(t *testing.T) {
	root := filepath.Join(t.TempDir(), "proj")
	writeFile(t, filepath.Join(root, "a.go"), "package a\n")
	writeFile(t, filepath.Join(root, "x", "b.go"), "package x\n")
	writeFile(t, filepath.Join(root, "x", "y", "c.go"), "package y\n")

	out := t.TempDir()
	store := output.NewFileStore(out)
	e := newEngine(fakeGenerator(), store, scan.Options{Extensions: []string{"go"}})

	_, err := e.Run(context.Background(), root)
	require.NoError(t, err)
	first := snapshot(t, store)

	_, err = e.Run(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, first, snapshot(t, store))
	assert.Len(t, first, 6)
}

func TestRun_OutputRootInsideTreeIsSkipped(t *testing.T) {
	root := filepath.Join(t.TempDir(), "proj")
	writeFile(t, filepath.Join(root, "a.go"), "package a\n")
	writeFile(t, filepath.Join(root, "tool", "main.go"), "package main\n")

	outDir := filepath.Join(root, "tool", "root")
	store := output.NewFileStore(outDir)
	e := newEngine(fakeGenerator(), store, scan.Options{Extensions: []string{".go"}})
	e.Exclude = []string{outDir}

	for run := 1; run <= 3; run++ {
		rep, err := e.Run(context.Background(), root)
		require.NoError(t, err)
		assert.Equal(t, 2, rep.Directories, "run %d", run)
		assert.Equal(t, 2, rep.Files, "run %d", run)

		keys, err := store.List(context.Background(), "")
		require.NoError(t, err)
		assert.Equal(t, []string{
			"proj/mermaid.md",
			"proj/summary.md",
			"proj/tool/mermaid.md",
			"proj/tool/summary.md",
		}, keys, "run %d", run)
	}
}

func TestRun_OutputRootEqualToTreeRootIsSkipped(t *testing.T) {
	root := filepath.Join(t.TempDir(), "proj")
	writeFile(t, filepath.Join(root, "a.go"), "package a\n")

	store := output.NewFileStore(root)
	e := newEngine(fakeGenerator(), store, scan.Options{Extensions: []string{".go"}})
	e.Exclude = []string{root}

	first, err := e.Run(context.Background(), root)
	require.NoError(t, err)
	second, err := e.Run(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 1, first.Directories)
	assert.Equal(t, 1, second.Directories)
	keys, err := store.List(context.Background(), "proj")
	require.NoError(t, err)
	assert.Equal(t, []string{"proj/mermaid.md", "proj/summary.md"}, keys)
}

func snapshot(t *testing.T, store output.Store) map[string]string {
	t.Helper()
	keys, err := store.List(context.Background(), "")
	require.NoError(t, err)
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		out[k] = read(t, store, k)
	}
	return out
}

type brokenStore struct{ *output.MemoryStore }

func (brokenStore) Put(context.Context, string, []byte) error { return errors.New("read-only") }

func TestRun_SaveFailureContinues(t *testing.T) {
	root := filepath.Join(t.TempDir(), "proj")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))

	gen := &recordingGenerator{}
	rep, err := newEngine(gen, brokenStore{output.NewMemoryStore()}, scan.Options{}).Run(context.Background(), root)
	require.NoError(t, err)

	assert.Len(t, gen.calls, 2)
	assert.Equal(t, 2, rep.SaveFailures)
	assert.Empty(t, rep.Summaries[0].SummaryFilePath)
	assert.Empty(t, rep.Summaries[0].DiagramFilePath)
}

func TestRun_InvalidRoot(t *testing.T) {
	e := newEngine(&recordingGenerator{}, output.NewMemoryStore(), scan.Options{})

	_, err := e.Run(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "f.txt")
	writeFile(t, file, "x")
	_, err = e.Run(context.Background(), file)
	assert.Error(t, err)
}

func TestRun_SymlinkCycle(t *testing.T) {
	root := filepath.Join(t.TempDir(), "proj")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	if err := os.Symlink(root, filepath.Join(root, "sub", "loop")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	gen := &recordingGenerator{}
	rep, err := newEngine(gen, output.NewMemoryStore(), scan.Options{}).Run(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Directories)
}
