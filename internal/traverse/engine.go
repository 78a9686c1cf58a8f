// Package traverse walks a project tree bottom-up and produces the summary
// and diagram documents of every directory, children before parents.
package traverse

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"constellation/internal/generate"
	"constellation/internal/output"
	"constellation/internal/scan"
	t "constellation/internal/types"
)

// summaryExcerptChars bounds the child summary handed to a parent prompt.
const summaryExcerptChars = 1500

// Engine runs one analysis. All collaborators are injected; the engine keeps
// no state between runs.
type Engine struct {
	Scan            scan.Options
	Generator       generate.Generator
	Writer          *output.Writer
	DiagramFileName string
	// Exclude lists directories (the output root, the prompt log dir) that
	// are never analyzed, even when they sit inside the tree.
	Exclude []string
	Logger  *log.Logger
}

// Report describes a finished run.
type Report struct {
	RunID string
	Root  string
	// Summaries is headed by the root's summary followed by the flattened
	// summaries of its subtree.
	Summaries    []t.ChildSummary
	Directories  int
	Files        int
	SaveFailures int
	Fallbacks    int
	Duration     time.Duration
}

// run is the per-invocation state threaded through the recursion.
type run struct {
	root    string
	exclude []string
	report  *Report
	visited map[string]struct{}
}

// Run processes root and every non-ignored directory below it. It only fails
// when root is not a readable directory; every node-local failure degrades to
// a logged fallback.
func (e *Engine) Run(ctx context.Context, root string) (Report, error) {
	if e.Generator == nil || e.Writer == nil {
		return Report{}, fmt.Errorf("traverse: generator and writer are required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return Report{}, fmt.Errorf("traverse: resolve root: %w", err)
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return Report{}, fmt.Errorf("traverse: root: %w", err)
	}
	if !fi.IsDir() {
		return Report{}, fmt.Errorf("traverse: root %s is not a directory", abs)
	}

	start := time.Now()
	rep := Report{RunID: ulid.Make().String(), Root: abs}
	ctx = output.WithRunID(ctx, rep.RunID)
	e.logger().Printf("traverse: run %s over %s", rep.RunID, abs)

	r := &run{root: abs, exclude: excludeList(e.Exclude, abs), report: &rep, visited: map[string]struct{}{}}
	rep.Summaries = e.visit(ctx, r, abs)
	rep.Duration = time.Since(start)
	return rep, nil
}

// visit processes dir after all of its subdirectories and returns dir's own
// summary followed by the summaries of its whole subtree.
func (e *Engine) visit(ctx context.Context, r *run, dir string) []t.ChildSummary {
	if dir != r.root && scan.IsIgnored(dir, e.Scan.Ignore, r.root) {
		e.logger().Printf("traverse: skip ignored %s", t.Identity(r.root, dir))
		return nil
	}
	if dir != r.root && r.excluded(dir) {
		e.logger().Printf("traverse: skip output directory %s", t.Identity(r.root, dir))
		return nil
	}
	if !r.enter(dir) {
		e.logger().Printf("traverse: skip %s: already visited through a link", t.Identity(r.root, dir))
		return nil
	}

	var processed []t.ChildSummary
	var briefs []t.ChildBrief
	for _, sub := range e.subdirectories(r, dir) {
		got := e.visit(ctx, r, sub)
		if len(got) == 0 {
			continue
		}
		briefs = append(briefs, got[0].Brief())
		processed = append(processed, got...)
	}

	identity := t.Identity(r.root, dir)
	agg := scan.Aggregate(dir, e.Scan, r.root)

	gen := e.Generator.Generate(ctx, identity, agg.ConcatenatedContent, briefs)
	diagram := generate.EnsureMermaidFence(gen.Diagram)
	if !gen.DiagramFallback {
		diagram = generate.EnsureChildLinks(diagram, identity, briefs, e.diagramFileName())
	}

	saved, err := e.Writer.Save(ctx, identity, gen.Summary, diagram)
	if err != nil {
		e.logger().Printf("traverse: %v", err)
		r.report.SaveFailures++
	}

	r.report.Directories++
	r.report.Files += len(agg.Files)
	if gen.Degraded() {
		r.report.Fallbacks++
	}

	self := t.ChildSummary{
		Path:                   identity,
		FilesAggregatedCount:   len(agg.Files),
		ChildrenProcessedCount: len(processed),
		SummaryFilePath:        saved.SummaryPath,
		DiagramFilePath:        saved.DiagramPath,
		SummaryExcerpt:         generate.Excerpt(gen.Summary, summaryExcerptChars),
	}
	e.logger().Printf("traverse: done %s (%d files, %d below)", identity, self.FilesAggregatedCount, self.ChildrenProcessedCount)
	return append([]t.ChildSummary{self}, processed...)
}

// subdirectories lists the directories directly inside dir in listing order,
// following symlinks.
func (e *Engine) subdirectories(r *run, dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		e.logger().Printf("traverse: list %s: %v", t.Identity(r.root, dir), err)
		return nil
	}
	var out []string
	for _, ent := range entries {
		p := filepath.Join(dir, ent.Name())
		if ent.IsDir() {
			out = append(out, p)
			continue
		}
		if ent.Type()&os.ModeSymlink != 0 {
			if fi, err := os.Stat(p); err == nil && fi.IsDir() {
				out = append(out, p)
			}
		}
	}
	return out
}

// enter records dir by its resolved path; it returns false for a directory
// already reached through a symlink cycle.
func (r *run) enter(dir string) bool {
	key := dir
	if real, err := filepath.EvalSymlinks(dir); err == nil {
		key = real
	}
	if _, seen := r.visited[key]; seen {
		return false
	}
	r.visited[key] = struct{}{}
	return true
}

// excluded reports whether dir equals or sits below an excluded directory.
func (r *run) excluded(dir string) bool {
	if len(r.exclude) == 0 {
		return false
	}
	candidates := []string{filepath.Clean(dir)}
	if real, err := filepath.EvalSymlinks(dir); err == nil {
		candidates = append(candidates, real)
	}
	for _, ex := range r.exclude {
		for _, c := range candidates {
			if c == ex || strings.HasPrefix(c, ex+string(filepath.Separator)) {
				return true
			}
		}
	}
	return false
}

// excludeList resolves paths and, for an output root equal to the tree root,
// also excludes the mirrored "<root>/<rootName>" it writes into.
func excludeList(paths []string, root string) []string {
	out := absPaths(paths)
	for _, ex := range out {
		if root == ex {
			out = append(out, filepath.Join(ex, filepath.Base(root)))
		}
	}
	return out
}

// absPaths makes every non-empty entry absolute, and adds its resolved form
// when it exists.
func absPaths(paths []string) []string {
	var out []string
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		out = append(out, abs)
		if real, err := filepath.EvalSymlinks(abs); err == nil && real != abs {
			out = append(out, real)
		}
	}
	return out
}

func (e *Engine) diagramFileName() string {
	if e.DiagramFileName != "" {
		return e.DiagramFileName
	}
	if e.Writer != nil && e.Writer.DiagramFileName != "" {
		return e.Writer.DiagramFileName
	}
	return generate.DefaultDiagramFileName
}

func (e *Engine) logger() *log.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return log.Default()
}
