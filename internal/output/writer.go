package output

import (
	"context"
	"fmt"
	"path"
	"strings"
)

const (
	DefaultSummaryFileName = "summary.md"
	DefaultDiagramFileName = "mermaid.md"
)

// Saved lists the keys written for one directory.
type Saved struct {
	SummaryPath string
	DiagramPath string
}

// Writer stores the two documents of a directory under its identity.
type Writer struct {
	Store           Store
	SummaryFileName string
	DiagramFileName string
}

func NewWriter(store Store, summaryFile, diagramFile string) *Writer {
	return &Writer{Store: store, SummaryFileName: summaryFile, DiagramFileName: diagramFile}
}

func (w *Writer) summaryFile() string {
	if s := strings.TrimSpace(w.SummaryFileName); s != "" {
		return s
	}
	return DefaultSummaryFileName
}

func (w *Writer) diagramFile() string {
	if s := strings.TrimSpace(w.DiagramFileName); s != "" {
		return s
	}
	return DefaultDiagramFileName
}

// Keys returns the store keys for identity without writing anything.
func (w *Writer) Keys(identity string) Saved {
	return Saved{
		SummaryPath: path.Join(identity, w.summaryFile()),
		DiagramPath: path.Join(identity, w.diagramFile()),
	}
}

// Save writes summary and diagram for identity. Both writes are attempted;
// the returned Saved carries only the keys that were written.
func (w *Writer) Save(ctx context.Context, identity, summary, diagram string) (Saved, error) {
	if w == nil || w.Store == nil {
		return Saved{}, fmt.Errorf("output: writer has no store")
	}
	if strings.TrimSpace(identity) == "" {
		return Saved{}, fmt.Errorf("output: identity is required")
	}
	keys := w.Keys(identity)
	var saved Saved
	var errs []string

	if err := w.Store.Put(ctx, keys.SummaryPath, []byte(summary)); err != nil {
		errs = append(errs, fmt.Sprintf("%s: %v", keys.SummaryPath, err))
	} else {
		saved.SummaryPath = keys.SummaryPath
	}
	if err := w.Store.Put(ctx, keys.DiagramPath, []byte(diagram)); err != nil {
		errs = append(errs, fmt.Sprintf("%s: %v", keys.DiagramPath, err))
	} else {
		saved.DiagramPath = keys.DiagramPath
	}
	if len(errs) > 0 {
		return saved, fmt.Errorf("output: save %s: %s", identity, strings.Join(errs, "; "))
	}
	return saved, nil
}
