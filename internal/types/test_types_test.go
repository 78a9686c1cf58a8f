package types

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentity(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "work", "proj")
	assert.Equal(t, "proj", Identity(root, root))
	assert.Equal(t, "proj", Identity(root+string(filepath.Separator), root))
	assert.Equal(t, "proj/internal/scan", Identity(root, filepath.Join(root, "internal", "scan")))
}

func TestLastSegment(t *testing.T) {
	assert.Equal(t, "proj", LastSegment("proj"))
	assert.Equal(t, "scan", LastSegment("proj/internal/scan"))
	assert.Equal(t, "sub", LastSegment("proj/sub/"))
}

func TestChildSummaryBrief(t *testing.T) {
	c := ChildSummary{Path: "proj/sub", FilesAggregatedCount: 2, ChildrenProcessedCount: 4, SummaryExcerpt: "x"}
	assert.Equal(t, ChildBrief{Path: "proj/sub", FilesAggregatedCount: 2, SummaryExcerpt: "x"}, c.Brief())
}

func TestDegraded(t *testing.T) {
	assert.False(t, GeneratedOutput{}.Degraded())
	assert.True(t, GeneratedOutput{DiagramFallback: true}.Degraded())
}
