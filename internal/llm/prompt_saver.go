package llm

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// PromptSaver implements PromptHook and appends every prompt and reply to
// <Dir>/prompt/<phase>.txt, with inline media redacted.
type PromptSaver struct {
	Dir string
	// Now defaults to time.Now; tests pin it.
	Now func() time.Time

	mu sync.Mutex
}

func (p *PromptSaver) Before(_ context.Context, phase, prompt string) {
	var buf bytes.Buffer
	buf.WriteString("==== ")
	buf.WriteString(p.now().Format(time.RFC3339))
	buf.WriteString(" ====\n")
	buf.WriteString(RedactMedia(prompt))
	buf.WriteString("\n\n")
	p.appendTo(phase, buf.Bytes())
}

func (p *PromptSaver) After(_ context.Context, phase, reply string, err error) {
	var buf bytes.Buffer
	buf.WriteString("[RESPONSE]\n")
	if err != nil {
		buf.WriteString("ERROR: " + err.Error() + "\n\n")
	} else {
		buf.WriteString(RedactMedia(reply))
		buf.WriteString("\n\n")
	}
	p.appendTo(phase, buf.Bytes())
}

func (p *PromptSaver) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *PromptSaver) appendTo(phase string, b []byte) {
	if p == nil || strings.TrimSpace(p.Dir) == "" {
		return
	}
	phase = strings.TrimSpace(phase)
	if phase == "" {
		phase = "unknown"
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	dir := filepath.Join(p.Dir, "prompt")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return
	}
	f, err := os.OpenFile(filepath.Join(dir, phase+".txt"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	_, _ = f.Write(b)
	_ = f.Close()
}
