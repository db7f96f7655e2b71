package engine

import (
	"strings"

	"github.com/calegray/codedown/internal/model"
)

// BuildContinuedCode resolves the continuation chain for the chunk with the
// given id and returns the combined source, ancestors first and the chunk's
// own body last. A chunk without a continuation returns its body unchanged.
// Cycles in explicit targets are truncated at the first revisited id.
//
// The combined code is used only by the one-shot executor path; session
// sends carry a chunk's own body because the interpreter retains state.
func (m *Manager) BuildContinuedCode(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.chunks[id]
	if !ok {
		return ""
	}
	return strings.Join(m.resolveChain(c, make(map[string]bool)), "\n")
}

// resolveChain walks the continuation relationship depth-first, pre-order:
// ancestor code before self. visited guards against cycles.
func (m *Manager) resolveChain(c *model.Chunk, visited map[string]bool) []string {
	if visited[c.ID] {
		return nil
	}
	visited[c.ID] = true

	switch c.Attrs.Continue.Kind {
	case model.ContinueTarget:
		var parts []string
		if target, ok := m.chunks[c.Attrs.Continue.Target]; ok {
			parts = m.resolveChain(target, visited)
		}
		return append(parts, c.Code)

	case model.ContinuePrevious:
		var parts []string
		for _, prevID := range m.order {
			if prevID == c.ID {
				break
			}
			prev := m.chunks[prevID]
			if prev.Language == c.Language && !visited[prev.ID] {
				visited[prev.ID] = true
				parts = append(parts, prev.Code)
			}
		}
		return append(parts, c.Code)

	default:
		return []string{c.Code}
	}
}
