package engine

import (
	"fmt"
	"strings"

	"github.com/calegray/codedown/internal/attr"
	"github.com/calegray/codedown/internal/model"
)

// minFenceLen is the minimum run of fence characters opening a block.
const minFenceLen = 3

// Parse scans the document for fenced code regions, keeps the ones whose
// attributes mark them executable, and replaces the manager's chunk set with
// the result. It returns the new chunk ids in document order.
//
// A fence opens with three or more identical backticks or tildes at the
// start of a line, followed by an info string of the form
// "<language> [{<attributes>}]", and closes with at least as many of the
// same character alone on a line (trailing whitespace ignored). The chunk
// body is the verbatim text between the fences.
func (m *Manager) Parse(text string) []string {
	lines := strings.Split(text, "\n")

	chunks := make(map[string]*model.Chunk)
	var order []string
	n := 0 // counter over executable blocks only

	for i := 0; i < len(lines); i++ {
		fenceChar, fenceLen := openingFence(lines[i])
		if fenceLen < minFenceLen {
			continue
		}

		info := strings.TrimSpace(lines[i][fenceLen:])
		openLine := i

		// Collect the body up to the closing fence. An unterminated fence
		// runs to the end of the document.
		var body []string
		j := i + 1
		for ; j < len(lines); j++ {
			if closesFence(lines[j], fenceChar, fenceLen) {
				break
			}
			body = append(body, lines[j])
		}
		i = j

		language, attrText := splitInfoString(info)
		attrs := attr.Parse(attrText)
		if attrs.Cmd.Kind == model.CommandDisabled {
			// An ordinary code block, not a chunk.
			continue
		}

		id := attrs.ID
		if id == "" {
			id = fmt.Sprintf("chunk-%d", n)
		}
		n++

		chunks[id] = &model.Chunk{
			ID:         id,
			Language:   language,
			Code:       strings.Join(body, "\n"),
			Attrs:      attrs,
			SourceLine: openLine,
			Status:     model.StatusIdle,
		}
		order = append(order, id)
	}

	m.mu.Lock()
	m.chunks = chunks
	m.order = order
	m.mu.Unlock()

	ids := make([]string, len(order))
	copy(ids, order)
	return ids
}

// FindChunkAtLine returns the chunk whose opening fence is the closest one
// at or above the given zero-based line.
func (m *Manager) FindChunkAtLine(line int) (*model.Chunk, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var best *model.Chunk
	for _, id := range m.order {
		c := m.chunks[id]
		if c.SourceLine <= line && (best == nil || c.SourceLine > best.SourceLine) {
			best = c
		}
	}
	if best == nil {
		return nil, false
	}
	cp := *best
	return &cp, true
}

// openingFence reports the fence character and run length when the line
// starts a fenced block, or a zero length otherwise.
func openingFence(line string) (byte, int) {
	if len(line) == 0 || (line[0] != '`' && line[0] != '~') {
		return 0, 0
	}
	c := line[0]
	i := 0
	for i < len(line) && line[i] == c {
		i++
	}
	return c, i
}

// closesFence reports whether the line closes a fence opened with openLen
// characters of c: a run of at least openLen, alone on the line ignoring
// trailing whitespace.
func closesFence(line string, c byte, openLen int) bool {
	i := 0
	for i < len(line) && line[i] == c {
		i++
	}
	if i < openLen {
		return false
	}
	return strings.TrimRight(line[i:], " \t\r") == ""
}

// splitInfoString separates the language token from the optional
// brace-wrapped attribute block.
func splitInfoString(info string) (language, attrText string) {
	if idx := strings.IndexByte(info, '{'); idx >= 0 {
		return strings.TrimSpace(info[:idx]), strings.TrimSpace(info[idx:])
	}
	return strings.TrimSpace(info), ""
}
