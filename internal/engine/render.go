package engine

import (
	"html"
	"strings"

	"github.com/calegray/codedown/internal/model"
)

// RenderOutput turns captured process output into a presentation fragment.
//
// When imageCapture is set and stdout is not already markup, stdout is taken
// as a base64 image payload. Otherwise the format attribute selects the
// primary rendering: text is HTML-escaped inside a preformatted block, html
// passes through verbatim, markdown is wrapped in a container for downstream
// post-processing, image is wrapped as a base64 image tag, and none produces
// nothing. Empty stdout renders no primary block for the text and image
// formats. Non-empty stderr always appends an escaped error block after the
// primary output, regardless of format.
func RenderOutput(stdout, stderr, format string, imageCapture bool) string {
	var b strings.Builder

	switch {
	case imageCapture && stdout != "" && !looksLikeMarkup(stdout):
		b.WriteString(imageTag(stdout))
	case format == model.OutputHTML:
		b.WriteString(stdout)
	case format == model.OutputMarkdown:
		b.WriteString(`<div class="codedown-markdown">`)
		b.WriteString(stdout)
		b.WriteString(`</div>`)
	case format == model.OutputImage:
		if stdout != "" {
			b.WriteString(imageTag(stdout))
		}
	case format == model.OutputNone:
	default: // text
		if stdout != "" {
			b.WriteString(`<pre class="codedown-output">`)
			b.WriteString(html.EscapeString(stdout))
			b.WriteString(`</pre>`)
		}
	}

	if stderr != "" {
		b.WriteString(renderErrorBlock(stderr))
	}

	return b.String()
}

// renderErrorBlock wraps text in an escaped preformatted error block.
func renderErrorBlock(text string) string {
	return `<pre class="codedown-error">` + html.EscapeString(text) + `</pre>`
}

// imageTag wraps a payload as an inline image. Payloads that already carry a
// data URI prefix (the raw-PDF compilation fallback does) are used as-is;
// anything else is assumed to be base64 PNG data.
func imageTag(payload string) string {
	src := payload
	if !strings.HasPrefix(payload, "data:") {
		src = "data:image/png;base64," + payload
	}
	return `<img src="` + src + `" />`
}

// looksLikeMarkup reports whether stdout already appears to be an HTML or
// SVG fragment rather than a raw image payload.
func looksLikeMarkup(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), "<")
}
