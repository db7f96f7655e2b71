package executor

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/calegray/codedown/internal/model"
	"github.com/calegray/codedown/internal/proc"
	"github.com/oklog/ulid/v2"
)

// plotPreamble forces a non-interactive rendering backend before any user
// import of pyplot can bind a display.
const plotPreamble = "import matplotlib\nmatplotlib.use('Agg')\n"

// runPlotCapture wraps the user's Python code so that the last figure is
// saved to a temp image, base64-encoded, and printed between unique sentinel
// markers; the payload between the sentinels then replaces stdout. Both the
// generated source file and the image artifact are removed on every path.
func (e *Executor) runPlotCapture(ctx context.Context, command string, chunk *model.Chunk, code, workDir string, logLine func(string)) proc.Result {
	img, err := os.CreateTemp("", "codedown-plot-*.png")
	if err != nil {
		return proc.Result{Stderr: "create plot file: " + err.Error(), ExitCode: 1}
	}
	imgPath := img.Name()
	img.Close()
	defer os.Remove(imgPath)

	sentinel := "codedown-plot-" + strings.ToLower(ulid.Make().String())

	var b strings.Builder
	b.WriteString(plotPreamble)
	b.WriteString(code)
	b.WriteString("\n")
	b.WriteString(plotPostamble(imgPath, sentinel))

	res := e.runTempFile(ctx, command, chunk.Attrs.Args, b.String(), extensionFor(chunk.Language), workDir, logLine)

	if payload, ok := extractBetween(res.Stdout, sentinel); ok {
		res.Stdout = payload
	}
	return res
}

// plotPostamble saves the current figure and prints its base64 encoding
// wrapped in the sentinel.
func plotPostamble(imgPath, sentinel string) string {
	return fmt.Sprintf(`
import base64 as __cd_base64
import matplotlib.pyplot as __cd_pyplot
__cd_pyplot.savefig(%q)
with open(%q, "rb") as __cd_img:
    print(%q + __cd_base64.b64encode(__cd_img.read()).decode("ascii") + %q)
`, imgPath, imgPath, sentinel, sentinel)
}

// extractBetween returns the substring between the first two occurrences of
// sentinel in s.
func extractBetween(s, sentinel string) (string, bool) {
	start := strings.Index(s, sentinel)
	if start < 0 {
		return "", false
	}
	rest := s[start+len(sentinel):]
	end := strings.Index(rest, sentinel)
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}
