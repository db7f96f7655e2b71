package executor

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/calegray/codedown/internal/model"
	"github.com/calegray/codedown/internal/proc"
)

// RawPDFPrefix marks a typeset result whose stdout carries the raw compiled
// PDF instead of converted SVG, so the caller can distinguish payload kind.
const RawPDFPrefix = "data:application/pdf;base64,"

// conversionStage is one step of the PDF-to-vector pipeline. It returns the
// converted artifact, or an error explaining why the stage is skipped.
type conversionStage struct {
	name    string
	convert func(ctx context.Context, pdfPath, dir string) (string, error)
}

// runTypeset compiles a LaTeX chunk inside a dedicated temp directory and
// converts the result for display. The engine's own failure is terminal; a
// failed or missing conversion tool only degrades the output to the raw PDF
// with the tool failures reported as warnings on stderr. The temp directory
// tree is removed on every exit path.
func (e *Executor) runTypeset(ctx context.Context, chunk *model.Chunk, code, workDir string) proc.Result {
	dir, err := os.MkdirTemp("", "codedown-latex-")
	if err != nil {
		return proc.Result{Stderr: "create temp dir: " + err.Error(), ExitCode: 1}
	}
	defer os.RemoveAll(dir)

	srcPath := filepath.Join(dir, "input.tex")
	if err := os.WriteFile(srcPath, []byte(code), 0o600); err != nil {
		return proc.Result{Stderr: "write source: " + err.Error(), ExitCode: 1}
	}

	engine := chunk.Attrs.LaTeXEngine
	if engine == "" {
		engine = e.cfg.LaTeXEngine
	}

	res := e.run(ctx, proc.Spec{
		Command: engine,
		Args:    []string{"-interaction=nonstopmode", "-halt-on-error", "-output-directory", dir, srcPath},
		Dir:     workDir,
		Timeout: e.cfg.Timeout,
	})
	if res.ExitCode != 0 {
		return res
	}

	pdfPath := filepath.Join(dir, "input.pdf")

	var skips []string
	for _, stage := range e.conversionStages() {
		svg, err := stage.convert(ctx, pdfPath, dir)
		if err != nil {
			skips = append(skips, fmt.Sprintf("%s: %v", stage.name, err))
			continue
		}
		return proc.Result{
			Stdout: applySVGTransforms(svg, chunk.Attrs.LaTeXZoom, chunk.Attrs.LaTeXWidth, chunk.Attrs.LaTeXHeight),
			Stderr: res.Stderr,
		}
	}

	// All conversion stages skipped: fall back to the raw PDF artifact and
	// downgrade the tool failures to a warning.
	raw, err := os.ReadFile(pdfPath)
	if err != nil {
		return proc.Result{
			Stderr:   "no output artifact produced: " + strings.Join(skips, "; "),
			ExitCode: 1,
		}
	}
	return proc.Result{
		Stdout: RawPDFPrefix + base64.StdEncoding.EncodeToString(raw),
		Stderr: "vector conversion unavailable: " + strings.Join(skips, "; "),
	}
}

// conversionStages lists the vector converters in preference order.
func (e *Executor) conversionStages() []conversionStage {
	return []conversionStage{
		{
			name: "pdftocairo",
			convert: func(ctx context.Context, pdfPath, dir string) (string, error) {
				out := filepath.Join(dir, "output.svg")
				res := e.run(ctx, proc.Spec{
					Command: "pdftocairo",
					Args:    []string{"-svg", pdfPath, out},
					Timeout: e.cfg.Timeout,
				})
				if res.ExitCode != 0 {
					return "", fmt.Errorf("exit %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
				}
				return readArtifact(out)
			},
		},
		{
			name: "pdf2svg",
			convert: func(ctx context.Context, pdfPath, dir string) (string, error) {
				out := filepath.Join(dir, "output.svg")
				res := e.run(ctx, proc.Spec{
					Command: "pdf2svg",
					Args:    []string{pdfPath, out},
					Timeout: e.cfg.Timeout,
				})
				if res.ExitCode != 0 {
					return "", fmt.Errorf("exit %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
				}
				return readArtifact(out)
			},
		},
	}
}

func readArtifact(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

var svgRootRe = regexp.MustCompile(`<svg\b`)

// applySVGTransforms injects zoom, width, and height attributes into the
// root element of the vector output.
func applySVGTransforms(svg string, zoom float64, width, height string) string {
	var attrs strings.Builder
	if zoom != 0 && zoom != model.DefaultLaTeXZoom {
		fmt.Fprintf(&attrs, ` style="zoom:%g;"`, zoom)
	}
	if width != "" {
		fmt.Fprintf(&attrs, ` width=%q`, width)
	}
	if height != "" {
		fmt.Fprintf(&attrs, ` height=%q`, height)
	}
	if attrs.Len() == 0 {
		return svg
	}

	loc := svgRootRe.FindStringIndex(svg)
	if loc == nil {
		return svg
	}
	return svg[:loc[1]] + attrs.String() + svg[loc[1]:]
}
