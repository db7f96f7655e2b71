package session

import (
	"fmt"
	"regexp"
)

// interpreters maps a language token to the command that starts its
// interactive interpreter. Languages missing from the table fall back to
// running the language token itself.
var interpreters = map[string][]string{
	"python":  {"python3", "-i", "-q", "-u"},
	"python3": {"python3", "-i", "-q", "-u"},
	"py":      {"python3", "-i", "-q", "-u"},
	"node":    {"node", "-i"},
	"js":      {"node", "-i"},
	"sh":      {"sh"},
	"bash":    {"bash"},
	"zsh":     {"zsh"},
	"shell":   {"sh"},
	"r":       {"R", "--no-save", "--quiet"},
	"julia":   {"julia", "-i", "-q"},
}

// interpreterFor returns the command and arguments that start an
// interactive interpreter for the language.
func interpreterFor(language string) (string, []string) {
	if inv, ok := interpreters[language]; ok {
		return inv[0], inv[1:]
	}
	return language, nil
}

// initCode returns code written to a freshly spawned interpreter before any
// send. Python's REPL writes its prompts to stderr when stdin is a pipe,
// which would trip the non-empty-stderr failure rule on every send;
// emptying ps1/ps2 silences them for the session's lifetime.
func initCode(language string) string {
	switch language {
	case "python", "python3", "py":
		return "import sys; sys.ps1 = ''; sys.ps2 = ''\n"
	default:
		return ""
	}
}

// pythonPrompts matches runs of REPL prompt strings. The startup prompt can
// still land on stderr before the ps1/ps2 reset takes effect.
var pythonPrompts = regexp.MustCompile(`(>>> |\.\.\. )+`)

// scrubPromptNoise removes interpreter prompt strings that leak onto
// stderr, leaving genuine diagnostics intact.
func scrubPromptNoise(language, stderr string) string {
	switch language {
	case "python", "python3", "py":
		return pythonPrompts.ReplaceAllString(stderr, "")
	default:
		return stderr
	}
}

// echoTrailer builds the language-appropriate statement that makes the
// interpreter print the delimiter once the preceding code has run. The
// default is shell-style echo.
func echoTrailer(language, delimiter string) string {
	switch language {
	case "python", "python3", "py":
		return fmt.Sprintf("\nprint(%q)\n", delimiter)
	case "node", "js", "javascript":
		return fmt.Sprintf("\nconsole.log(%q)\n", delimiter)
	case "r":
		return fmt.Sprintf("\ncat(%q, \"\\n\", sep=\"\")\n", delimiter)
	case "julia":
		return fmt.Sprintf("\nprintln(%q)\n", delimiter)
	default:
		return "\necho " + delimiter + "\n"
	}
}
