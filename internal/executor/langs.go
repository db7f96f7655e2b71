package executor

// fallbackExtension is used for languages missing from the extension table.
const fallbackExtension = ".txt"

// extensions maps a language token to the temp-file extension for its source.
var extensions = map[string]string{
	"python":     ".py",
	"python3":    ".py",
	"py":         ".py",
	"javascript": ".js",
	"js":         ".js",
	"node":       ".js",
	"typescript": ".ts",
	"go":         ".go",
	"ruby":       ".rb",
	"rb":         ".rb",
	"perl":       ".pl",
	"php":        ".php",
	"r":          ".r",
	"julia":      ".jl",
	"lua":        ".lua",
	"haskell":    ".hs",
	"sh":         ".sh",
	"bash":       ".sh",
	"zsh":        ".sh",
	"shell":      ".sh",
	"fish":       ".fish",
	"powershell": ".ps1",
	"latex":      ".tex",
	"tex":        ".tex",
	"erd":        ".erd",
	"dot":        ".dot",
}

func extensionFor(language string) string {
	if ext, ok := extensions[language]; ok {
		return ext
	}
	return fallbackExtension
}

// isPythonFamily reports whether the language runs under a Python
// interpreter, which is what the matplotlib capture pipeline requires.
func isPythonFamily(language string) bool {
	switch language {
	case "python", "python3", "py":
		return true
	}
	return false
}

// isTypesetLanguage reports whether the language is routed through the LaTeX
// compilation pipeline.
func isTypesetLanguage(language string) bool {
	return language == "latex" || language == "tex"
}

// isShellLanguage reports whether cmd=true should defer to the configured
// default shell for this language.
func isShellLanguage(language string) bool {
	switch language {
	case "sh", "bash", "zsh", "shell":
		return true
	}
	return false
}
