package model

// CommandKind discriminates the three states of a chunk's cmd attribute.
type CommandKind int

const (
	// CommandDisabled marks a block as non-executable. Blocks with a
	// disabled command are excluded from the chunk set entirely.
	CommandDisabled CommandKind = iota
	// CommandUseLanguage runs the chunk with its language token as the
	// command name (cmd=true).
	CommandUseLanguage
	// CommandExplicit runs the chunk with an explicitly named command.
	CommandExplicit
)

// CommandSpec is the parsed cmd attribute: disabled, use-language, or an
// explicit command name.
type CommandSpec struct {
	Kind CommandKind
	Name string // set only for CommandExplicit
}

// ParseCommandSpec interprets a cmd attribute value. The literal strings
// "true" and "false" are booleans; anything else is an explicit command.
func ParseCommandSpec(v string) CommandSpec {
	switch v {
	case "true":
		return CommandSpec{Kind: CommandUseLanguage}
	case "false", "":
		return CommandSpec{Kind: CommandDisabled}
	default:
		return CommandSpec{Kind: CommandExplicit, Name: v}
	}
}

// ContinueKind discriminates the three states of a chunk's continue attribute.
type ContinueKind int

const (
	// ContinueNone means the chunk stands alone.
	ContinueNone ContinueKind = iota
	// ContinuePrevious links the chunk to every preceding chunk of the
	// same language (continue=true).
	ContinuePrevious
	// ContinueTarget links the chunk to the chunk with the named id.
	ContinueTarget
)

// ContinueSpec is the parsed continue attribute.
type ContinueSpec struct {
	Kind   ContinueKind
	Target string // set only for ContinueTarget
}

// ParseContinueSpec interprets a continue attribute value.
func ParseContinueSpec(v string) ContinueSpec {
	switch v {
	case "true":
		return ContinueSpec{Kind: ContinuePrevious}
	case "false", "":
		return ContinueSpec{Kind: ContinueNone}
	default:
		return ContinueSpec{Kind: ContinueTarget, Target: v}
	}
}

// OutputFormat values accepted by the output attribute.
const (
	OutputText     = "text"
	OutputHTML     = "html"
	OutputMarkdown = "markdown"
	OutputImage    = "image"
	OutputNone     = "none"
)

// ValidOutputFormat reports whether s is one of the five output formats.
func ValidOutputFormat(s string) bool {
	switch s {
	case OutputText, OutputHTML, OutputMarkdown, OutputImage, OutputNone:
		return true
	}
	return false
}

// DefaultLaTeXZoom is the zoom applied to compiled LaTeX output when the
// latex_zoom attribute is absent or unparseable.
const DefaultLaTeXZoom = 1.0

// ChunkAttributes is the parsed per-chunk configuration from the info-string
// attribute block. Zero-value fields are meaningful; use DefaultAttributes to
// get a record with all defaults applied.
type ChunkAttributes struct {
	Cmd          CommandSpec
	Output       string // one of the OutputFormat constants
	Args         []string
	Stdin        bool
	Hide         bool
	Continue     ContinueSpec
	ID           string
	CSSClass     string
	Element      string
	RunOnSave    bool
	ModifySource bool
	PlotCapture  bool
	LaTeXZoom    float64
	LaTeXWidth   string
	LaTeXHeight  string
	LaTeXEngine  string
}

// DefaultAttributes returns a ChunkAttributes with every field at its default.
func DefaultAttributes() ChunkAttributes {
	return ChunkAttributes{
		Cmd:       CommandSpec{Kind: CommandDisabled},
		Output:    OutputText,
		Continue:  ContinueSpec{Kind: ContinueNone},
		LaTeXZoom: DefaultLaTeXZoom,
	}
}
