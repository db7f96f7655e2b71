package engine_test

import "testing"

func TestBuildContinuedCodeStandalone(t *testing.T) {
	m := newParseManager(t)
	m.Parse("```python {cmd=true}\nprint(1)\n```\n")

	if got := m.BuildContinuedCode("chunk-0"); got != "print(1)" {
		t.Errorf("BuildContinuedCode = %q, want the chunk's own body", got)
	}
}

func TestBuildContinuedCodePreviousSameLanguage(t *testing.T) {
	m := newParseManager(t)
	m.Parse("```python {cmd=true}\na = 1\n```\n" +
		"```sh {cmd=true}\necho skip\n```\n" +
		"```python {cmd=true}\nb = 2\n```\n" +
		"```python {cmd=true continue=true}\nprint(a+b)\n```\n")

	want := "a = 1\nb = 2\nprint(a+b)"
	if got := m.BuildContinuedCode("chunk-3"); got != want {
		t.Errorf("BuildContinuedCode = %q, want %q", got, want)
	}
}

func TestBuildContinuedCodeExplicitTargetChain(t *testing.T) {
	m := newParseManager(t)
	m.Parse("```python {cmd=true id=base}\na = 1\n```\n" +
		"```python {cmd=true id=mid continue=base}\nb = a\n```\n" +
		"```python {cmd=true continue=mid}\nprint(b)\n```\n")

	want := "a = 1\nb = a\nprint(b)"
	if got := m.BuildContinuedCode("chunk-2"); got != want {
		t.Errorf("BuildContinuedCode = %q, want ancestors first, self last: %q", got, want)
	}
}

func TestBuildContinuedCodeCycleTerminates(t *testing.T) {
	m := newParseManager(t)
	m.Parse("```python {cmd=true id=a continue=b}\nbody a\n```\n" +
		"```python {cmd=true id=b continue=a}\nbody b\n```\n")

	got := m.BuildContinuedCode("a")
	if got != "body b\nbody a" {
		t.Errorf("BuildContinuedCode = %q, want the cycle truncated at the revisit", got)
	}
}

func TestBuildContinuedCodeIdempotent(t *testing.T) {
	m := newParseManager(t)
	m.Parse("```python {cmd=true id=base}\na = 1\n```\n" +
		"```python {cmd=true continue=true}\nprint(a)\n```\n")

	first := m.BuildContinuedCode("chunk-1")
	second := m.BuildContinuedCode("chunk-1")
	if first != second {
		t.Errorf("repeated calls differ: %q vs %q", first, second)
	}
}

func TestBuildContinuedCodeMissingTarget(t *testing.T) {
	m := newParseManager(t)
	m.Parse("```python {cmd=true continue=ghost}\nprint(1)\n```\n")

	if got := m.BuildContinuedCode("chunk-0"); got != "print(1)" {
		t.Errorf("BuildContinuedCode = %q, want own body when the target is unknown", got)
	}
}
