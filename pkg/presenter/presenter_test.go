package presenter

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectColorMode(t *testing.T) {
	tests := []struct {
		name          string
		noColor       string
		skillkitColor string
		expected      ColorMode
	}{
		{"NO_COLOR set", "1", "always", ColorNever},
		{"SKILLKIT_COLOR always", "", "always", ColorAlways},
		{"SKILLKIT_COLOR force", "", "force", ColorAlways},
		{"SKILLKIT_COLOR never", "", "never", ColorNever},
		{"SKILLKIT_COLOR off", "", "off", ColorNever},
		{"default", "", "", ColorAuto},
		{"unknown value", "", "rainbow", ColorAuto},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NO_COLOR", tt.noColor)
			t.Setenv("SKILLKIT_COLOR", tt.skillkitColor)

			assert.Equal(t, tt.expected, detectColorMode())
		})
	}
}

func TestError(t *testing.T) {
	var errOut bytes.Buffer
	p := NewWithOptions(nil, &errOut, ColorNever)

	p.Error(errors.New("boom"), "lint failed")
	assert.Contains(t, errOut.String(), "[ERROR] lint failed: boom")

	errOut.Reset()
	p.Error(errors.New("boom"), "")
	assert.Equal(t, "[ERROR] boom\n", errOut.String())

	errOut.Reset()
	p.Error(nil, "ignored")
	assert.Empty(t, errOut.String())
}

func TestMessagesRespectQuietMode(t *testing.T) {
	var out bytes.Buffer
	p := NewWithOptions(&out, &bytes.Buffer{}, ColorNever)

	p.Success("installed")
	p.Warning("skipped")
	p.Info("plain")
	assert.Contains(t, out.String(), "✓ installed")
	assert.Contains(t, out.String(), "⚠ skipped")
	assert.Contains(t, out.String(), "plain")

	out.Reset()
	p.SetQuiet(true)
	assert.True(t, p.IsQuiet())
	p.Success("installed")
	p.Warning("skipped")
	p.Info("plain")
	p.Section("Title")
	p.Separator()
	assert.Empty(t, out.String())
}

func TestSection(t *testing.T) {
	var out bytes.Buffer
	p := NewWithOptions(&out, nil, ColorNever)

	p.Section("docker")

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "docker", lines[0])
	assert.Equal(t, "------", lines[1])
}

func TestSummary(t *testing.T) {
	t.Run("clean run", func(t *testing.T) {
		var out bytes.Buffer
		p := NewWithOptions(&out, nil, ColorNever)
		p.Summary(Counts{Skills: 3})
		assert.Equal(t, "✓ 3 skill(s) checked: 0 error(s), 0 warning(s), 0 info\n", out.String())
	})

	t.Run("warnings only", func(t *testing.T) {
		var out bytes.Buffer
		p := NewWithOptions(&out, nil, ColorNever)
		p.Summary(Counts{Skills: 2, Warnings: 1})
		assert.True(t, strings.HasPrefix(out.String(), "⚠ "))
	})

	t.Run("errors shown even when quiet", func(t *testing.T) {
		var out bytes.Buffer
		p := NewWithOptions(&out, nil, ColorNever)
		p.SetQuiet(true)
		p.Summary(Counts{Skills: 1, Errors: 2})
		assert.Contains(t, out.String(), "✗ 1 skill(s) checked: 2 error(s)")
	})

	t.Run("quiet hides clean summary", func(t *testing.T) {
		var out bytes.Buffer
		p := NewWithOptions(&out, nil, ColorNever)
		p.SetQuiet(true)
		p.Summary(Counts{Skills: 1})
		assert.Empty(t, out.String())
	})
}

func TestPrompt(t *testing.T) {
	var out bytes.Buffer
	p := NewWithOptions(&out, nil, ColorNever)
	p.input = strings.NewReader("  yes  \n")

	answer := p.Prompt("Remove skill", "y", "n")

	assert.Equal(t, "yes", answer)
	assert.Contains(t, out.String(), "Remove skill [y/n]: ")
}

func TestGlobalFunctions(t *testing.T) {
	original := defaultPresenter
	t.Cleanup(func() { defaultPresenter = original })

	var out, errOut bytes.Buffer
	defaultPresenter = NewWithOptions(&out, &errOut, ColorNever)

	Error(errors.New("bad"), "ctx")
	Success("ok")
	Warning("careful")
	Info("note")
	Section("Head")
	Separator()
	Summary(Counts{Skills: 1})

	assert.Contains(t, errOut.String(), "[ERROR] ctx: bad")
	for _, want := range []string{"✓ ok", "⚠ careful", "note", "Head", strings.Repeat("-", 60), "1 skill(s) checked"} {
		assert.Contains(t, out.String(), want)
	}

	SetQuiet(true)
	assert.True(t, IsQuiet())
	SetQuiet(false)
	assert.False(t, IsQuiet())
}
