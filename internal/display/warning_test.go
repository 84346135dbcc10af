package display

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func init() {
	color.NoColor = true
}

func TestDisplayWarning_TitleOnly(t *testing.T) {
	var buf bytes.Buffer
	w := Warning{Title: "Configuration Missing"}

	w.Display(&buf)

	if buf.String() != "Warning: Configuration Missing\n" {
		t.Errorf("Unexpected output %q", buf.String())
	}
}

func TestDisplayWarning_WithMessage(t *testing.T) {
	var buf bytes.Buffer
	w := Warning{
		Title:   "Deprecated Feature",
		Message: "This feature will be removed",
	}

	w.Display(&buf)

	if !strings.Contains(buf.String(), "    This feature will be removed\n") {
		t.Error("Expected indented message in output")
	}
}

func TestDisplayWarning_WithKeys(t *testing.T) {
	tests := []struct {
		name     string
		keys     []string
		wantText string
	}{
		{"single key", []string{"newrelic.license"}, "Affected key:"},
		{"multiple keys", []string{"newrelic.license", "newrelic.appname"}, "Affected keys:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			Warning{Title: "t", Keys: tt.keys}.Display(&buf)

			output := buf.String()
			if !strings.Contains(output, tt.wantText) {
				t.Errorf("Expected %q in output %q", tt.wantText, output)
			}
			for _, key := range tt.keys {
				if !strings.Contains(output, key) {
					t.Errorf("Expected key %q in output", key)
				}
			}
			if !strings.Contains(output, "      1. "+tt.keys[0]) {
				t.Error("Expected numbered key list")
			}
		})
	}
}

func TestWarnUnreplacedKeys(t *testing.T) {
	var buf bytes.Buffer
	WarnUnreplacedKeys([]string{"newrelic.appname"}).Display(&buf)

	output := buf.String()
	for _, want := range []string{"Placeholder not found", "newrelic.appname", "Suggestion:"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %q in output %q", want, output)
		}
	}
}
