package version

import (
	"testing"

	"github.com/fatih/color"
)

func TestVersion_DefaultValues(t *testing.T) {
	if Version == "" {
		t.Error("Version should have a default value")
	}
}

func TestColored(t *testing.T) {
	prevNoColor, prevVersion := color.NoColor, Version
	t.Cleanup(func() {
		color.NoColor = prevNoColor
		Version = prevVersion
	})

	color.NoColor = true
	Version = "1.2.3-rc1"
	if got := Colored(); got != "1.2.3-rc1" {
		t.Errorf("Colored() = %q, want %q", got, "1.2.3-rc1")
	}

	color.NoColor = false
	Version = "1.2.3"
	got := Colored()
	if got == "1.2.3" {
		t.Errorf("Colored() = %q, want escape sequences", got)
	}
}
