package archange

import (
	"strings"
	"testing"
)

func TestGetVersion(t *testing.T) {
	info := GetVersion()
	if info.Version != Version {
		t.Errorf("expected version %q, got %q", Version, info.Version)
	}
	if info.GoVersion == "" {
		t.Error("expected go version to be populated")
	}
	if !strings.Contains(info.Platform, "/") {
		t.Errorf("expected os/arch platform, got %q", info.Platform)
	}
}

func TestInfoString(t *testing.T) {
	s := GetVersion().String()
	if !strings.HasPrefix(s, "Archange "+Version) {
		t.Errorf("unexpected version string: %q", s)
	}
}
