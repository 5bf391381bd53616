package version

import (
	"strings"
	"testing"
)

func TestGetInfo(t *testing.T) {
	info := GetInfo()

	if info.Version == "" {
		t.Error("Version should not be empty")
	}
	if info.GoVersion == "" {
		t.Error("GoVersion should not be empty")
	}
	if !strings.Contains(info.Platform, "/") {
		t.Errorf("Platform should be os/arch, got %q", info.Platform)
	}
}

func TestGetVersionString(t *testing.T) {
	versionStr := GetVersionString()

	if !strings.Contains(versionStr, "mailfold") {
		t.Error("Version string should contain 'mailfold'")
	}
	if !strings.Contains(versionStr, Version) {
		t.Errorf("Version string should contain %q, got %q", Version, versionStr)
	}
}

func TestGetDetailedVersionString(t *testing.T) {
	detailed := GetDetailedVersionString()

	for _, want := range []string{
		"mailfold",
		"Git commit:",
		"Build date:",
		"Go version:",
		"Platform:",
	} {
		if !strings.Contains(detailed, want) {
			t.Errorf("Detailed version string should contain %q", want)
		}
	}
}

func TestIsRelease(t *testing.T) {
	// Default build metadata marks a dev build.
	if GitCommit == "unknown" && IsRelease() {
		t.Error("IsRelease should be false without injected build metadata")
	}
}
