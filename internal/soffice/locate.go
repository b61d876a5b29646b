package soffice

import (
	"os"
	"os/exec"
)

// DefaultBinary is where the Docker image installs LibreOffice.
const DefaultBinary = "/usr/bin/libreoffice"

// wellKnownPaths are checked before falling back to $PATH. Covers the Linux
// image and local development on macOS.
var wellKnownPaths = []string{
	"/usr/bin/libreoffice",
	"/usr/bin/soffice",
	"/Applications/LibreOffice.app/Contents/MacOS/soffice",
}

// Locate resolves the LibreOffice binary path. An explicitly configured path
// always wins, even when it does not exist, so that health checks report the
// operator's intent. Otherwise well-known locations and $PATH are probed;
// when nothing is found the default path is returned and Check will fail on
// it.
func Locate(configured string) string {
	if configured != "" {
		return configured
	}

	for _, p := range wellKnownPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	for _, name := range []string{"libreoffice", "soffice"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}

	return DefaultBinary
}
