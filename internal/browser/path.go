package browser

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/ifpanel/ifpanel-go/internal/domain"
)

// commonUnixPaths are install locations probed before falling back to rod's
// own lookup
var commonUnixPaths = []string{
	"/usr/bin/chromium",
	"/usr/bin/chromium-browser",
	"/usr/bin/google-chrome",
	"/usr/bin/google-chrome-stable",
	"/opt/google/chrome/chrome",
}

var commonDarwinPaths = []string{
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	"/Applications/Chromium.app/Contents/MacOS/Chromium",
	"/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge",
}

// FindExecutable resolves the browser binary to launch. Precedence: the
// configured path, the CHROMIUM_PATH environment variable, common install
// locations for the host OS, PATH lookup, then rod's launcher discovery.
// Fails with domain.ErrBrowserNotFound when nothing is found.
func FindExecutable(configured string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err == nil {
			return configured, nil
		}
		return "", domain.ErrBrowserNotFound
	}

	if env := os.Getenv("CHROMIUM_PATH"); env != "" {
		if _, err := os.Stat(env); err == nil {
			return env, nil
		}
	}

	candidates := commonUnixPaths
	if runtime.GOOS == "darwin" {
		candidates = append(commonDarwinPaths, commonUnixPaths...)
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	for _, name := range []string{"chromium", "chromium-browser", "google-chrome", "chrome"} {
		if path, err := exec.LookPath(name); err == nil {
			return filepath.Clean(path), nil
		}
	}

	if path, exists := launcher.LookPath(); exists && path != "" {
		return path, nil
	}

	return "", domain.ErrBrowserNotFound
}
