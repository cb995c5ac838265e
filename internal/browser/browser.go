package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// defaultLaunchTimeout bounds how long the launcher command may run.
const defaultLaunchTimeout = 10 * time.Second

// ErrUnsupportedPlatform is returned when no launcher is known for the
// running operating system and BROWSER is unset.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// System opens URLs with the operating system's launcher.
type System struct {
	goos    string
	getenv  func(string) string
	run     func(ctx context.Context, name string, args ...string) error
	timeout time.Duration
}

// NewSystem returns a launcher for the running platform.
func NewSystem() *System {
	return &System{
		goos:    runtime.GOOS,
		getenv:  os.Getenv,
		run:     runCommand,
		timeout: defaultLaunchTimeout,
	}
}

// Open launches the browser and waits for the launcher to exit.
//
// The launcher normally hands the URL to a running browser and exits at
// once; it is killed if it is still running after the launch timeout.
func (s *System) Open(ctx context.Context, url string) error {
	name, args, err := s.Command(url)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.run(ctx, name, args...); err != nil {
		return fmt.Errorf("failed to open browser with %s: %w", name, err)
	}
	return nil
}

// Command returns the program and arguments used to open url.
//
// A BROWSER environment variable takes precedence. It may list several
// commands separated by the path list separator; the first is used. A "%s" in
// the command is replaced by the URL, otherwise the URL is appended.
func (s *System) Command(url string) (string, []string, error) {
	if name, args, ok := browserFromEnv(s.getenv("BROWSER"), url); ok {
		return name, args, nil
	}

	switch s.goos {
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}, nil
	case "darwin":
		return "open", []string{url}, nil
	case "linux", "freebsd", "openbsd", "netbsd", "dragonfly", "solaris", "illumos":
		return "xdg-open", []string{url}, nil
	default:
		return "", nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, s.goos)
	}
}

// browserFromEnv parses the BROWSER variable.
func browserFromEnv(value, url string) (string, []string, bool) {
	for _, entry := range filepath.SplitList(value) {
		fields := strings.Fields(entry)
		if len(fields) == 0 {
			continue
		}

		substituted := false
		for i, f := range fields[1:] {
			if strings.Contains(f, "%s") {
				fields[i+1] = strings.ReplaceAll(f, "%s", url)
				substituted = true
			}
		}
		if !substituted {
			fields = append(fields, url)
		}
		return fields[0], fields[1:], true
	}
	return "", nil, false
}

func runCommand(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}
