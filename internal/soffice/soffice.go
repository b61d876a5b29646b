// Package soffice drives a headless LibreOffice process to transcode single
// documents. It owns subprocess lifecycle, timeouts and cleanup; which files
// get converted to what is decided elsewhere.
package soffice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// DefaultTimeout bounds one conversion. LibreOffice normally finishes within
// seconds; anything past this is a wedged process.
const DefaultTimeout = 2 * time.Minute

// maxDiagLen caps the stderr excerpt recorded as a failure reason.
const maxDiagLen = 500

// Runner invokes LibreOffice for one document at a time. A single Runner is
// shared by all pool workers; every Convert call is self-contained.
type Runner struct {
	binary  string
	timeout time.Duration
}

// New returns a Runner for the given binary path.
func New(binary string, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Runner{binary: binary, timeout: timeout}
}

// Binary reports the resolved executable path.
func (r *Runner) Binary() string {
	return r.binary
}

// Check verifies that the binary path resolves to an executable file. Used
// by the startup preflight, the health endpoint, the convert endpoints and
// scheduled ticks. Failures wrap ErrBinaryNotFound.
func (r *Runner) Check() error {
	info, err := os.Stat(r.binary)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBinaryNotFound, r.binary)
	}

	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory, not an executable", ErrBinaryNotFound, r.binary)
	}

	if info.Mode()&0o111 == 0 {
		return fmt.Errorf("%w: %s is not executable", ErrBinaryNotFound, r.binary)
	}

	return nil
}

// Convert transcodes src into dst. The target format is taken from dst's
// extension and handed to LibreOffice, which picks the filter itself.
//
// LibreOffice writes <src stem>.<ext> into dst's directory; the produced file
// is renamed onto dst when the names differ (extension case varies between
// versions). On any failure every partial artifact is removed before
// returning, so a failed job never leaves files in the destination tree.
func (r *Runner) Convert(ctx context.Context, src, dst string) error {
	outDir := filepath.Dir(dst)
	stem := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	target := strings.TrimPrefix(strings.ToLower(filepath.Ext(dst)), ".")

	if target == "" {
		return &ConvError{Reason: fmt.Sprintf("destination %s has no extension", dst)}
	}

	// Isolated scratch dir doubles as $HOME (LibreOffice refuses to start
	// for users without a writable home, e.g. nobody in the container) and
	// as the user profile, so concurrent workers don't contend on the
	// profile lock.
	profileDir, err := os.MkdirTemp("", "officeconv-profile-")
	if err != nil {
		return fmt.Errorf("creating scratch profile dir: %w", err)
	}
	defer os.RemoveAll(profileDir)

	tctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(tctx, r.binary,
		"--headless",
		"--invisible",
		"-env:UserInstallation=file://"+profileDir,
		"--convert-to", target,
		"--outdir", outDir,
		src,
	)
	cmd.Env = append(os.Environ(), "HOME="+profileDir)
	cmd.WaitDelay = 5 * time.Second
	setProcessGroup(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	switch {
	case errors.Is(tctx.Err(), context.DeadlineExceeded):
		removePartials(outDir, stem, target)
		return &ConvError{Reason: "timeout"}

	case errors.Is(tctx.Err(), context.Canceled):
		removePartials(outDir, stem, target)
		return &ConvError{Reason: "canceled"}

	case runErr != nil:
		removePartials(outDir, stem, target)

		reason := diagnostic(stderr.String())
		if reason == "" {
			reason = runErr.Error()
		}

		return &ConvError{
			Reason:   reason,
			ExitCode: exitCode(runErr),
			Stderr:   stderr.String(),
		}
	}

	produced := findProduced(outDir, stem, target)
	if produced == "" {
		return &ConvError{
			Reason: nonEmpty(diagnostic(stderr.String()), "no output file produced"),
			Stderr: stderr.String(),
		}
	}

	if produced != dst {
		_ = os.Remove(dst)
		if err := os.Rename(produced, dst); err != nil {
			_ = os.Remove(produced)
			return &ConvError{Reason: fmt.Sprintf("renaming output: %v", err)}
		}
	}

	return nil
}

// findProduced locates the file LibreOffice wrote. The extension case varies
// across versions, so several spellings are probed.
func findProduced(outDir, stem, target string) string {
	for _, ext := range extVariants(target) {
		candidate := filepath.Join(outDir, stem+"."+ext)
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate
		}
	}

	return ""
}

func removePartials(outDir, stem, target string) {
	for _, ext := range extVariants(target) {
		_ = os.Remove(filepath.Join(outDir, stem+"."+ext))
	}
}

func extVariants(ext string) []string {
	lower := strings.ToLower(ext)
	upper := strings.ToUpper(ext)
	capitalized := strings.ToUpper(lower[:1]) + lower[1:]

	return []string{lower, upper, capitalized}
}

// diagnostic flattens stderr into a single truncated line.
func diagnostic(stderr string) string {
	s := strings.TrimSpace(strings.ReplaceAll(stderr, "\n", " "))
	if len(s) > maxDiagLen {
		s = s[:maxDiagLen]
	}

	return s
}

func exitCode(err error) int {
	var exit *exec.ExitError
	if errors.As(err, &exit) {
		return exit.ExitCode()
	}

	return -1
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}

	return fallback
}
