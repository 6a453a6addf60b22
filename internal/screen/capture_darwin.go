//go:build darwin

package screen

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	apperrors "github.com/statuswatch/statuswatch/internal/errors"
	"github.com/statuswatch/statuswatch/internal/geom"
)

// darwinCapturer shells out to the native screencapture command.
type darwinCapturer struct {
	tempDir string
}

// New creates the platform screen capturer.
func New() Capturer {
	tmpDir, err := os.MkdirTemp("", "statuswatch-screen-*")
	if err != nil {
		slog.Error("failed to create temp dir for screenshots", "error", err)
		tmpDir = os.TempDir()
	}
	return &darwinCapturer{tempDir: tmpDir}
}

func (d *darwinCapturer) Capture(ctx context.Context, region geom.Region) (*image.RGBA, error) {
	tmpFile := filepath.Join(d.tempDir, "capture.png")

	// -x: no sound, -m: main display only
	args := []string{"-x", "-t", "png"}
	if region.IsZero() {
		args = append(args, "-m")
	} else {
		if !region.Valid() {
			return nil, apperrors.Newf(apperrors.CodeCaptureFailed, "invalid capture region %s", region)
		}
		args = append(args, "-R", fmt.Sprintf("%d,%d,%d,%d", region.X1, region.Y1, region.Dx(), region.Dy()))
	}
	args = append(args, tmpFile)

	cmd := exec.CommandContext(ctx, "screencapture", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		appErr := apperrors.Wrap(err, apperrors.CodeCaptureFailed, "screencapture run")
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			appErr = appErr.WithMetadata("stderr", msg)
		}
		return nil, appErr
	}

	data, err := os.ReadFile(tmpFile)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCaptureFailed, "read screenshot")
	}
	os.Remove(tmpFile)

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCaptureFailed, "decode screenshot")
	}
	return toRGBA(img), nil
}

// Close cleans up the temp directory.
func (d *darwinCapturer) Close() error {
	if d.tempDir != "" {
		return os.RemoveAll(d.tempDir)
	}
	return nil
}
