package ocr

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os/exec"
	"strings"
	"sync"

	apperrors "github.com/statuswatch/statuswatch/internal/errors"
	"github.com/statuswatch/statuswatch/internal/resilience"
)

// DefaultEngine is used when the profile leaves the engine path empty.
const DefaultEngine = "tesseract"

// Client runs the tesseract binary over stdin/stdout. A circuit breaker
// fails recognition fast when the engine keeps dying, so the monitor loop
// is not stalled by a broken install on every cycle.
type Client struct {
	mu      sync.RWMutex
	engine  string
	langs   string
	scale   int
	breaker *resilience.Breaker
}

// NewClient creates a tesseract client. Empty engine falls back to PATH
// lookup of "tesseract"; empty langs uses the engine default.
func NewClient(engine, langs string, scale int) *Client {
	c := &Client{breaker: resilience.New(resilience.EngineConfig())}
	c.Configure(engine, langs, scale)
	return c
}

// Configure updates the engine settings. The loop calls this with each
// profile snapshot so path changes apply without a restart.
func (c *Client) Configure(engine, langs string, scale int) {
	if engine == "" {
		engine = DefaultEngine
	}
	if scale < 1 {
		scale = 1
	}
	c.mu.Lock()
	c.engine = engine
	c.langs = langs
	c.scale = scale
	c.mu.Unlock()
}

// Locate implements Locator by shelling out to tesseract in TSV mode.
func (c *Client) Locate(ctx context.Context, img image.Image) ([]Fragment, error) {
	c.mu.RLock()
	engine, langs, scale := c.engine, c.langs, c.scale
	c.mu.RUnlock()

	if img == nil {
		return nil, apperrors.New(apperrors.CodeOCRInvalidImage, "nil image")
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, apperrors.New(apperrors.CodeOCRInvalidImage, "empty image")
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, Preprocess(img, scale)); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeOCRInvalidImage, "encode frame")
	}

	frags, err := resilience.ExecuteWithResult(c.breaker, func() ([]Fragment, error) {
		return run(ctx, engine, langs, buf.Bytes())
	})
	if err != nil {
		if errors.Is(err, resilience.ErrOpen) {
			return nil, apperrors.Wrap(err, apperrors.CodeUnavailable, "ocr suspended")
		}
		return nil, err
	}

	if scale > 1 {
		for i := range frags {
			frags[i].X /= scale
			frags[i].Y /= scale
			frags[i].W /= scale
			frags[i].H /= scale
		}
	}
	return frags, nil
}

func run(ctx context.Context, engine, langs string, pngData []byte) ([]Fragment, error) {
	args := []string{"stdin", "stdout"}
	if langs != "" {
		args = append(args, "-l", langs)
	}
	args = append(args, "tsv")

	cmd := exec.CommandContext(ctx, engine, args...)
	cmd.Stdin = bytes.NewReader(pngData)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		appErr := apperrors.Wrap(err, apperrors.CodeOCRFailed, "tesseract run")
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			if len(msg) > 200 {
				msg = msg[:200]
			}
			appErr = appErr.WithMetadata("stderr", msg)
		}
		return nil, appErr
	}
	return parseTSV(out.Bytes()), nil
}
