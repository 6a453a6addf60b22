package notify

import (
	"context"
	"math"

	"github.com/gordonklaus/portaudio"

	apperrors "github.com/statuswatch/statuswatch/internal/errors"
)

const (
	chimeSampleRate = 44100
	chimeFreq       = 880.0
	chimeFrames     = 1024
	chimeDuration   = 0.3 // seconds
)

// Chime plays a short tone on the default output device so a status flip
// is noticed even when the inbox is not.
type Chime struct{}

// NewChime creates a chime sink.
func NewChime() *Chime { return &Chime{} }

// Notify implements Notifier. The tone is synthesized on the fly; any audio
// stack problem is returned for the caller to log.
func (c *Chime) Notify(ctx context.Context, ev Event) error {
	if err := portaudio.Initialize(); err != nil {
		return apperrors.Wrap(err, apperrors.CodeUnavailable, "audio init")
	}
	defer portaudio.Terminate()

	buf := make([]float32, chimeFrames)
	stream, err := portaudio.OpenDefaultStream(0, 1, chimeSampleRate, len(buf), &buf)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeUnavailable, "open output stream")
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return apperrors.Wrap(err, apperrors.CodeUnavailable, "start output stream")
	}
	defer stream.Stop()

	total := int(chimeDuration * chimeSampleRate)
	for written := 0; written < total; written += len(buf) {
		if err := ctx.Err(); err != nil {
			return err
		}
		for i := range buf {
			n := written + i
			if n >= total {
				buf[i] = 0
				continue
			}
			// Sine burst with a linear fade so the tone ends without a click.
			fade := 1 - float64(n)/float64(total)
			buf[i] = float32(0.4 * fade * math.Sin(2*math.Pi*chimeFreq*float64(n)/chimeSampleRate))
		}
		if err := stream.Write(); err != nil {
			return apperrors.Wrap(err, apperrors.CodeUnavailable, "write samples")
		}
	}
	return nil
}
