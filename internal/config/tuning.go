package config

import (
	"errors"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/statuswatch/statuswatch/internal/classify"
	apperrors "github.com/statuswatch/statuswatch/internal/errors"
	"github.com/statuswatch/statuswatch/internal/match"
)

// Tuning collects the detection knobs. Everything has a working default;
// the YAML file exists for screen setups the defaults were not tuned on.
type Tuning struct {
	Matcher    match.Tuning    `yaml:"matcher"`
	Classifier classify.Tuning `yaml:"classifier"`
	OCR        OCRTuning       `yaml:"ocr"`
}

// OCRTuning controls preprocessing and the frame-skip gate.
type OCRTuning struct {
	Scale        int `yaml:"scale"`        // integer upscale before recognition
	HashDistance int `yaml:"hashDistance"` // max perception hash distance to reuse the last match
}

// DefaultTuning returns the built-in knob values.
func DefaultTuning() Tuning {
	return Tuning{
		Matcher:    match.DefaultTuning(),
		Classifier: classify.DefaultTuning(),
		OCR:        OCRTuning{Scale: 1, HashDistance: 3},
	}
}

// LoadTuning reads the optional YAML tuning file. An empty path selects the
// defaults; a named file that is missing or malformed is an error.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	if path == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return t, apperrors.Wrapf(err, apperrors.CodeConfigMissing, "tuning file %s not found", path)
		}
		return t, apperrors.Wrap(err, apperrors.CodeConfigMissing, "read tuning")
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return DefaultTuning(), apperrors.Wrap(err, apperrors.CodeConfigInvalid, "parse tuning")
	}

	t.Matcher = t.Matcher.WithDefaults()
	t.Classifier = t.Classifier.WithDefaults()
	t.OCR = t.OCR.withDefaults()
	return t, nil
}

func (o OCRTuning) withDefaults() OCRTuning {
	if o.Scale < 1 {
		o.Scale = 1
	}
	if o.Scale > 4 {
		o.Scale = 4
	}
	if o.HashDistance < 0 {
		o.HashDistance = 0
	}
	return o
}
