package config

import (
	"log/slog"
	"os"

	apperrors "github.com/statuswatch/statuswatch/internal/errors"
	"github.com/statuswatch/statuswatch/internal/geom"
	"github.com/statuswatch/statuswatch/internal/syncx"
)

// Store owns the persisted profile. Readers get copies, writers serialize
// through the guard, and every successful update is flushed to disk with a
// write-temp-then-rename so a crash never leaves a torn file.
type Store struct {
	path  string
	guard *syncx.RWGuard[Profile]
}

// NewStore creates a store for the profile file at path. Call Load before use.
func NewStore(path string) *Store {
	return &Store{path: path, guard: syncx.NewGuard(DefaultProfile())}
}

// Load reads the profile file. A missing file is not an error; defaults apply.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		slog.Info("no profile file, using defaults", "path", s.path)
		return nil
	}
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeConfigMissing, "read profile")
	}

	p, err := ParseProfile(data)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeConfigInvalid, "parse profile").
			WithMetadata("path", s.path)
	}
	p.Clamp()
	s.guard.Set(p)
	slog.Info("profile loaded", "path", s.path, "target", p.TargetPerson)
	return nil
}

// Snapshot returns a copy of the current profile.
func (s *Store) Snapshot() Profile {
	return s.guard.Get()
}

// Update mutates the profile under lock, clamps it, and persists the result.
// Redefining the region drops any point calibration back to the default
// name-relative offset.
func (s *Store) Update(fn func(*Profile)) (Profile, error) {
	var out Profile
	s.guard.Write(func(p *Profile) {
		before := p.Region
		fn(p)
		p.Clamp()
		if p.Region != before && p.CalibMode == CalibModePoint {
			p.CalibMode = CalibModeOffset
			p.OffsetX, p.OffsetY = DefaultOffsetX, DefaultOffsetY
			p.CalibPoint = geom.Point{}
			slog.Info("region changed, point calibration reset")
		}
		out = *p
	})
	if err := s.save(out); err != nil {
		return out, err
	}
	return out, nil
}

func (s *Store) save(p Profile) error {
	data, err := p.Encode()
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "encode profile")
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "write profile")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "replace profile")
	}
	slog.Debug("profile saved", "path", s.path)
	return nil
}
