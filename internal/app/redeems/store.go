package redeems

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dchest/uniuri"
)

// Store persists the redeem catalogue as a JSON array on disk. It does not
// validate cross-record invariants beyond what Load enforces; the caller owns
// uniqueness during later mutation.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the catalogue. A missing or empty file yields the built-in
// default catalogue, persisted before returning. Duplicate titles fail with a
// conflict error so the engine refuses to start on a corrupt file.
func (s *Store) Load() ([]Redeem, error) {
	data, err := os.ReadFile(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read settings file %s: %w", s.path, err)
	}

	if errors.Is(err, fs.ErrNotExist) || len(strings.TrimSpace(string(data))) == 0 {
		defaults := DefaultCatalogue()
		if err := s.Save(defaults); err != nil {
			return nil, fmt.Errorf("failed to persist default catalogue: %w", err)
		}

		return defaults, nil
	}

	var catalogue []Redeem
	if err := json.Unmarshal(data, &catalogue); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings file %s: %w", s.path, err)
	}

	if err := ValidateCatalogue(catalogue); err != nil {
		return nil, err
	}

	return catalogue, nil
}

// Save atomically replaces the settings file: write to a temp file in the
// same directory, then rename over the target.
func (s *Store) Save(catalogue []Redeem) error {
	data, err := json.MarshalIndent(catalogue, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal catalogue: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create settings dir %s: %w", dir, err)
	}

	tmp := s.path + "." + uniuri.NewLen(8) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temp settings file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace settings file %s: %w", s.path, err)
	}

	return nil
}

// ValidateCatalogue checks per-record validity plus the catalogue-wide
// uniqueness invariants: local titles pairwise distinct, upstream IDs
// distinct when present.
func ValidateCatalogue(catalogue []Redeem) error {
	titles := make(map[string]struct{}, len(catalogue))
	upstreamIDs := make(map[string]struct{}, len(catalogue))

	for i := range catalogue {
		r := &catalogue[i]

		if err := r.validate(); err != nil {
			return err
		}

		if _, ok := titles[r.LocalTitle]; ok {
			return Conflictf("duplicate local_title %q in catalogue", r.LocalTitle)
		}
		titles[r.LocalTitle] = struct{}{}

		if r.UpstreamID != "" {
			if _, ok := upstreamIDs[r.UpstreamID]; ok {
				return Conflictf("duplicate upstream_id %q in catalogue", r.UpstreamID)
			}
			upstreamIDs[r.UpstreamID] = struct{}{}
		}
	}

	return nil
}
