// Package snapshot reads and writes plan snapshots and adapts both a file
// and a live scan into a single run input.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"hrp_projects/internal/domain"
)

// Read decodes a snapshot. Country keys are normalised to upper case.
// The input must hold exactly one snapshot object with a plans key and no
// unknown fields: a run treats every missing plan as a dataset to delete.
func Read(r io.Reader) (*domain.Snapshot, error) {
	var raw struct {
		Countries map[string]string         `json:"countries"`
		Plans     *map[string][]domain.Plan `json:"plans"`
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if raw.Plans == nil {
		return nil, errors.New("decode snapshot: missing plans")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("decode snapshot: unexpected data after snapshot")
	}

	snap := domain.NewSnapshot()
	for iso3, name := range raw.Countries {
		snap.Countries[strings.ToUpper(strings.TrimSpace(iso3))] = name
	}
	for iso3, plans := range *raw.Plans {
		key := strings.ToUpper(strings.TrimSpace(iso3))
		for _, p := range plans {
			if p.ISO3 == "" {
				p.ISO3 = key
			}
			snap.Plans[key] = append(snap.Plans[key], p)
		}
	}
	return snap, nil
}

func Load(path string) (*domain.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	return Read(f)
}

// Write encodes the snapshot as indented JSON.
func Write(w io.Writer, snap *domain.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

func Save(path string, snap *domain.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	if err := Write(f, snap); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// File serves a snapshot previously captured by a scan.
type File struct {
	path string
}

func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Snapshot(_ context.Context) (*domain.Snapshot, error) {
	return Load(f.path)
}

// Scanner is the part of the plan scanner a live run needs.
type Scanner interface {
	Scan(ctx context.Context, cutoffYear int) (*domain.Snapshot, error)
}

// Live scans the upstream plan API on every call.
type Live struct {
	scanner    Scanner
	cutoffYear int
}

func NewLive(scanner Scanner, cutoffYear int) *Live {
	return &Live{scanner: scanner, cutoffYear: cutoffYear}
}

func (l *Live) Snapshot(ctx context.Context) (*domain.Snapshot, error) {
	return l.scanner.Scan(ctx, l.cutoffYear)
}
