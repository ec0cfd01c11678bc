// Package discovery enumerates the probability volumes of a dataset
// directory. A file named <case><suffix> becomes case <case>.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"edgeuncertainty/internal/models"
)

// DefaultSuffix matches compressed NIfTI volumes.
const DefaultSuffix = ".nii.gz"

// ListCases returns one CaseSource per regular file in dir ending in
// suffix, sorted by case identifier. The order is the enumeration order
// used to break ranking ties.
func ListCases(dir, suffix string) ([]models.CaseSource, error) {
	if suffix == "" {
		suffix = DefaultSuffix
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading case directory: %w", err)
	}

	var cases []models.CaseSource
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, suffix) || len(name) == len(suffix) {
			continue
		}
		id := strings.TrimSuffix(name, suffix)
		cases = append(cases, models.CaseSource{
			ID:   id,
			Path: SourcePath(dir, id, suffix),
		})
	}

	sort.Slice(cases, func(i, j int) bool { return cases[i].ID < cases[j].ID })
	return cases, nil
}

// SourcePath returns the expected location of a case's volume in dir.
func SourcePath(dir, caseID, suffix string) string {
	if suffix == "" {
		suffix = DefaultSuffix
	}
	return filepath.Join(dir, caseID+suffix)
}
