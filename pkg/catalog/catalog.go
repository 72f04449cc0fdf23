// Package catalog holds the list of locations shown on the map.
// The default list is compiled into the binary.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/1F47E/mappins/pkg/models"
)

//go:embed locations.yaml
var embedded []byte

// ErrInvalidCatalog is returned when a catalog document is malformed.
var ErrInvalidCatalog = errors.New("catalog is invalid")

// Load decodes the embedded catalog. Every call returns a fresh slice.
func Load() ([]models.Location, error) {
	return Decode(bytes.NewReader(embedded))
}

// LoadFile decodes a catalog from a YAML file on disk.
func LoadFile(path string) ([]models.Location, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer file.Close()

	return Decode(file)
}

// Decode reads a YAML sequence of locations and validates it.
func Decode(r io.Reader) ([]models.Location, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var locations []models.Location
	if err := decoder.Decode(&locations); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: no locations", ErrInvalidCatalog)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	if err := Validate(locations); err != nil {
		return nil, err
	}

	for i := range locations {
		if locations[i].Projects == nil {
			locations[i].Projects = []string{}
		}
	}
	return locations, nil
}

// Validate checks that the catalog is non-empty and ids are unique.
func Validate(locations []models.Location) error {
	if len(locations) == 0 {
		return fmt.Errorf("%w: no locations", ErrInvalidCatalog)
	}

	seen := make(map[string]int, len(locations))
	for i, loc := range locations {
		if loc.ID == "" {
			return fmt.Errorf("%w: location #%d has no id", ErrInvalidCatalog, i+1)
		}
		if prev, ok := seen[loc.ID]; ok {
			return fmt.Errorf("%w: duplicate id %q (locations #%d and #%d)",
				ErrInvalidCatalog, loc.ID, prev+1, i+1)
		}
		seen[loc.ID] = i
	}
	return nil
}

// Unverified returns the ids of locations with placeholder coordinates, in catalog order.
func Unverified(locations []models.Location) []string {
	var ids []string
	for _, loc := range locations {
		if !loc.IsVerified() {
			ids = append(ids, loc.ID)
		}
	}
	return ids
}
