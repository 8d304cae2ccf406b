package seeder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"

	"nebula/internal/platform/database"
)

// Scheme is one classification scheme as published by the classification
// service: values keyed by their code.
type Scheme struct {
	Name string                    `json:"cs"`
	Data map[string]map[string]any `json:"data"`
}

const maxClassificationBytes = 32 << 20

func (s *Seeder) fetchClassifications(ctx context.Context) ([]Scheme, error) {
	if s.opts.ClassificationsURL == "" {
		return nil, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.opts.ClassificationsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build classifications request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch classifications: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch classifications: unexpected status %d", resp.StatusCode)
	}
	var schemes []Scheme
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxClassificationBytes)).Decode(&schemes); err != nil {
		return nil, fmt.Errorf("decode classifications: %w", err)
	}
	return schemes, nil
}

func replaceClassifications(ctx context.Context, tx database.DB, schemes []Scheme) (int, error) {
	for _, scheme := range schemes {
		if _, err := tx.Execute(ctx, "DELETE FROM cs WHERE cs = $1", scheme.Name); err != nil {
			return 0, err
		}
		for _, value := range slices.Sorted(maps.Keys(scheme.Data)) {
			settings := scheme.Data[value]
			if settings == nil {
				settings = map[string]any{}
			}
			if _, err := tx.Execute(ctx, "INSERT INTO cs (cs, value, settings) VALUES ($1, $2, $3)", scheme.Name, value, settings); err != nil {
				return 0, err
			}
		}
	}
	return len(schemes), nil
}
