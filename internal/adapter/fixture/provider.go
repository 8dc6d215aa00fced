// Package fixture serves provider payloads captured to JSON files, for
// offline reconciliation and replaying incidents.
package fixture

import (
	"context"
	"fmt"
	"os"

	"github.com/couchcryptid/flight-timetable-etl/internal/domain"
)

// Provider returns the records stored in one file. The file may hold a bare
// array, a provider envelope ({"data": [...]}), or a single record.
type Provider struct {
	source domain.Source
	path   string
}

// NewProvider creates a file-backed provider for source.
func NewProvider(source domain.Source, path string) *Provider {
	return &Provider{source: source, path: path}
}

func (p *Provider) Source() domain.Source {
	return p.source
}

// Fetch reads the file on every call. The window is not applied; filtering
// is left to reconciliation.
func (p *Provider) Fetch(ctx context.Context, _ domain.Window) ([]domain.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("read %s fixture: %w", p.source, err)
	}
	v, err := domain.ParseValue(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s fixture %s: %w", p.source, p.path, err)
	}
	switch {
	case v.Kind() == domain.KindArray:
		return v.Items(), nil
	case v.IsObject():
		for _, k := range []string{"data", "rows", "result"} {
			if list := v.Get(k); list.Kind() == domain.KindArray {
				return list.Items(), nil
			}
		}
		return []domain.Value{v}, nil
	default:
		return nil, fmt.Errorf("%s fixture %s: want an array or object", p.source, p.path)
	}
}
