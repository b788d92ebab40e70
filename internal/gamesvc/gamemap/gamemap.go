// Package gamemap holds the board layouts a game can be created from.
package gamemap

import (
	"fmt"
	"sort"

	"github.com/avvvet/strategists-services/internal/gamesvc/models"
	"github.com/shopspring/decimal"
)

type LandSpec struct {
	Name        string
	MarketValue int64
}

type Map struct {
	ID             string
	PlayerBaseCash decimal.Decimal
	Lands          []LandSpec
}

// NewLands instantiates the map's lands for one game, positioned in order.
func (m *Map) NewLands(gameCode string) []*models.Land {
	lands := make([]*models.Land, 0, len(m.Lands))
	for i, l := range m.Lands {
		lands = append(lands, &models.Land{
			GameCode:    gameCode,
			Name:        l.Name,
			MarketValue: decimal.NewFromInt(l.MarketValue),
			Position:    i,
		})
	}
	return lands
}

type Registry struct {
	maps map[string]*Map
}

func NewRegistry(maps ...*Map) *Registry {
	r := &Registry{maps: map[string]*Map{}}
	for _, m := range maps {
		r.maps[m.ID] = m
	}
	return r
}

// Default returns a registry with the bundled maps.
func Default() *Registry {
	return NewRegistry(India(), Classic())
}

func (r *Registry) Get(id string) (*Map, error) {
	m, ok := r.maps[id]
	if !ok {
		return nil, fmt.Errorf("unknown game map %q", id)
	}
	return m, nil
}

func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.maps))
	for id := range r.maps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
