package store

import (
	"context"
	"slices"

	"github.com/jrsteele09/bizdesk/internal/errors"
	"github.com/jrsteele09/bizdesk/model"
)

const itemActive = "active"

// seedItems is the catalog served until the backend exposes items
var seedItems = []model.Item{
	{ID: 1, Name: "Wedding Photography", Description: "Full day wedding photography coverage", UnitPrice: 1500, Category: "photography", Status: itemActive},
	{ID: 2, Name: "Videography Package", Description: "Professional video recording and editing", UnitPrice: 2000, Category: "videography", Status: itemActive},
	{ID: 3, Name: "Flower Decoration", Description: "Complete venue decoration with flowers", UnitPrice: 800, Category: "decoration", Status: itemActive},
	{ID: 4, Name: "Catering Service", Description: "Full catering for 100 guests", UnitPrice: 3000, Category: "catering", Status: itemActive},
	{ID: 5, Name: "DJ Entertainment", Description: "Professional DJ and sound system", UnitPrice: 1200, Category: "entertainment", Status: itemActive},
}

// FetchItems replaces the item collection with the built-in catalog
func (s *Store) FetchItems(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = slices.Clone(seedItems)
	return nil
}

func (s *Store) RefreshItems(ctx context.Context) error {
	return s.FetchItems(ctx)
}

// CreateItem adds item with the next free id and the current time as created_at
func (s *Store) CreateItem(_ context.Context, item model.Item) (model.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var maxID int64
	for _, it := range s.items {
		maxID = max(maxID, it.ID)
	}
	item.ID = maxID + 1
	item.CreatedAt = s.nowFunc()
	if item.Status == "" {
		item.Status = itemActive
	}
	s.items = append(s.items, item)
	return item, nil
}

// UpdateItem replaces the item with id. The id and created_at are kept.
func (s *Store) UpdateItem(_ context.Context, id int64, item model.Item) (model.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexByID(s.items, id)
	if i < 0 {
		return model.Item{}, errors.Wrapf(errors.ErrItemNotFound, "item %d", id)
	}
	item.ID = id
	item.CreatedAt = s.items[i].CreatedAt
	s.items[i] = item
	return item, nil
}

func (s *Store) DeleteItem(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexByID(s.items, id)
	if i < 0 {
		return errors.Wrapf(errors.ErrItemNotFound, "item %d", id)
	}
	s.items = slices.Delete(s.items, i, i+1)
	return nil
}
