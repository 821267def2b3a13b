package repository

import (
	"context"
	"sync"

	"autoriven/scraper/internal/domain"
)

// MemorySink keeps records in insertion order. It backs the JSON export and
// the tests.
type MemorySink struct {
	mu sync.RWMutex

	categories     map[string]int
	categoryOrder  []domain.Category
	products       map[string]int
	productOrder   []domain.Product
	categoryWrites int
	productWrites  int
}

func NewMemorySink() *MemorySink {
	return &MemorySink{
		categories: make(map[string]int),
		products:   make(map[string]int),
	}
}

func (m *MemorySink) UpsertCategory(_ context.Context, category domain.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.categoryWrites++
	if i, ok := m.categories[category.NaturalID]; ok {
		category.SurrogateID = m.categoryOrder[i].SurrogateID
		m.categoryOrder[i] = category
		return nil
	}
	m.categories[category.NaturalID] = len(m.categoryOrder)
	m.categoryOrder = append(m.categoryOrder, category)
	return nil
}

func (m *MemorySink) UpsertProduct(_ context.Context, product domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.productWrites++
	if i, ok := m.products[product.NaturalID]; ok {
		product.SurrogateID = m.productOrder[i].SurrogateID
		m.productOrder[i] = product
		return nil
	}
	m.products[product.NaturalID] = len(m.productOrder)
	m.productOrder = append(m.productOrder, product)
	return nil
}

// Categories returns a copy of the stored categories in first-upsert order.
func (m *MemorySink) Categories() []domain.Category {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Category(nil), m.categoryOrder...)
}

// Products returns a copy of the stored products in first-upsert order.
func (m *MemorySink) Products() []domain.Product {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Product(nil), m.productOrder...)
}

func (m *MemorySink) Category(naturalID string) (domain.Category, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.categories[naturalID]
	if !ok {
		return domain.Category{}, false
	}
	return m.categoryOrder[i], true
}

func (m *MemorySink) Product(naturalID string) (domain.Product, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.products[naturalID]
	if !ok {
		return domain.Product{}, false
	}
	return m.productOrder[i], true
}

func (m *MemorySink) SurrogateSeeds(context.Context) (Seeds, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var seeds Seeds
	for _, c := range m.categoryOrder {
		seeds.Category = max(seeds.Category, c.SurrogateID)
	}
	for _, p := range m.productOrder {
		seeds.Product = max(seeds.Product, p.SurrogateID)
	}
	return seeds, nil
}

// Writes returns how many category and product upserts were received.
func (m *MemorySink) Writes() (categories, products int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.categoryWrites, m.productWrites
}
