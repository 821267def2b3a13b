package repository

import (
	"context"
	"fmt"

	"autoriven/scraper/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool the sink uses.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresSink upserts into the categories and products tables owned by the
// catalog service. Full records are kept in the data jsonb column next to
// the columns the service queries on.
type PostgresSink struct {
	db DB
}

func NewPostgresSink(db DB) *PostgresSink {
	return &PostgresSink{
		db: db,
	}
}

const upsertCategoryQuery = `
	INSERT INTO categories (natural_id, surrogate_id, parent_natural_id, depth, name, translated_name,
		slug, translated_slug, source_url, has_offers, offer_count_hint, data)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::jsonb)
	ON CONFLICT (natural_id)
	DO UPDATE SET parent_natural_id = $3, depth = $4, name = $5, translated_name = $6,
		slug = $7, translated_slug = $8, source_url = $9, has_offers = $10,
		offer_count_hint = $11,
		data = jsonb_set($12::jsonb, '{surrogate_id}', to_jsonb(categories.surrogate_id)),
		updated_at = now()`

func (r *PostgresSink) UpsertCategory(ctx context.Context, c domain.Category) error {
	_, err := r.db.Exec(ctx, upsertCategoryQuery,
		c.NaturalID, c.SurrogateID, c.ParentNaturalID, c.Depth, c.Name, c.TranslatedName,
		c.Slug, c.TranslatedSlug, c.SourceURL, c.HasOffers, c.OfferCountHint, c)
	if err != nil {
		return fmt.Errorf("failed to save category %s: %w", c.NaturalID, err)
	}

	return nil
}

const upsertProductQuery = `
	INSERT INTO products (natural_id, surrogate_id, category_natural_id, name, translated_name,
		slug, translated_slug, source_url, price, currency, condition, ean, data)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13::jsonb)
	ON CONFLICT (natural_id)
	DO UPDATE SET category_natural_id = $3, name = $4, translated_name = $5, slug = $6,
		translated_slug = $7, source_url = $8, price = $9, currency = $10, condition = $11,
		ean = $12,
		data = jsonb_set($13::jsonb, '{surrogate_id}', to_jsonb(products.surrogate_id)),
		updated_at = now()`

func (r *PostgresSink) UpsertProduct(ctx context.Context, p domain.Product) error {
	_, err := r.db.Exec(ctx, upsertProductQuery,
		p.NaturalID, p.SurrogateID, p.CategoryNaturalID, p.Name, p.TranslatedName,
		p.Slug, p.TranslatedSlug, p.SourceURL, p.Price, p.Currency, p.Condition.String(), p.EAN, p)
	if err != nil {
		return fmt.Errorf("failed to save product %s: %w", p.NaturalID, err)
	}

	return nil
}

const surrogateSeedsQuery = `
	SELECT
		(SELECT COALESCE(max(surrogate_id), 0) FROM categories),
		(SELECT COALESCE(max(surrogate_id), 0) FROM products)`

func (r *PostgresSink) SurrogateSeeds(ctx context.Context) (Seeds, error) {
	var seeds Seeds
	if err := r.db.QueryRow(ctx, surrogateSeedsQuery).Scan(&seeds.Category, &seeds.Product); err != nil {
		return Seeds{}, fmt.Errorf("failed to read surrogate seeds: %w", err)
	}
	return seeds, nil
}
