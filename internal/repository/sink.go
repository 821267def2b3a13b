package repository

import (
	"context"
	"errors"

	"autoriven/scraper/internal/domain"
)

// Sink receives scraped records. Both operations are idempotent by natural
// ID: re-upserting updates mutable fields and keeps the surrogate ID that
// was stored first.
type Sink interface {
	UpsertCategory(ctx context.Context, category domain.Category) error
	UpsertProduct(ctx context.Context, product domain.Product) error
}

// Seeds are the highest surrogate IDs a sink already holds.
type Seeds struct {
	Category int64
	Product  int64
}

// Seeder is implemented by sinks that outlive a run. Runs start their
// surrogate ID sequences after the stored maximum so IDs stay unique across
// runs.
type Seeder interface {
	SurrogateSeeds(ctx context.Context) (Seeds, error)
}

// SurrogateSeeds returns the seeds of sink, or zero seeds when it does not
// keep records between runs.
func SurrogateSeeds(ctx context.Context, sink Sink) (Seeds, error) {
	seeder, ok := sink.(Seeder)
	if !ok {
		return Seeds{}, nil
	}
	return seeder.SurrogateSeeds(ctx)
}

type fanOut struct {
	sinks []Sink
}

// FanOut delivers every record to all sinks in order. Every sink is
// attempted; the returned error joins the individual failures.
func FanOut(sinks ...Sink) Sink {
	flat := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			flat = append(flat, s)
		}
	}
	return &fanOut{sinks: flat}
}

func (f *fanOut) UpsertCategory(ctx context.Context, category domain.Category) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.UpsertCategory(ctx, category); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *fanOut) UpsertProduct(ctx context.Context, product domain.Product) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.UpsertProduct(ctx, product); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SurrogateSeeds returns the highest seeds over all sinks.
func (f *fanOut) SurrogateSeeds(ctx context.Context) (Seeds, error) {
	var (
		out  Seeds
		errs []error
	)
	for _, s := range f.sinks {
		seeds, err := SurrogateSeeds(ctx, s)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out.Category = max(out.Category, seeds.Category)
		out.Product = max(out.Product, seeds.Product)
	}
	return out, errors.Join(errs...)
}
