package types

import (
	"context"

	"github.com/PuerkitoBio/goquery"
	"github.com/xhad/filingmap/internal/models"
)

// Core interfaces
type Fetcher interface {
	FetchJSON(ctx context.Context, url string, v interface{}) error
	FetchDocument(ctx context.Context, url string) (*goquery.Document, error)
}

// PageCache stores raw response bodies keyed by URL.
type PageCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, body []byte) error
}

// Resolver maps CIKs to filing document links. ResolveAll returns links in
// input order.
type Resolver interface {
	Resolve(ctx context.Context, cik int64) (models.DocumentLink, error)
	ResolveAll(ctx context.Context, ciks []int64) ([]models.DocumentLink, error)
}

type RecordStore interface {
	Store(ctx context.Context, records []models.OutputRecord) error
	Close()
}
