// Package resolver finds the newest non-amended 10-K document for a CIK.
//
// EDGAR's company browse page lists filings newest first. Resolve relies on
// that ordering: the first qualifying anchor is taken as the most recent
// filing. Only the first page of results is read.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xhad/filingmap/internal/models"
	"github.com/xhad/filingmap/internal/types"
	"github.com/xhad/filingmap/pkg/scraper"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultBaseURL = "https://www.sec.gov"
	// DefaultBrowseURL takes the CIK, the form type and the page size.
	DefaultBrowseURL = DefaultBaseURL + "/cgi-bin/browse-edgar?action=getcompany&CIK=%d&type=%s&dateb=&owner=include&count=%d"

	ArchivePrefix = "/Archives/edgar/data/"
	IndexSuffix   = "-index.htm"
	TextSuffix    = ".txt"
)

// Verify interface compliance
var _ types.Resolver = (*Resolver)(nil)

var ErrInvalidHref = errors.New("href is not a filing index page")

type ResolverConfig struct {
	BaseURL       string
	BrowseURL     string
	FormType      string
	AmendmentType string
	Count         int
	Workers       int
	OnProgress    func(cik int64)
}

type Resolver struct {
	config  ResolverConfig
	fetcher types.Fetcher
}

func NewWithConfig(fetcher types.Fetcher, config ResolverConfig) *Resolver {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.BrowseURL == "" {
		config.BrowseURL = DefaultBrowseURL
	}
	if config.FormType == "" {
		config.FormType = "10-K"
	}
	if config.AmendmentType == "" {
		config.AmendmentType = config.FormType + "/A"
	}
	if config.Count == 0 {
		config.Count = 10
	}
	if config.Workers < 1 {
		config.Workers = 1
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	return &Resolver{
		config:  config,
		fetcher: fetcher,
	}
}

// Resolve fetches the primary and amendment listings for cik and returns the
// document URL of the first primary filing that is not also listed as an
// amendment. A CIK without such a filing yields a link with a nil URL.
func (r *Resolver) Resolve(ctx context.Context, cik int64) (models.DocumentLink, error) {
	link := models.DocumentLink{ID: cik}

	primary, err := r.anchors(ctx, cik, r.config.FormType)
	if err != nil {
		return link, err
	}
	amendments, err := r.anchors(ctx, cik, r.config.AmendmentType)
	if err != nil {
		return link, err
	}

	remaining := Difference(primary, amendments)
	if len(remaining) == 0 {
		return link, nil
	}

	url, err := DocumentURL(r.config.BaseURL, remaining[0])
	if err != nil {
		return link, err
	}
	link.URL = &url
	return link, nil
}

// ResolveAll resolves every CIK and returns links in input order. With one
// worker the lookups run strictly one after another. The first failure
// aborts the remaining lookups.
func (r *Resolver) ResolveAll(ctx context.Context, ciks []int64) ([]models.DocumentLink, error) {
	links := make([]models.DocumentLink, len(ciks))

	if r.config.Workers == 1 {
		for i, cik := range ciks {
			link, err := r.Resolve(ctx, cik)
			if err != nil {
				return nil, fmt.Errorf("resolving CIK %d: %w", cik, err)
			}
			links[i] = link
			r.progress(cik)
		}
		return links, nil
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.Workers)

	for i, cik := range ciks {
		i, cik := i, cik
		g.Go(func() error {
			link, err := r.Resolve(gCtx, cik)
			if err != nil {
				return fmt.Errorf("resolving CIK %d: %w", cik, err)
			}
			links[i] = link
			r.progress(cik)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return links, nil
}

// ListingURL is the browse page for cik filtered to one form type.
func (r *Resolver) ListingURL(cik int64, formType string) string {
	return fmt.Sprintf(r.config.BrowseURL, cik, formType, r.config.Count)
}

func (r *Resolver) anchors(ctx context.Context, cik int64, formType string) ([]string, error) {
	doc, err := r.fetcher.FetchDocument(ctx, r.ListingURL(cik, formType))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s listing: %w", formType, err)
	}
	return scraper.FilingAnchors(doc, ArchivePrefix, IndexSuffix), nil
}

func (r *Resolver) progress(cik int64) {
	if r.config.OnProgress != nil {
		r.config.OnProgress(cik)
	}
}

// Difference returns the hrefs of primary that are absent from exclude,
// keeping the order of primary.
func Difference(primary, exclude []string) []string {
	skip := make(map[string]bool, len(exclude))
	for _, href := range exclude {
		skip[href] = true
	}

	var out []string
	for _, href := range primary {
		if !skip[href] {
			out = append(out, href)
		}
	}
	return out
}

// DocumentURL turns a filing index href into the absolute URL of the
// filing's full-text submission.
func DocumentURL(baseURL, href string) (string, error) {
	if !strings.HasSuffix(href, IndexSuffix) {
		return "", fmt.Errorf("%w: %s", ErrInvalidHref, href)
	}
	return strings.TrimRight(baseURL, "/") + strings.TrimSuffix(href, IndexSuffix) + TextSuffix, nil
}
