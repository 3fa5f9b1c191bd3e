package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/filingmap/pkg/scraper"
)

// listingFetcher serves browse pages built from per-CIK anchor lists.
type listingFetcher struct {
	mu      sync.Mutex
	primary map[int64][]string
	amended map[int64][]string
	fail    map[int64]bool
	calls   []string
}

func (f *listingFetcher) FetchJSON(context.Context, string, interface{}) error {
	return errors.New("unexpected JSON request")
}

func (f *listingFetcher) FetchDocument(_ context.Context, rawURL string) (*goquery.Document, error) {
	f.mu.Lock()
	f.calls = append(f.calls, rawURL)
	f.mu.Unlock()

	query, err := url.ParseQuery(rawURL)
	if err != nil {
		return nil, err
	}
	cik, err := strconv.ParseInt(query.Get("cik"), 10, 64)
	if err != nil {
		return nil, err
	}
	formType := query.Get("type")
	if f.fail[cik] {
		return nil, errors.New("connection reset")
	}

	hrefs := f.primary[cik]
	if formType == "10-K/A" {
		hrefs = f.amended[cik]
	}
	return goquery.NewDocumentFromReader(strings.NewReader(listingPage(hrefs)))
}

func listingPage(hrefs []string) string {
	var b strings.Builder
	b.WriteString(`<html><body><table class="tableFile2">`)
	for _, href := range hrefs {
		fmt.Fprintf(&b, `<tr><td>10-K</td><td><a href="%s" id="documentsbutton">Documents</a></td></tr>`, href)
	}
	b.WriteString(`</table><a href="/cgi-bin/browse-edgar?action=getcurrent">Latest</a></body></html>`)
	return b.String()
}

func testResolver(f *listingFetcher, workers int) *Resolver {
	return NewWithConfig(f, ResolverConfig{
		BrowseURL: "cik=%d&type=%s&count=%d",
		Workers:   workers,
	})
}

const (
	apple2023 = "/Archives/edgar/data/320193/000032019323000106-index.htm"
	apple2022 = "/Archives/edgar/data/320193/000032019322000108-index.htm"
)

func TestDocumentURL(t *testing.T) {
	got, err := DocumentURL(DefaultBaseURL, apple2023)
	require.NoError(t, err)
	assert.Equal(t, "https://www.sec.gov/Archives/edgar/data/320193/000032019323000106.txt", got)

	got, err = DocumentURL("https://www.sec.gov/", apple2023)
	require.NoError(t, err)
	assert.Equal(t, "https://www.sec.gov/Archives/edgar/data/320193/000032019323000106.txt", got)

	_, err = DocumentURL(DefaultBaseURL, "/Archives/edgar/data/320193/000032019323000106.txt")
	assert.ErrorIs(t, err, ErrInvalidHref)
}

func TestDifference(t *testing.T) {
	tests := []struct {
		name    string
		primary []string
		exclude []string
		want    []string
	}{
		{"no amendments", []string{"a", "b", "c"}, nil, []string{"a", "b", "c"}},
		{"keeps order", []string{"c", "a", "b"}, []string{"a"}, []string{"c", "b"}},
		{"all excluded", []string{"a", "b"}, []string{"b", "a"}, nil},
		{"exclude only", nil, []string{"a"}, nil},
		{"unrelated exclusions", []string{"a"}, []string{"x", "y"}, []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Difference(tt.primary, tt.exclude))
		})
	}
}

func TestResolveTakesNewestNonAmended(t *testing.T) {
	amendment := "/Archives/edgar/data/320193/000032019323000200-index.htm"
	f := &listingFetcher{
		primary: map[int64][]string{320193: {amendment, apple2023, apple2022}},
		amended: map[int64][]string{320193: {amendment}},
	}

	link, err := testResolver(f, 1).Resolve(context.Background(), 320193)
	require.NoError(t, err)
	require.NotNil(t, link.URL)
	assert.Equal(t, int64(320193), link.ID)
	assert.Equal(t, "https://www.sec.gov/Archives/edgar/data/320193/000032019323000106.txt", *link.URL)
	assert.Equal(t, []string{
		"cik=320193&type=10-K&count=10",
		"cik=320193&type=10-K/A&count=10",
	}, f.calls)
}

func TestResolveAllAmendedIsAbsent(t *testing.T) {
	f := &listingFetcher{
		primary: map[int64][]string{320193: {apple2023, apple2022}},
		amended: map[int64][]string{320193: {apple2023, apple2022}},
	}

	link, err := testResolver(f, 1).Resolve(context.Background(), 320193)
	require.NoError(t, err)
	assert.Nil(t, link.URL)
}

func TestResolveNoFilingsIsAbsent(t *testing.T) {
	link, err := testResolver(&listingFetcher{}, 1).Resolve(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), link.ID)
	assert.Nil(t, link.URL)
}

func TestResolveAllSequential(t *testing.T) {
	f := &listingFetcher{
		primary: map[int64][]string{
			1: {"/Archives/edgar/data/1/0001-index.htm"},
			3: {"/Archives/edgar/data/3/0003-index.htm"},
		},
	}
	var order []int64
	r := NewWithConfig(f, ResolverConfig{
		BrowseURL:  "cik=%d&type=%s&count=%d",
		OnProgress: func(cik int64) { order = append(order, cik) },
	})

	links, err := r.ResolveAll(context.Background(), []int64{3, 2, 1})
	require.NoError(t, err)
	require.Len(t, links, 3)

	assert.Equal(t, []int64{3, 2, 1}, order)
	assert.Equal(t, "https://www.sec.gov/Archives/edgar/data/3/0003.txt", *links[0].URL)
	assert.Nil(t, links[1].URL)
	assert.Equal(t, "https://www.sec.gov/Archives/edgar/data/1/0001.txt", *links[2].URL)
}

func TestResolveAllStopsOnFirstError(t *testing.T) {
	f := &listingFetcher{fail: map[int64]bool{2: true}}

	links, err := testResolver(f, 1).ResolveAll(context.Background(), []int64{1, 2, 3})
	require.Error(t, err)
	assert.Nil(t, links)
	assert.Contains(t, err.Error(), "resolving CIK 2")
	for _, call := range f.calls {
		assert.NotContains(t, call, "cik=3&")
	}
}

func TestResolveAllConcurrentPreservesOrder(t *testing.T) {
	f := &listingFetcher{primary: map[int64][]string{}}
	ciks := make([]int64, 40)
	for i := range ciks {
		ciks[i] = int64(i + 1)
		f.primary[ciks[i]] = []string{fmt.Sprintf("/Archives/edgar/data/%d/%04d-index.htm", i+1, i+1)}
	}

	var done int32
	r := NewWithConfig(f, ResolverConfig{
		BrowseURL:  "cik=%d&type=%s&count=%d",
		Workers:    4,
		OnProgress: func(int64) { atomic.AddInt32(&done, 1) },
	})

	links, err := r.ResolveAll(context.Background(), ciks)
	require.NoError(t, err)
	require.Len(t, links, len(ciks))
	for i, link := range links {
		assert.Equal(t, ciks[i], link.ID)
		assert.Equal(t, fmt.Sprintf("https://www.sec.gov/Archives/edgar/data/%d/%04d.txt", i+1, i+1), *link.URL)
	}
	assert.Equal(t, int32(len(ciks)), atomic.LoadInt32(&done))
}

func TestResolveAllConcurrentError(t *testing.T) {
	f := &listingFetcher{fail: map[int64]bool{5: true}}
	_, err := testResolver(f, 3).ResolveAll(context.Background(), []int64{1, 2, 3, 4, 5, 6})
	assert.Error(t, err)
}

func TestResolveOverHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "320193", r.URL.Query().Get("CIK"))
		if r.URL.Query().Get("type") == "10-K/A" {
			w.Write([]byte(listingPage(nil)))
			return
		}
		w.Write([]byte(listingPage([]string{apple2023})))
	}))
	defer server.Close()

	s, err := scraper.NewWithConfig(scraper.ScraperConfig{RateLimit: 100})
	require.NoError(t, err)

	r := NewWithConfig(s, ResolverConfig{
		BaseURL:   server.URL,
		BrowseURL: server.URL + "/cgi-bin/browse-edgar?action=getcompany&CIK=%d&type=%s&dateb=&owner=include&count=%d",
	})

	link, err := r.Resolve(context.Background(), 320193)
	require.NoError(t, err)
	require.NotNil(t, link.URL)
	assert.Equal(t, server.URL+"/Archives/edgar/data/320193/000032019323000106.txt", *link.URL)
}

func TestListingURL(t *testing.T) {
	r := NewWithConfig(&listingFetcher{}, ResolverConfig{})
	assert.Equal(t,
		"https://www.sec.gov/cgi-bin/browse-edgar?action=getcompany&CIK=320193&type=10-K/A&dateb=&owner=include&count=10",
		r.ListingURL(320193, "10-K/A"))
}
