// Package sources fetches the two identifier inputs: the SEC ticker file and
// the index constituents table.
package sources

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/xhad/filingmap/internal/models"
	"github.com/xhad/filingmap/internal/types"
)

const (
	DefaultTickersURL    = "https://www.sec.gov/files/company_tickers.json"
	DefaultMembershipURL = "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies"
)

var (
	ErrMalformedPayload = errors.New("malformed payload")
	ErrMissingTable     = errors.New("no table found")
	ErrMissingColumn    = errors.New("required column missing")

	footnote = regexp.MustCompile(`\[[^\]]*\]`)
)

// Column headers of the constituents table, in output order.
var MembershipColumns = []string{
	"Symbol",
	"Security",
	"Date added",
	"GICS Sector",
	"GICS Sub-Industry",
}

type tickerEntry struct {
	CIK    *int64  `json:"cik_str"`
	Ticker *string `json:"ticker"`
	Title  string  `json:"title"`
}

// FetchIdentifiers loads the CIK to ticker mapping. The payload is an object
// keyed by row index; records are returned in ascending index order.
func FetchIdentifiers(ctx context.Context, fetcher types.Fetcher, url string) ([]models.IdentifierRecord, error) {
	var payload map[string]tickerEntry
	if err := fetcher.FetchJSON(ctx, url, &payload); err != nil {
		return nil, fmt.Errorf("failed to fetch identifiers: %w", err)
	}
	return parseIdentifiers(payload)
}

func parseIdentifiers(payload map[string]tickerEntry) ([]models.IdentifierRecord, error) {
	type indexed struct {
		pos int
		rec models.IdentifierRecord
	}

	rows := make([]indexed, 0, len(payload))
	for key, entry := range payload {
		pos, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("%w: row key %q is not an index", ErrMalformedPayload, key)
		}
		if entry.CIK == nil || entry.Ticker == nil {
			return nil, fmt.Errorf("%w: row %s lacks cik_str or ticker", ErrMalformedPayload, key)
		}
		rows = append(rows, indexed{
			pos: pos,
			rec: models.IdentifierRecord{
				ID:     *entry.CIK,
				Ticker: *entry.Ticker,
				Name:   entry.Title,
			},
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].pos < rows[j].pos })

	records := make([]models.IdentifierRecord, len(rows))
	for i, r := range rows {
		records[i] = r.rec
	}
	return records, nil
}

// FetchMembership loads the first table of the constituents page, keeping the
// five MembershipColumns.
func FetchMembership(ctx context.Context, fetcher types.Fetcher, url string) ([]models.MembershipRecord, error) {
	doc, err := fetcher.FetchDocument(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch membership table: %w", err)
	}
	return ParseMembership(doc)
}

func ParseMembership(doc *goquery.Document) ([]models.MembershipRecord, error) {
	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, ErrMissingTable
	}

	rows := table.Find("tr")
	header := rows.First().Find("th")
	if header.Length() == 0 {
		header = rows.First().Find("td")
	}

	positions := make(map[string]int)
	header.Each(func(i int, cell *goquery.Selection) {
		positions[stripFootnotes(cellText(cell))] = i
	})

	columns := make([]int, len(MembershipColumns))
	width := 0
	for i, name := range MembershipColumns {
		pos, ok := positions[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		columns[i] = pos
		if pos+1 > width {
			width = pos + 1
		}
	}

	var (
		records []models.MembershipRecord
		rowErr  error
	)
	rows.Slice(1, rows.Length()).EachWithBreak(func(i int, row *goquery.Selection) bool {
		cells := row.Find("td, th")
		if cells.Length() == 0 {
			return true
		}
		// Cells past the last required column may be missing.
		if cells.Length() < width {
			rowErr = fmt.Errorf("%w: row %d has %d cells, need %d", ErrMalformedPayload, i+1, cells.Length(), width)
			return false
		}
		value := func(col int) string {
			return cellText(cells.Eq(columns[col]))
		}
		records = append(records, models.MembershipRecord{
			Ticker:      value(0),
			Name:        value(1),
			DateAdded:   stripFootnotes(value(2)),
			Sector:      value(3),
			SubIndustry: value(4),
		})
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}

	return records, nil
}

func cellText(cell *goquery.Selection) string {
	return strings.Join(strings.Fields(cell.Text()), " ")
}

// stripFootnotes drops reference markers such as "[4]".
func stripFootnotes(text string) string {
	return strings.TrimSpace(footnote.ReplaceAllString(text, ""))
}
