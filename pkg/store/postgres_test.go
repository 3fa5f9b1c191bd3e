package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/filingmap/internal/models"
)

func getTestConfig(t *testing.T) StoreConfig {
	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	return StoreConfig{
		ConnString: connString,
		TableName:  "test_filing_links",
	}
}

func TestLinkStore(t *testing.T) {
	ctx := context.Background()
	s, err := NewWithConfig(ctx, getTestConfig(t))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.pool.Exec(ctx, "TRUNCATE "+s.tableName())
	require.NoError(t, err)

	url := "https://www.sec.gov/Archives/edgar/data/320193/000032019323000106.txt"
	records := []models.OutputRecord{
		{
			JoinedRecord: models.JoinedRecord{ID: 320193, Ticker: "AAPL", NameA: "Apple Inc.", NameB: "Apple Inc.", DateAdded: "1982-11-30", Sector: "Information Technology", SubIndustry: "Technology Hardware, Storage & Peripherals"},
			URL:          &url,
		},
		{
			JoinedRecord: models.JoinedRecord{ID: 1652044, Ticker: "GOOG", NameA: "Alphabet Inc.", NameB: "Alphabet Inc. (Class C)"},
		},
	}

	require.NoError(t, s.Store(ctx, records))
	// Storing twice updates in place
	require.NoError(t, s.Store(ctx, records))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestTableNameIsQuoted(t *testing.T) {
	s := &LinkStore{config: StoreConfig{TableName: "filing_links"}}
	assert.Equal(t, `"filing_links"`, s.tableName())
}

func TestSanitizeUTF8(t *testing.T) {
	assert.Equal(t, "Nestlé", sanitizeUTF8("Nestlé"))
	assert.Equal(t, "abc", sanitizeUTF8("a\xffb\xfec"))
}
