package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/filingmap/internal/models"
	"github.com/xhad/filingmap/pkg/writer"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { configPath = "" })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestParseCIKs(t *testing.T) {
	ciks, err := parseCIKs([]string{"0000320193", "789019"})
	require.NoError(t, err)
	assert.Equal(t, []int64{320193, 789019}, ciks)

	for _, bad := range []string{"AAPL", "0", "-5", ""} {
		_, err := parseCIKs([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestInspectCommand(t *testing.T) {
	url := "https://www.sec.gov/Archives/edgar/data/320193/000032019323000106.txt"
	path := filepath.Join(t.TempDir(), "links.csv")
	require.NoError(t, writer.WriteCSV(path, []models.OutputRecord{
		{JoinedRecord: models.JoinedRecord{ID: 320193, Ticker: "AAPL"}, URL: &url},
		{JoinedRecord: models.JoinedRecord{ID: 1067983, Ticker: "BRK-B"}},
	}))

	out, err := execute(t, "inspect", path)
	require.NoError(t, err)
	assert.Contains(t, out, "2 rows, 1 with a document URL")
	assert.Contains(t, out, "missing: BRK-B")
}

func TestResolveCommand(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("CIK") == "320193" && r.URL.Query().Get("type") == "10-K" {
			fmt.Fprint(w, `<a href="/Archives/edgar/data/320193/000032019323000106-index.htm">Documents</a>`)
			return
		}
		fmt.Fprint(w, `<html><body>No matching filings.</body></html>`)
	}))
	defer server.Close()

	configFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte(fmt.Sprintf(`
http:
  rate_limit: 100
edgar:
  base_url: %q
`, server.URL)), 0644))

	out, err := execute(t, "resolve", "--config", configFile, "320193", "42")
	require.NoError(t, err)
	assert.Contains(t, out, "320193\t"+server.URL+"/Archives/edgar/data/320193/000032019323000106.txt")
	assert.Contains(t, out, "42\tno 10-K found")
}

func TestResolveCommandRejectsBadCIK(t *testing.T) {
	_, err := execute(t, "resolve", "AAPL")
	assert.Error(t, err)
}
