package writer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xhad/filingmap/internal/models"
)

const DefaultOutputPath = "sp500_10k_urls.csv"

var Header = []string{
	"id",
	"ticker",
	"name_source_a",
	"name_source_b",
	"added",
	"sector",
	"sub_industry",
	"url",
}

var ErrUnexpectedHeader = errors.New("unexpected CSV header")

// Merge attaches resolved links to the joined rows by CIK. Rows without a
// link keep an absent URL.
func Merge(rows []models.JoinedRecord, links []models.DocumentLink) []models.OutputRecord {
	byID := make(map[int64]*string, len(links))
	for _, link := range links {
		byID[link.ID] = link.URL
	}

	out := make([]models.OutputRecord, len(rows))
	for i, row := range rows {
		out[i] = models.OutputRecord{
			JoinedRecord: row,
			URL:          byID[row.ID],
		}
	}
	return out
}

// WriteCSV replaces the file at path with records. The data is written to a
// temporary file in the same directory and renamed over path once complete.
func WriteCSV(path string, records []models.OutputRecord) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, records); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Encode writes the header and one line per record. An absent URL is an
// empty cell.
func Encode(w io.Writer, records []models.OutputRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, r := range records {
		url := ""
		if r.URL != nil {
			url = *r.URL
		}
		err := cw.Write([]string{
			strconv.FormatInt(r.ID, 10),
			r.Ticker,
			r.NameA,
			r.NameB,
			r.DateAdded,
			r.Sector,
			r.SubIndustry,
			url,
		})
		if err != nil {
			return fmt.Errorf("failed to write record %d: %w", r.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func ReadCSV(path string) ([]models.OutputRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses output written by Encode. Empty url cells decode as absent.
func Decode(r io.Reader) ([]models.OutputRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i, name := range Header {
		if header[i] != name {
			return nil, fmt.Errorf("%w: column %d is %q, want %q", ErrUnexpectedHeader, i, header[i], name)
		}
	}

	var records []models.OutputRecord
	for {
		line, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		id, err := strconv.ParseInt(line[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", line[0], err)
		}
		record := models.OutputRecord{
			JoinedRecord: models.JoinedRecord{
				ID:          id,
				Ticker:      line[1],
				NameA:       line[2],
				NameB:       line[3],
				DateAdded:   line[4],
				Sector:      line[5],
				SubIndustry: line[6],
			},
		}
		if line[7] != "" {
			url := line[7]
			record.URL = &url
		}
		records = append(records, record)
	}

	return records, nil
}
