package processor

import (
	"strings"

	"github.com/xhad/filingmap/internal/models"
)

type ProcessorConfig struct {
	// NormalizeTickers maps share-class dots to dashes on membership tickers
	// (BRK.B -> BRK-B) so they match the SEC spelling.
	NormalizeTickers bool
}

type Processor struct {
	config ProcessorConfig
}

func NewWithConfig(config ProcessorConfig) Processor {
	return Processor{
		config: config,
	}
}

// Process joins identifiers with index members and keeps one row per CIK.
func (p *Processor) Process(ids []models.IdentifierRecord, members []models.MembershipRecord) []models.JoinedRecord {
	if p.config.NormalizeTickers {
		members = normalizeTickers(members)
	}
	return Dedup(Join(ids, members))
}

// Join is an inner equi-join on ticker. Rows follow the order of ids; a
// ticker present on only one side is dropped. When a ticker repeats among
// members every match is emitted.
func Join(ids []models.IdentifierRecord, members []models.MembershipRecord) []models.JoinedRecord {
	byTicker := make(map[string][]models.MembershipRecord, len(members))
	for _, m := range members {
		byTicker[m.Ticker] = append(byTicker[m.Ticker], m)
	}

	var joined []models.JoinedRecord
	for _, id := range ids {
		for _, m := range byTicker[id.Ticker] {
			joined = append(joined, models.JoinedRecord{
				ID:          id.ID,
				Ticker:      id.Ticker,
				NameA:       id.Name,
				NameB:       m.Name,
				DateAdded:   m.DateAdded,
				Sector:      m.Sector,
				SubIndustry: m.SubIndustry,
			})
		}
	}

	return joined
}

// Dedup keeps the first row seen for each CIK. Companies with several share
// classes (GOOG, GOOGL) file under a single CIK; which ticker survives
// depends only on the order of rows.
func Dedup(rows []models.JoinedRecord) []models.JoinedRecord {
	seen := make(map[int64]bool, len(rows))
	var unique []models.JoinedRecord

	for _, row := range rows {
		if seen[row.ID] {
			continue
		}
		seen[row.ID] = true
		unique = append(unique, row)
	}

	return unique
}

func normalizeTickers(members []models.MembershipRecord) []models.MembershipRecord {
	out := make([]models.MembershipRecord, len(members))
	for i, m := range members {
		m.Ticker = strings.ReplaceAll(m.Ticker, ".", "-")
		out[i] = m
	}
	return out
}
