package models

// IdentifierRecord is one row of the SEC ticker file.
type IdentifierRecord struct {
	ID     int64
	Ticker string
	Name   string
}

// MembershipRecord is one row of the index constituents table.
type MembershipRecord struct {
	Ticker      string
	Name        string
	DateAdded   string
	Sector      string
	SubIndustry string
}

type JoinedRecord struct {
	ID          int64
	Ticker      string
	NameA       string
	NameB       string
	DateAdded   string
	Sector      string
	SubIndustry string
}

// DocumentLink holds the resolved filing URL for a CIK. URL is nil when no
// qualifying filing was found.
type DocumentLink struct {
	ID  int64
	URL *string
}

type OutputRecord struct {
	JoinedRecord
	URL *string
}

// HasURL reports whether a document URL was resolved for the record.
func (o OutputRecord) HasURL() bool {
	return o.URL != nil
}
