package domain

import "time"

// ArticleStub is a search hit before its body has been fetched.
type ArticleStub struct {
	Title          string    `json:"title"`
	Link           string    `json:"link"`
	RawPublishedAt string    `json:"rawPublishedAt,omitempty"`
	PublishedAt    time.Time `json:"publishedAt"`
}

// Day returns the calendar day of the publication timestamp in its own zone.
func (s ArticleStub) Day() string {
	return s.PublishedAt.Format("2006-01-02")
}

// Article is a stub whose body has been fetched and cleaned.
type Article struct {
	ArticleStub
	Body string `json:"body"`
}

// AnalysisStatus enumerates the lifecycle of a stored analysis.
type AnalysisStatus string

const (
	StatusCompleted AnalysisStatus = "completed"
	StatusFailed    AnalysisStatus = "failed"
)

// AnalysisRecord is the finished analysis handed to persistence.
type AnalysisRecord struct {
	ID           int64          `json:"id"`
	CompanyName  string         `json:"companyName"`
	FilingReport string         `json:"filingReport"`
	FilingResult string         `json:"filingResult"`
	FilingError  string         `json:"filingError,omitempty"`
	NewsCount    int            `json:"newsCount"`
	NewsResult   string         `json:"newsResult"`
	Status       AnalysisStatus `json:"status"`
	Bookmarked   bool           `json:"bookmarked"`
	CreatedAt    time.Time      `json:"createdAt"`
}
