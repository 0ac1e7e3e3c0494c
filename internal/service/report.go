package service

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/PoojiKatru/local-business-finder/internal/domain"
	apperrors "github.com/PoojiKatru/local-business-finder/pkg/errors"
)

// ReportType selects the sections of an analytics report.
type ReportType string

const (
	ReportSummary  ReportType = "summary"
	ReportCategory ReportType = "category"
	ReportRatings  ReportType = "ratings"
)

// reportTopN is the length of the top-rated and most-reviewed lists.
const reportTopN = 10

// ReportInput holds the parameters for generating a report. An empty
// category covers the whole catalog.
type ReportInput struct {
	Type     ReportType
	Category domain.Category
}

// SummaryStats holds catalog-wide totals. AverageRating is the mean of the
// per-business means of rated businesses.
type SummaryStats struct {
	TotalBusinesses int     `json:"total_businesses"`
	RatedBusinesses int     `json:"rated_businesses"`
	TotalReviews    int64   `json:"total_reviews"`
	AverageRating   float64 `json:"average_rating"`
}

// CategoryStats aggregates one category.
type CategoryStats struct {
	Category      domain.Category `json:"category"`
	Businesses    int             `json:"businesses"`
	Reviews       int64           `json:"reviews"`
	AverageRating float64         `json:"average_rating"`
}

// ReportEntry is one business in a ranked report list.
type ReportEntry struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Category domain.Category `json:"category"`
	Rating   *float64        `json:"rating"`
	Reviews  int64           `json:"reviews"`
}

// Report is an analytics report computed from a single snapshot.
type Report struct {
	Type              ReportType      `json:"type"`
	Category          string          `json:"category"`
	GeneratedAt       time.Time       `json:"generated_at"`
	Summary           SummaryStats    `json:"summary"`
	CategoryBreakdown []CategoryStats `json:"category_breakdown,omitempty"`
	TopRated          []ReportEntry   `json:"top_rated,omitempty"`
	MostReviewed      []ReportEntry   `json:"most_reviewed,omitempty"`
}

// ParseReportType matches s case-insensitively. Empty selects the summary.
func ParseReportType(s string) (ReportType, bool) {
	switch t := ReportType(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return ReportSummary, true
	case ReportSummary, ReportCategory, ReportRatings:
		return t, true
	default:
		return "", false
	}
}

// ReportService computes analytics reports over the discovery snapshot.
type ReportService struct {
	discovery *DiscoveryService
	logger    *slog.Logger
}

// NewReportService creates a new report service.
func NewReportService(discovery *DiscoveryService, logger *slog.Logger) *ReportService {
	return &ReportService{discovery: discovery, logger: logger}
}

// Generate builds the report. A summary report carries every section; the
// category and ratings reports carry the summary plus their own section.
func (s *ReportService) Generate(ctx context.Context, in ReportInput) (*Report, error) {
	t, ok := ParseReportType(string(in.Type))
	if !ok {
		return nil, apperrors.InvalidInput("report type must be one of: summary, category, ratings")
	}
	in.Type = t
	if in.Category != "" && !in.Category.Valid() {
		return nil, apperrors.InvalidInput("unknown category " + string(in.Category))
	}

	snap, err := s.discovery.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	scope := "all"
	if in.Category != "" {
		scope = string(in.Category)
	}
	report := &Report{
		Type:        in.Type,
		Category:    scope,
		GeneratedAt: snap.TakenAt(),
	}

	byRating := snap.Select(domain.ListingQuery{Category: in.Category, Sort: domain.SortRating})
	report.Summary = summarize(byRating)

	if in.Type == ReportSummary || in.Type == ReportCategory {
		report.CategoryBreakdown = breakdown(byRating, in.Category)
	}
	if in.Type == ReportSummary || in.Type == ReportRatings {
		report.TopRated = topEntries(byRating)
		report.MostReviewed = topEntries(snap.Select(domain.ListingQuery{Category: in.Category, Sort: domain.SortReviews}))
	}

	s.logger.InfoContext(ctx, "report generated",
		slog.String("type", string(report.Type)),
		slog.String("category", scope),
		slog.Int("businesses", report.Summary.TotalBusinesses),
	)
	return report, nil
}

func summarize(items []domain.BusinessSummary) SummaryStats {
	var (
		sum     SummaryStats
		meanSum float64
	)
	sum.TotalBusinesses = len(items)
	for _, it := range items {
		sum.TotalReviews += it.ReviewCount
		if it.Mean != nil {
			sum.RatedBusinesses++
			meanSum += *it.Mean
		}
	}
	if sum.RatedBusinesses > 0 {
		sum.AverageRating = round(meanSum/float64(sum.RatedBusinesses), 2)
	}
	return sum
}

// breakdown returns one entry per category of the enumeration, or only the
// filtered category.
func breakdown(items []domain.BusinessSummary, only domain.Category) []CategoryStats {
	type acc struct {
		stats   CategoryStats
		rated   int
		meanSum float64
	}
	accs := make(map[domain.Category]*acc)
	for _, c := range domain.Categories() {
		accs[c] = &acc{stats: CategoryStats{Category: c}}
	}
	for _, it := range items {
		a, ok := accs[it.Category]
		if !ok {
			continue
		}
		a.stats.Businesses++
		a.stats.Reviews += it.ReviewCount
		if it.Mean != nil {
			a.rated++
			a.meanSum += *it.Mean
		}
	}

	var out []CategoryStats
	for _, c := range domain.Categories() {
		if only != "" && c != only {
			continue
		}
		a := accs[c]
		if a.rated > 0 {
			a.stats.AverageRating = round(a.meanSum/float64(a.rated), 1)
		}
		out = append(out, a.stats)
	}
	return out
}

func topEntries(items []domain.BusinessSummary) []ReportEntry {
	n := min(len(items), reportTopN)
	out := make([]ReportEntry, n)
	for i, it := range items[:n] {
		out[i] = ReportEntry{
			ID:       it.ID,
			Name:     it.Name,
			Category: it.Category,
			Rating:   it.AverageRating,
			Reviews:  it.ReviewCount,
		}
	}
	return out
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
