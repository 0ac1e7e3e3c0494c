// Package ranking filters, orders and paginates an immutable snapshot of the
// business catalog joined with rating aggregates.
package ranking

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/PoojiKatru/local-business-finder/internal/domain"
	"github.com/PoojiKatru/local-business-finder/pkg/pagination"
)

type entry struct {
	business domain.Business
	agg      domain.RatingAggregate
	name     string // case-folded
	desc     string // case-folded
}

// Snapshot is a point-in-time view of the catalog and its aggregates. Listing
// and category counts computed from the same Snapshot are always consistent.
// A Snapshot is immutable and safe for concurrent use.
type Snapshot struct {
	entries []entry
	counts  []domain.CategoryCount
	takenAt time.Time
}

// NewSnapshot joins businesses with their aggregates. Businesses without an
// aggregate get the zero aggregate.
func NewSnapshot(businesses []domain.Business, aggregates map[string]domain.RatingAggregate, takenAt time.Time) *Snapshot {
	fold := cases.Fold()
	s := &Snapshot{
		entries: make([]entry, 0, len(businesses)),
		takenAt: takenAt,
	}

	perCategory := make(map[domain.Category]int)
	for _, b := range businesses {
		agg, ok := aggregates[b.ID]
		if !ok {
			agg = domain.NewRatingAggregate(b.ID)
		}
		s.entries = append(s.entries, entry{
			business: b,
			agg:      agg,
			name:     fold.String(b.Name),
			desc:     fold.String(b.Description),
		})
		perCategory[b.Category]++
	}
	sort.Slice(s.entries, func(i, j int) bool {
		return s.entries[i].business.ID < s.entries[j].business.ID
	})

	for _, c := range domain.Categories() {
		s.counts = append(s.counts, domain.CategoryCount{Category: c, Count: perCategory[c]})
	}
	return s
}

// TakenAt returns when the snapshot was assembled.
func (s *Snapshot) TakenAt() time.Time { return s.takenAt }

// Len returns the number of businesses in the snapshot.
func (s *Snapshot) Len() int { return len(s.entries) }

// Aggregate returns the aggregate of one business in the snapshot.
func (s *Snapshot) Aggregate(businessID string) (domain.RatingAggregate, bool) {
	i := sort.Search(len(s.entries), func(i int) bool { return s.entries[i].business.ID >= businessID })
	if i < len(s.entries) && s.entries[i].business.ID == businessID {
		return s.entries[i].agg, true
	}
	return domain.RatingAggregate{}, false
}

// CategoryCounts returns the number of businesses in every category of the
// enumeration, zeros included, in enumeration order. Other filters are
// ignored.
func (s *Snapshot) CategoryCounts() []domain.CategoryCount {
	return append([]domain.CategoryCount(nil), s.counts...)
}

// List returns one page of the businesses matching q in q.Sort order. An
// offset past the end yields an empty page carrying the full total.
func (s *Snapshot) List(q domain.ListingQuery) pagination.Result[domain.BusinessSummary] {
	matched := s.Select(q)

	params := pagination.Params{Offset: q.Offset, Limit: q.Limit}.Normalize()
	start, end := pagination.Window(len(matched), params)

	return pagination.NewResult(matched[start:end], len(matched), params)
}

// Select returns every business matching q's filters in q.Sort order,
// ignoring pagination.
func (s *Snapshot) Select(q domain.ListingQuery) []domain.BusinessSummary {
	term := ""
	if t := strings.TrimSpace(q.Term); t != "" {
		term = cases.Fold().String(t)
	}

	matched := make([]entry, 0, len(s.entries))
	for _, e := range s.entries {
		if q.Category != "" && e.business.Category != q.Category {
			continue
		}
		if term != "" && !strings.Contains(e.name, term) && !strings.Contains(e.desc, term) {
			continue
		}
		matched = append(matched, e)
	}

	less := comparator(q.Sort)
	sort.Slice(matched, func(i, j int) bool { return less(&matched[i], &matched[j]) })

	out := make([]domain.BusinessSummary, len(matched))
	for i, e := range matched {
		out[i] = domain.NewBusinessSummary(e.business, e.agg)
	}
	return out
}

// comparator returns a strict total order for key. Every chain ends on the
// unique business id.
func comparator(key domain.SortKey) func(a, b *entry) bool {
	switch key {
	case domain.SortReviews:
		return func(a, b *entry) bool {
			if a.agg.Count != b.agg.Count {
				return a.agg.Count > b.agg.Count
			}
			return createdAsc(a, b)
		}
	case domain.SortName:
		return func(a, b *entry) bool {
			if a.name != b.name {
				return a.name < b.name
			}
			if a.business.Name != b.business.Name {
				return a.business.Name < b.business.Name
			}
			return a.business.ID < b.business.ID
		}
	case domain.SortNewest:
		return func(a, b *entry) bool {
			if !a.business.CreatedAt.Equal(b.business.CreatedAt) {
				return a.business.CreatedAt.After(b.business.CreatedAt)
			}
			return a.business.ID < b.business.ID
		}
	default:
		return func(a, b *entry) bool {
			if c := domain.CompareMean(a.agg, b.agg); c != 0 {
				return c > 0
			}
			if a.agg.Count != b.agg.Count {
				return a.agg.Count > b.agg.Count
			}
			return createdAsc(a, b)
		}
	}
}

func createdAsc(a, b *entry) bool {
	if !a.business.CreatedAt.Equal(b.business.CreatedAt) {
		return a.business.CreatedAt.Before(b.business.CreatedAt)
	}
	return a.business.ID < b.business.ID
}
