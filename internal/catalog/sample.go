package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/PoojiKatru/local-business-finder/internal/domain"
	"github.com/PoojiKatru/local-business-finder/internal/repository"
	apperrors "github.com/PoojiKatru/local-business-finder/pkg/errors"
	"github.com/PoojiKatru/local-business-finder/pkg/slug"
)

type sampleBusiness struct {
	name, description, address, phone, website string
	category                                   domain.Category
}

var sampleBusinesses = []sampleBusiness{
	{"The Rustic Table", "Farm-to-table restaurant featuring locally sourced ingredients and seasonal menus.", "123 Main Street, Downtown", "(555) 123-4567", "https://rustictable.com", domain.CategoryFood},
	{"Craft & Co", "Artisan goods and handcrafted items from local makers.", "456 Oak Avenue, Arts District", "(555) 234-5678", "https://craftandco.com", domain.CategoryRetail},
	{"Bloom Beauty Studio", "Full-service beauty salon offering haircuts, coloring, skincare, and spa treatments.", "789 Elm Street, Midtown", "(555) 345-6789", "https://bloombeauty.com", domain.CategoryServices},
	{"Pixel Arcade & Gaming", "Retro arcade meets modern gaming lounge with pinball, vintage video games and VR.", "321 Game Lane, Entertainment District", "(555) 456-7890", "https://pixelarcade.com", domain.CategoryEntertainment},
	{"Zenith Yoga & Wellness", "Tranquil yoga studio with classes for all levels, meditation and wellness programs.", "567 Peaceful Way, Wellness Center", "(555) 567-8901", "https://zenithyoga.com", domain.CategoryHealth},
	{"The Daily Grind", "Specialty coffee roastery and cafe with espresso drinks and fresh pastries.", "890 Coffee Court, Riverside", "(555) 678-9012", "https://dailygrind.com", domain.CategoryFood},
	{"Green Thumb Garden Center", "Plants, tools, soil, and expert advice for your garden and outdoor space.", "234 Botanical Blvd, Garden District", "(555) 789-0123", "https://greenthumb.com", domain.CategoryRetail},
	{"Fix-It Tech Solutions", "Computer repair, phone screen replacement, and IT support for homes and small businesses.", "456 Tech Plaza, Innovation Hub", "(555) 890-1234", "https://fixittech.com", domain.CategoryServices},
	{"Moonlight Cinema", "Indie film theater showcasing independent and international cinema.", "789 Film Row, Cultural Center", "(555) 901-2345", "https://moonlightcinema.com", domain.CategoryEntertainment},
	{"Peak Performance Gym", "Fitness facility with personal training, group classes, and top-tier equipment.", "901 Fitness Lane, Sports Complex", "(555) 012-3456", "https://peakgym.com", domain.CategoryHealth},
	{"Bella Italia Trattoria", "Authentic Italian cuisine with wood-fired pizzas, handmade pasta, and fine wines.", "345 Italian Way, Little Italy", "(555) 234-5670", "https://bellaitalia.com", domain.CategoryFood},
	{"Page Turner Books", "Independent bookstore with curated selections, author events, and a cozy reading nook.", "678 Literary Lane, University District", "(555) 345-6780", "https://pageturner.com", domain.CategoryRetail},
}

// sampleReviews maps an index into sampleBusinesses to one review.
var sampleReviews = []struct {
	business int
	rating   int
	title    string
	content  string
}{
	{0, 5, "Amazing experience!", "The food was incredible and the service was top-notch."},
	{0, 4, "Great atmosphere", "Beautiful restaurant with delicious farm-fresh dishes."},
	{1, 5, "Found unique gifts", "So many wonderful handcrafted items!"},
	{2, 5, "Best haircut ever", "The stylists here really listen to what you want."},
	{2, 4, "Relaxing spa day", "Booked a full spa package and it was heavenly."},
	{3, 5, "Nostalgia overload!", "All the classic arcade games from my childhood plus new VR stuff."},
	{4, 5, "Life-changing yoga", "The instructors are amazing and my flexibility has improved so much."},
	{5, 4, "Coffee perfection", "Best espresso in town. Gets busy on weekends."},
	{5, 5, "My daily stop", "Cannot start my day without their cold brew."},
	{6, 4, "Plant paradise", "Huge selection of plants and great advice for my balcony garden."},
	{7, 5, "Fixed my laptop fast", "Had my laptop back the next day. Great service!"},
	{8, 4, "Unique film selection", "Love discovering indie films here."},
	{9, 5, "Best gym around", "Clean facilities, modern equipment, and great trainers."},
	{10, 5, "Authentic Italian", "Feels like being in Italy! The homemade pasta is incredible."},
	{11, 5, "Book lover heaven", "Such a cozy shop with excellent recommendations."},
}

// SampleBusinesses returns the demo catalog. Ids are slugs of the names and
// creation times are one hour apart starting at base.
func SampleBusinesses(base time.Time) []domain.Business {
	taken := make(map[string]bool, len(sampleBusinesses))
	out := make([]domain.Business, len(sampleBusinesses))
	for i, s := range sampleBusinesses {
		id := slug.Unique(s.name, func(candidate string) bool { return taken[candidate] })
		taken[id] = true
		out[i] = domain.Business{
			ID:          id,
			Name:        s.name,
			Description: s.description,
			Category:    s.category,
			Address:     s.address,
			Phone:       s.phone,
			Website:     s.website,
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
		}
	}
	return out
}

// Seed writes the demo catalog and its reviews. Review ids are derived from
// their position, so seeding twice stores each review once. Aggregates are
// left to the caller, which rebuilds them from the stored reviews.
func Seed(ctx context.Context, businesses repository.BusinessWriter, reviews repository.ReviewRepository, base time.Time) ([]domain.Business, error) {
	catalog := SampleBusinesses(base)
	for i := range catalog {
		if err := businesses.Upsert(ctx, &catalog[i]); err != nil {
			return nil, fmt.Errorf("seed business %s: %w", catalog[i].ID, err)
		}
	}

	for i, r := range sampleReviews {
		review := &domain.Review{
			ID:         uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("localboost-sample-review-%d", i))).String(),
			BusinessID: catalog[r.business].ID,
			Rating:     r.rating,
			Title:      r.title,
			Content:    r.content,
			CreatedAt:  base.Add(time.Duration(len(catalog)+i) * time.Hour),
		}
		if err := reviews.Create(ctx, review); err != nil {
			if errors.Is(err, apperrors.ErrAlreadyExists) {
				continue
			}
			return nil, fmt.Errorf("seed review for %s: %w", review.BusinessID, err)
		}
	}
	return catalog, nil
}
