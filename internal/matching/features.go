package matching

import (
	"fmt"
	"math"
	"time"

	"github.com/SlowlyFire/Hobbinder/internal/events"
	"github.com/SlowlyFire/Hobbinder/internal/geo"
	"github.com/SlowlyFire/Hobbinder/internal/users"
)

// Feature scaling constants. The model was trained against these exact
// scales; changing one silently shifts every score.
const (
	distanceScaleKm  = 10.0
	tenureScaleYears = 5.0
	ageScaleYears    = 20.0
	hoursPerYear     = 24 * 365
)

// Features is the model input for one user/event pair, every component
// already scaled. Distance is open-ended; the rest live in [0,1].
type Features struct {
	Distance            float64 `json:"distance"`
	CategoryMatch       float64 `json:"categoryMatch"`
	UserTenure          float64 `json:"userExistingTime"`
	LikeRatioSimilarity float64 `json:"likeRatioSimilarity"`
	AgeSimilarity       float64 `json:"ageSimilarity"`
}

// Vector returns the features in the fixed order the model was trained on.
func (f Features) Vector() []float64 {
	return []float64{
		f.Distance,
		f.CategoryMatch,
		f.UserTenure,
		f.LikeRatioSimilarity,
		f.AgeSimilarity,
	}
}

// CalculateFeatures builds the feature vector for scoring event against
// user. distanceKm and categoryMatch normally come from the derived caches;
// on a cache miss the caller computes them directly, the result is the same.
func CalculateFeatures(user *users.User, event *events.Event, creator *users.User, distanceKm float64, categoryMatch bool, now time.Time) Features {
	f := Features{
		Distance:            distanceKm / distanceScaleKm,
		LikeRatioSimilarity: 1 - math.Abs(user.LikeRatio-creator.LikeRatio),
	}

	if categoryMatch {
		f.CategoryMatch = 1
	}

	tenureYears := now.Sub(user.CreatedAt).Hours() / hoursPerYear
	f.UserTenure = math.Min(tenureYears/tenureScaleYears, 1)

	// Unknown birthdays read as a perfect age match rather than a penalty.
	if user.Birthday == nil || creator.Birthday == nil {
		f.AgeSimilarity = 1
	} else {
		gap := math.Abs(float64(age(*user.Birthday, now) - age(*creator.Birthday, now)))
		f.AgeSimilarity = math.Max(0, 1-gap/ageScaleYears)
	}

	return f
}

// age is the calendar-year difference, decremented when the birthday has
// not yet occurred this year.
func age(birthday, now time.Time) int {
	years := now.Year() - birthday.Year()
	if now.Month() < birthday.Month() ||
		(now.Month() == birthday.Month() && now.Day() < birthday.Day()) {
		years--
	}
	return years
}

// DirectDistance computes the user-to-event distance without the cache,
// substituting the zero point for users with no location.
func DirectDistance(user *users.User, event *events.Event) float64 {
	coords := user.Coordinates()
	if coords == nil {
		coords = &geo.Coordinates{}
	}
	return geo.Distance(*coords, event.Coordinates())
}

// ValidateFeatures rejects vectors the model cannot score.
func ValidateFeatures(f Features) error {
	for i, v := range f.Vector() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("feature %d is not finite: %v", i, v)
		}
	}
	return nil
}
