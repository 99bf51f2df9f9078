package matching

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/SlowlyFire/Hobbinder/internal/events"
	"github.com/SlowlyFire/Hobbinder/internal/users"
)

func yearsAgo(now time.Time, years float64) time.Time {
	return now.Add(-time.Duration(years * 365 * 24 * float64(time.Hour)))
}

func birthdayAge(now time.Time, years int) time.Time {
	return now.AddDate(-years, 0, 0)
}

func TestCalculateFeatures(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("full scenario", func(t *testing.T) {
		userBirthday := birthdayAge(now, 25)
		creatorBirthday := birthdayAge(now, 27)

		user := &users.User{
			Username:  "gal",
			Hobbies:   []string{"Football"},
			LikeRatio: 0.8,
			Birthday:  &userBirthday,
			CreatedAt: yearsAgo(now, 3),
		}
		creator := &users.User{
			Username:  "dana",
			LikeRatio: 0.75,
			Birthday:  &creatorBirthday,
		}
		event := &events.Event{ID: 1, UploaderUsername: "dana", Category: "Football"}

		f := CalculateFeatures(user, event, creator, 7.29, true, now)

		assert.InDelta(t, 0.729, f.Distance, 1e-9)
		assert.Equal(t, 1.0, f.CategoryMatch)
		assert.InDelta(t, 0.6, f.UserTenure, 1e-9)
		assert.InDelta(t, 0.95, f.LikeRatioSimilarity, 1e-9)
		assert.InDelta(t, 0.9, f.AgeSimilarity, 1e-9)
	})

	t.Run("distance is not clamped", func(t *testing.T) {
		f := CalculateFeatures(&users.User{CreatedAt: now}, &events.Event{}, &users.User{}, 25, false, now)
		assert.InDelta(t, 2.5, f.Distance, 1e-9)
		assert.Equal(t, 0.0, f.CategoryMatch)
	})

	t.Run("tenure saturates at five years", func(t *testing.T) {
		user := &users.User{CreatedAt: yearsAgo(now, 12)}
		f := CalculateFeatures(user, &events.Event{}, &users.User{}, 0, false, now)
		assert.Equal(t, 1.0, f.UserTenure)
	})

	t.Run("missing birthday reads as a perfect age match", func(t *testing.T) {
		creatorBirthday := birthdayAge(now, 30)
		creator := &users.User{Birthday: &creatorBirthday}

		f := CalculateFeatures(&users.User{CreatedAt: now}, &events.Event{}, creator, 0, false, now)
		assert.Equal(t, 1.0, f.AgeSimilarity)
	})

	t.Run("large age gap floors at zero", func(t *testing.T) {
		young := birthdayAge(now, 20)
		old := birthdayAge(now, 60)
		user := &users.User{Birthday: &young, CreatedAt: now}
		creator := &users.User{Birthday: &old}

		f := CalculateFeatures(user, &events.Event{}, creator, 0, false, now)
		assert.Equal(t, 0.0, f.AgeSimilarity)
	})

	t.Run("age counts whole calendar years", func(t *testing.T) {
		// Birthday is tomorrow, so the 25th year has not completed yet.
		userBirthday := birthdayAge(now, 25).AddDate(0, 0, 1)
		creatorBirthday := birthdayAge(now, 25)
		user := &users.User{Birthday: &userBirthday, CreatedAt: now}
		creator := &users.User{Birthday: &creatorBirthday}

		f := CalculateFeatures(user, &events.Event{}, creator, 0, false, now)
		assert.InDelta(t, 0.95, f.AgeSimilarity, 1e-9)
	})
}

func TestValidateFeatures(t *testing.T) {
	assert.NoError(t, ValidateFeatures(Features{Distance: 0.5, AgeSimilarity: 1}))
	assert.Error(t, ValidateFeatures(Features{Distance: math.NaN()}))
	assert.Error(t, ValidateFeatures(Features{LikeRatioSimilarity: math.Inf(1)}))
}

func TestVectorOrder(t *testing.T) {
	f := Features{
		Distance:            1,
		CategoryMatch:       2,
		UserTenure:          3,
		LikeRatioSimilarity: 4,
		AgeSimilarity:       5,
	}
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, f.Vector())
}
