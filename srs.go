package tutor

import (
	"math"
	"slices"
	"time"
)

// SM-2 parameters.
const (
	InitialEaseFactor = 2.5
	MinEaseFactor     = 1.3
	EasyBonus         = 0.15

	firstInterval  = 1
	secondInterval = 6
)

// Midnight returns the start of t's calendar day in t's location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// NewSchedule returns the schedule of a freshly saved word: due today.
func NewSchedule(today time.Time) Schedule {
	return Schedule{
		Repetition:     0,
		Interval:       0,
		EaseFactor:     InitialEaseFactor,
		NextReviewDate: Midnight(today),
	}
}

// Reschedule applies a rating to s, reviewed on today.
//
// again resets the repetition count and brings the word back tomorrow.
// good and easy advance the repetition count with intervals 1, 6, then
// the previous interval times the ease factor rounded up; easy also
// raises the ease factor after the interval has been computed. The ease
// factor is otherwise taken as given; the 1.3 floor is applied when
// favorites are loaded or imported.
func Reschedule(s Schedule, rating Rating, today time.Time) Schedule {
	if !rating.IsValid() {
		return s
	}
	s.Repetition = max(s.Repetition, 0)
	s.Interval = max(s.Interval, 0)

	switch rating {
	case RatingAgain:
		s.Repetition = 0
		s.Interval = firstInterval
	case RatingGood, RatingEasy:
		s.Repetition++
		switch s.Repetition {
		case 1:
			s.Interval = firstInterval
		case 2:
			s.Interval = secondInterval
		default:
			s.Interval = ceilInterval(float64(s.Interval) * s.EaseFactor)
		}
		if rating == RatingEasy {
			s.EaseFactor += EasyBonus
		}
	}

	s.NextReviewDate = Midnight(today).AddDate(0, 0, s.Interval)
	return s
}

// normalized clamps values a hand-edited or corrupted store might carry.
func (s Schedule) normalized() Schedule {
	if s.Repetition < 0 {
		s.Repetition = 0
	}
	if s.Interval < 0 {
		s.Interval = 0
	}
	if s.EaseFactor == 0 || math.IsNaN(s.EaseFactor) {
		s.EaseFactor = InitialEaseFactor
	}
	if s.EaseFactor < MinEaseFactor {
		s.EaseFactor = MinEaseFactor
	}
	return s
}

// ceilInterval rounds up, ignoring float noise below one millionth of a day.
func ceilInterval(days float64) int {
	return int(math.Ceil(days - 1e-6))
}

// IsDue reports whether the schedule's review date is on or before today.
func (s Schedule) IsDue(today time.Time) bool {
	return !Midnight(s.NextReviewDate).After(Midnight(today))
}

// ReviewQueue returns the due favorites ordered by ascending review date.
// Ties keep the input order.
func ReviewQueue(favs []FavoriteWord, today time.Time) []FavoriteWord {
	var due []FavoriteWord
	for _, f := range favs {
		if f.IsDue(today) {
			due = append(due, f)
		}
	}
	slices.SortStableFunc(due, func(a, b FavoriteWord) int {
		return a.NextReviewDate.Compare(b.NextReviewDate)
	})
	return due
}
