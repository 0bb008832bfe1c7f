package location

import (
	"time"

	"github.com/lintang-b-s/navigatorx-tunnel/pkg/datastructure"
)

// Qualifier decides whether a fix is trustworthy from its horizontal accuracy and age.
type Qualifier struct {
	maxHorizontalAccuracy float64       // meter
	maxAge                time.Duration // 0 disables the age check
}

func NewQualifier(maxHorizontalAccuracy float64, maxAge time.Duration) *Qualifier {
	return &Qualifier{
		maxHorizontalAccuracy: maxHorizontalAccuracy,
		maxAge:                maxAge,
	}
}

// Qualify sets and returns the qualification flag of fix. now is the time the fix is processed.
func (q *Qualifier) Qualify(fix *datastructure.LocationFix, now time.Time) bool {
	qualified := q.IsQualified(fix, now)
	fix.SetQualified(qualified)
	return qualified
}

func (q *Qualifier) IsQualified(fix *datastructure.LocationFix, now time.Time) bool {
	acc := fix.HorizontalAccuracy()
	if acc < 0 || acc > q.maxHorizontalAccuracy {
		return false
	}
	if q.maxAge > 0 && now.Sub(fix.Time()) > q.maxAge {
		return false
	}
	return true
}
