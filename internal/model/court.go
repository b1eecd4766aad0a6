package model

import "time"

// Sport enumerates the games a court is built for.
type Sport string

const (
	SportSoccer     Sport = "soccer"
	SportVolleyball Sport = "volleyball"
)

// Valid reports whether s is a known sport.
func (s Sport) Valid() bool { return s == SportSoccer || s == SportVolleyball }

// Quality is the surface tier of a court.
type Quality string

const (
	QualityBasic   Quality = "basic"
	QualityPremium Quality = "premium"
)

// Valid reports whether q is a known tier.
func (q Quality) Valid() bool { return q == QualityBasic || q == QualityPremium }

// Court is a bookable playing surface with separate day and night rates.
// It corresponds to a row in the `courts` table.
//
// Fields:
//
//	ID        – primary key identifier.
//	Name      – display name.
//	Sport     – soccer or volleyball.
//	Quality   – basic or premium.
//	DayRate   – price of a reservation starting before 18:00.
//	NightRate – price of a reservation starting at or after 18:00.
//	Available – whether new reservations are accepted.
//	CreatedAt – creation timestamp.
//	UpdatedAt – last update timestamp.
type Court struct {
	ID        uint64    `json:"id"`         // courts.id
	Name      string    `json:"name"`       // courts.name
	Sport     Sport     `json:"sport"`      // courts.sport
	Quality   Quality   `json:"quality"`    // courts.quality
	DayRate   Money     `json:"day_rate"`   // courts.day_rate
	NightRate Money     `json:"night_rate"` // courts.night_rate
	Available bool      `json:"available"`  // courts.available
	CreatedAt time.Time `json:"created_at"` // courts.created_at
	UpdatedAt time.Time `json:"updated_at"` // courts.updated_at
}
