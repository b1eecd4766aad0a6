package catalog

import "github.com/iliyamo/court-reservation/internal/model"

// NightStartHour is the first hour billed at the night rate.
const NightStartHour = 18

// Price returns the amount charged for a reservation on court c starting
// at start.  The rate is flat per reservation: day_rate before 18:00,
// night_rate from 18:00 on.  No sport multiplier is applied.
func Price(c model.Court, start model.Clock) model.Money {
	if start.Hour() < NightStartHour {
		return c.DayRate
	}
	return c.NightRate
}
