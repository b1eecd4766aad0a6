package model

// OverlapQuery selects the active reservations on one court and day whose
// range intersects [Start, End).  ExcludeID, when non-zero, removes the
// reservation being edited from the candidates.
type OverlapQuery struct {
	CourtID   uint64
	Date      Date
	Start     Clock
	End       Clock
	ExcludeID uint64
}

// Matches reports whether r is a conflicting candidate for q.
func (q OverlapQuery) Matches(r *Reservation) bool {
	if r.CourtID != q.CourtID || !r.Date.Equal(q.Date) || !r.State.Active() {
		return false
	}
	if q.ExcludeID != 0 && r.ID == q.ExcludeID {
		return false
	}
	return Overlaps(q.Start, q.End, r.StartTime, r.EndTime)
}

// ReservationListKind picks one of the list views exposed to callers.
type ReservationListKind string

const (
	ListAll         ReservationListKind = "all"
	ListMine        ReservationListKind = "mine"
	ListWithBalance ReservationListKind = "with-balance"
)

// ReservationFilter narrows a reservation listing.  Zero fields are ignored.
type ReservationFilter struct {
	Kind    ReservationListKind
	CourtID uint64
	Date    Date
}

// PaymentFilter narrows a payment listing.  Zero fields are ignored.
type PaymentFilter struct {
	ReservationID uint64
	State         PaymentState
}
