package aggregator

import (
	"pickup-dispatch/dispatch/internal/constants"
	"pickup-dispatch/dispatch/internal/models/entities"
)

// Filter decides which requests a role gets to see.
type Filter func(s Snapshot, req entities.PickupRequest) bool

// Alert is one request annotated with whatever the board resolved for it.
type Alert struct {
	Request        entities.PickupRequest `json:"request"`
	PickupPoint    *entities.PickupPoint  `json:"pickup_point,omitempty"`
	PickupName     string                 `json:"pickup_name"`
	ResponsesKnown bool                   `json:"responses_known"`
	ResponseCount  int                    `json:"response_count"`
	AcceptCount    int                    `json:"accept_count"`
}

// View is the role-specific rendering of a snapshot.
// While Loading is true Alerts is always empty.
type View struct {
	Generation uint64  `json:"generation"`
	Phase      Phase   `json:"phase"`
	Loading    bool    `json:"loading"`
	Alerts     []Alert `json:"alerts"`
	ListError  string  `json:"list_error,omitempty"`
}

// VolunteerFilter keeps requests userID has not responded to yet.
// A request whose responses could not be loaded is kept.
func VolunteerFilter(userID string) Filter {
	return func(s Snapshot, req entities.PickupRequest) bool {
		for _, r := range s.Responses[req.ID] {
			if r.UserID == userID {
				return false
			}
		}
		return true
	}
}

// ManagerFilter keeps every active request.
func ManagerFilter() Filter {
	return func(Snapshot, entities.PickupRequest) bool { return true }
}

// FilterFor picks the filter matching the user's role.
func FilterFor(u *entities.User) Filter {
	if u == nil {
		return VolunteerFilter("")
	}
	if u.IsManager() {
		return ManagerFilter()
	}
	return VolunteerFilter(u.ID)
}

// Derive builds the view of s through f.
func Derive(s Snapshot, f Filter) View {
	v := View{
		Generation: s.Generation,
		Phase:      s.Phase,
		Loading:    s.Phase != PhaseReady,
		Alerts:     []Alert{},
	}
	if s.ListErr != nil {
		v.ListError = s.ListErr.Error()
	}
	if v.Loading {
		return v
	}

	for _, req := range s.Requests {
		if !f(s, req) {
			continue
		}
		a := Alert{
			Request:    req,
			PickupName: req.PickupPointID,
		}
		if pt := s.PickupPoints[req.PickupPointID]; pt != nil {
			a.PickupPoint = pt
			if pt.Name != "" {
				a.PickupName = pt.Name
			}
		}
		if rs, ok := s.Responses[req.ID]; ok {
			a.ResponsesKnown = true
			a.ResponseCount = len(rs)
			for _, r := range rs {
				if r.Response == constants.ResponseAccept {
					a.AcceptCount++
				}
			}
		}
		v.Alerts = append(v.Alerts, a)
	}
	return v
}

// View derives the current state through f.
func (b *Board) View(f Filter) View {
	return Derive(b.Snapshot(), f)
}
