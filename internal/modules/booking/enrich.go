package booking

import (
	"context"

	"studiobook/internal/domain"
)

const (
	placeholderUserName   = "Deleted user"
	placeholderStudioName = "Deleted studio"
)

// Identity is display data joined onto a booking for clients. Found is
// false when the directory lookup missed and the name is a placeholder, so
// callers can distinguish a real name from the fallback.
type Identity struct {
	Name      string `json:"name"`
	Slug      string `json:"slug,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Found     bool   `json:"-"`
}

type EnrichedBooking struct {
	domain.Booking
	Requester *Identity `json:"requester,omitempty"`
	Studio    *Identity `json:"studio,omitempty"`
}

// GetBooking fetches any booking by id, decorated with both identities.
func (s *Service) GetBooking(ctx context.Context, id string) (*EnrichedBooking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrNotFound
	}
	return &EnrichedBooking{
		Booking:   *b,
		Requester: s.requesterIdentity(ctx, b.UserID),
		Studio:    s.studioIdentity(ctx, b.StudioID),
	}, nil
}

// ListRequests lists bookings for one side of the marketplace. The studio
// dashboard gets requester identities; the artist view gets studio
// identities. Exactly one filter must be set.
func (s *Service) ListRequests(ctx context.Context, studioID, userID int64) ([]EnrichedBooking, error) {
	switch {
	case studioID != 0:
		rows, err := s.bookings.ListByStudio(ctx, studioID)
		if err != nil {
			return nil, err
		}
		out := make([]EnrichedBooking, 0, len(rows))
		for _, b := range rows {
			out = append(out, EnrichedBooking{Booking: b, Requester: s.requesterIdentity(ctx, b.UserID)})
		}
		return out, nil
	case userID != 0:
		rows, err := s.bookings.ListByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		out := make([]EnrichedBooking, 0, len(rows))
		for _, b := range rows {
			out = append(out, EnrichedBooking{Booking: b, Studio: s.studioIdentity(ctx, b.StudioID)})
		}
		return out, nil
	default:
		return nil, fieldErr("studioId")
	}
}

func (s *Service) requesterIdentity(ctx context.Context, userID int64) *Identity {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil || u == nil {
		return &Identity{Name: placeholderUserName}
	}
	return &Identity{Name: u.Name, Slug: u.Slug, AvatarURL: u.AvatarURL, Found: true}
}

func (s *Service) studioIdentity(ctx context.Context, studioID int64) *Identity {
	st, err := s.studios.FindByID(ctx, studioID)
	if err != nil || st == nil {
		return &Identity{Name: placeholderStudioName}
	}
	return &Identity{Name: st.Name, Slug: st.Slug, AvatarURL: st.AvatarURL, Found: true}
}
