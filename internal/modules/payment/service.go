package payment

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"studiobook/internal/domain"
	"studiobook/internal/gateway"
)

var ErrStudioNotFound = errors.New("studio not found")

type StudioDirectory interface {
	FindByID(ctx context.Context, id int64) (*domain.Studio, error)
	SaveGatewayCustomerID(ctx context.Context, studioID int64, customerID string) error
}

type UserDirectory interface {
	FindByID(ctx context.Context, id int64) (*domain.User, error)
}

// Service manages studio-side payment-method onboarding: it provisions the
// studio's gateway customer and opens setup intents for attaching cards.
type Service struct {
	studios        StudioDirectory
	users          UserDirectory
	gateway        gateway.PaymentGateway
	log            *logrus.Logger
	gatewayTimeout time.Duration
}

func NewService(studios StudioDirectory, users UserDirectory, gw gateway.PaymentGateway, log *logrus.Logger, gatewayTimeout time.Duration) *Service {
	if log == nil {
		log = logrus.New()
	}
	if gatewayTimeout <= 0 {
		gatewayTimeout = 10 * time.Second
	}
	return &Service{
		studios:        studios,
		users:          users,
		gateway:        gw,
		log:            log,
		gatewayTimeout: gatewayTimeout,
	}
}

// CreateSetupIntent ensures the studio has a gateway customer (persisting a
// replacement id when the stored one went stale) and returns the client
// secret the frontend uses to finish attaching a payment method.
func (s *Service) CreateSetupIntent(ctx context.Context, studioID int64) (*SetupIntentResponse, error) {
	studio, err := s.studios.FindByID(ctx, studioID)
	if err != nil {
		return nil, err
	}
	if studio == nil {
		return nil, ErrStudioNotFound
	}

	identity := gateway.Identity{Name: studio.Name}
	if owner, oerr := s.users.FindByID(ctx, studio.OwnerID); oerr == nil && owner != nil {
		identity.Email = owner.Email
	}

	gctx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	customerID, err := s.gateway.EnsureCustomer(gctx, studio.GatewayCustomerID, identity)
	if err != nil {
		return nil, err
	}
	if customerID != studio.GatewayCustomerID {
		if serr := s.studios.SaveGatewayCustomerID(ctx, studio.ID, customerID); serr != nil {
			s.log.WithFields(logrus.Fields{"studio_id": studio.ID}).
				WithError(serr).Warn("failed to persist replacement gateway customer id")
		}
	}

	secret, err := s.gateway.CreateSetupIntent(gctx, customerID)
	if err != nil {
		return nil, err
	}
	return &SetupIntentResponse{CustomerID: customerID, ClientSecret: secret}, nil
}
