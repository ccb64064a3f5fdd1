package google

import (
	"context"
	"fmt"

	"github.com/commitly/commitly/pkg/user"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// ErrNotAuthenticated is returned when the current user has no stored Google
// token. Lifecycle operations treat it as a hard precondition failure.
var ErrNotAuthenticated = fmt.Errorf("user is not authenticated with Google")

// Account is the opaque handle proving the current user completed the OAuth flow.
type Account struct {
	UserID int
}

type Service interface {
	// CurrentAccount returns the account handle for the current user, or
	// ErrNotAuthenticated when no completed OAuth token is stored.
	CurrentAccount(ctx context.Context) (*Account, error)
	// CalendarService builds an authenticated Google Calendar client for the
	// current user.
	CalendarService(ctx context.Context) (*calendar.Service, error)
}

type ServiceImpl struct {
	auth *GoogleAuth
}

func NewService(auth *GoogleAuth) *ServiceImpl {
	return &ServiceImpl{
		auth: auth,
	}
}

func (s *ServiceImpl) CurrentAccount(ctx context.Context) (*Account, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	token, err := s.auth.getToken(ctx, userId)
	if err != nil {
		return nil, err
	}
	if token == nil {
		log.Debug("user is unauthenticated, authentication is required")
		return nil, ErrNotAuthenticated
	}
	return &Account{UserID: userId}, nil
}

func (s *ServiceImpl) CalendarService(ctx context.Context) (*calendar.Service, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}

	client, err := s.auth.getClient(ctx, userId)
	if err != nil {
		err := fmt.Errorf("unable to retrieve Google auth client: %v", err)
		log.Error(err)
		return nil, err
	}
	if client == nil {
		log.Debug("user is unauthenticated, authentication is required")
		return nil, ErrNotAuthenticated
	}
	service, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		err := fmt.Errorf("unable to retrieve Calendar client: %v", err)
		log.Error(err)
		return nil, err
	}

	return service, nil
}
