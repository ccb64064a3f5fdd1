package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/commitly/commitly/pkg/google"
	"github.com/commitly/commitly/pkg/user"
	log "github.com/sirupsen/logrus"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
)

const calendarId = "primary"

// GoogleSync implements Sync against the current user's primary Google
// Calendar. Timestamps are sent as RFC3339 with the user's IANA zone id.
type GoogleSync struct {
	google google.Service
	users  user.Provider
}

func NewGoogleSync(googleService google.Service, users user.Provider) *GoogleSync {
	return &GoogleSync{google: googleService, users: users}
}

func (g *GoogleSync) CreateEvent(ctx context.Context, title, description string, start time.Time, durationMinutes int) (string, error) {
	log.Debugf("Creating calendar event %q at %s", title, start)
	service, err := g.google.CalendarService(ctx)
	if err != nil {
		return "", err
	}
	timezone, err := g.userTimezone(ctx)
	if err != nil {
		return "", err
	}
	end := start.Add(time.Duration(durationMinutes) * time.Minute)

	result, err := service.Events.Insert(calendarId, &gcal.Event{
		Summary:     title,
		Description: description,
		Start: &gcal.EventDateTime{
			DateTime: start.Format(time.RFC3339),
			TimeZone: timezone,
		},
		End: &gcal.EventDateTime{
			DateTime: end.Format(time.RFC3339),
			TimeZone: timezone,
		},
	}).Do()
	if err != nil {
		err := fmt.Errorf("unable to insert event in Google Calendar: %w", classify(err))
		log.Error(err)
		return "", err
	}

	return result.Id, nil
}

func (g *GoogleSync) UpdateEvent(ctx context.Context, remoteEventID string, start time.Time, durationMinutes int) error {
	log.Debugf("Rescheduling calendar event %s to %s", remoteEventID, start)
	service, err := g.google.CalendarService(ctx)
	if err != nil {
		return err
	}
	timezone, err := g.userTimezone(ctx)
	if err != nil {
		return err
	}
	end := start.Add(time.Duration(durationMinutes) * time.Minute)

	_, err = service.Events.Patch(calendarId, remoteEventID, &gcal.Event{
		Start: &gcal.EventDateTime{
			DateTime: start.Format(time.RFC3339),
			TimeZone: timezone,
		},
		End: &gcal.EventDateTime{
			DateTime: end.Format(time.RFC3339),
			TimeZone: timezone,
		},
	}).Do()
	if err != nil {
		err := fmt.Errorf("unable to update event in Google Calendar: %w", classify(err))
		log.Error(err)
		return err
	}
	return nil
}

func (g *GoogleSync) DeleteEvent(ctx context.Context, remoteEventID string) error {
	log.Debugf("Deleting calendar event %s", remoteEventID)
	service, err := g.google.CalendarService(ctx)
	if err != nil {
		return err
	}

	err = service.Events.Delete(calendarId, remoteEventID).Do()
	if err != nil {
		classified := classify(err)
		if errors.Is(classified, ErrRemoteNotFound) {
			// already gone remote-side, that is what we wanted
			log.Debugf("calendar event %s already absent", remoteEventID)
			return nil
		}
		err := fmt.Errorf("unable to delete event in Google Calendar: %w", classified)
		log.Error(err)
		return err
	}
	return nil
}

func (g *GoogleSync) userTimezone(ctx context.Context) (string, error) {
	currentUser, err := g.users.GetCurrentUser(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get current user: %w", err)
	}
	if currentUser.Settings.Timezone == "" {
		return "UTC", nil
	}
	return currentUser.Settings.Timezone, nil
}

// classify maps a Google API failure onto the adapter's error taxonomy.
func classify(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone:
			return fmt.Errorf("%w: %v", ErrRemoteNotFound, err)
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
		case apiErr.Code >= 400 && apiErr.Code < 500:
			return fmt.Errorf("%w: %v", ErrRemoteRejected, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
}
