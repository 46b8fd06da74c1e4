package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcalendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/slotwise/booking-api/internal/model"
	"github.com/slotwise/booking-api/internal/repository"
	"github.com/slotwise/booking-api/pkg/auth"
	apperrors "github.com/slotwise/booking-api/pkg/errors"
	"github.com/slotwise/booking-api/pkg/logger"
)

const providerGoogle = "google"

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Service pushes bookings into a staff member's Google Calendar. The OAuth
// grant is per user; a missing grant makes every sync a silent no-op.
type Service struct {
	calRepo     repository.CalendarRepository
	bookingRepo repository.BookingRepository
	userRepo    repository.UserRepository
	oauth       *oauth2.Config
	jwt         auth.JWTService
	logger      *logger.Logger
}

func NewService(
	calRepo repository.CalendarRepository,
	bookingRepo repository.BookingRepository,
	userRepo repository.UserRepository,
	cfg Config,
	jwt auth.JWTService,
	log *logger.Logger,
) *Service {
	var oauthCfg *oauth2.Config
	if cfg.ClientID != "" && cfg.ClientSecret != "" {
		oauthCfg = &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{gcalendar.CalendarEventsScope},
			Endpoint:     google.Endpoint,
		}
	}
	return &Service{
		calRepo:     calRepo,
		bookingRepo: bookingRepo,
		userRepo:    userRepo,
		oauth:       oauthCfg,
		jwt:         jwt,
		logger:      log,
	}
}

func (s *Service) Configured() bool { return s.oauth != nil }

// AuthURL returns the Google consent URL. The state parameter is a short
// lived access token so the callback can be tied back to the user without a
// session.
func (s *Service) AuthURL(userID, orgID uuid.UUID, email string) (string, error) {
	if s.oauth == nil {
		return "", apperrors.BadRequest("google calendar is not configured", nil)
	}
	state, _, err := s.jwt.GenerateAccessToken(userID, orgID, email, "calendar_connect")
	if err != nil {
		return "", apperrors.Internal(err)
	}
	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
}

// HandleCallback exchanges the authorization code and stores the grant.
func (s *Service) HandleCallback(ctx context.Context, state, code string) error {
	if s.oauth == nil {
		return apperrors.BadRequest("google calendar is not configured", nil)
	}
	claims, err := s.jwt.ValidateToken(state, auth.TokenTypeAccess)
	if err != nil {
		return apperrors.Unauthorized(err)
	}
	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return apperrors.BadRequest("code exchange failed", err)
	}
	conn := &model.CalendarConnection{
		UserID:       claims.UserID,
		Provider:     providerGoogle,
		CalendarID:   "primary",
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenExpiry:  token.Expiry,
	}
	if err := s.calRepo.Upsert(ctx, conn); err != nil {
		return apperrors.Internal(err)
	}
	s.logger.Info("calendar connected", "user_id", claims.UserID.String())
	return nil
}

// Disconnect removes the stored grant.
func (s *Service) Disconnect(ctx context.Context, userID uuid.UUID) error {
	if err := s.calRepo.Delete(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("calendar connection", err)
		}
		return apperrors.Internal(err)
	}
	return nil
}

// Status reports whether the user has a live connection.
func (s *Service) Status(ctx context.Context, userID uuid.UUID) (*model.CalendarConnection, error) {
	conn, err := s.calRepo.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("calendar connection", err)
		}
		return nil, apperrors.Internal(err)
	}
	return conn, nil
}

// PushBooking creates a calendar event for the booking and remembers the
// event id for later removal. Users without a connection are skipped.
func (s *Service) PushBooking(ctx context.Context, bookingID uuid.UUID) error {
	booking, err := s.bookingRepo.Get(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("load booking %s: %w", bookingID, err)
	}
	svc, conn, err := s.clientFor(ctx, booking.UserID)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}

	event := &gcalendar.Event{
		Summary:     fmt.Sprintf("Booking: %s", booking.CustomerName),
		Description: booking.Notes,
		Start:       &gcalendar.EventDateTime{DateTime: booking.StartTime.Format(time.RFC3339), TimeZone: "UTC"},
		End:         &gcalendar.EventDateTime{DateTime: booking.EndTime().Format(time.RFC3339), TimeZone: "UTC"},
		Attendees:   []*gcalendar.EventAttendee{{Email: booking.CustomerEmail}},
	}
	created, err := svc.Events.Insert(conn.CalendarID, event).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("insert calendar event: %w", err)
	}
	if err := s.bookingRepo.SetCalendarEventID(ctx, booking.ID, &created.Id); err != nil {
		return fmt.Errorf("record calendar event id: %w", err)
	}
	if err := s.calRepo.TouchSynced(ctx, booking.UserID, time.Now()); err != nil {
		s.logger.Error(err, "touch calendar sync time", "user_id", booking.UserID.String())
	}
	return nil
}

// RemoveBooking deletes the calendar event created for a cancelled booking.
func (s *Service) RemoveBooking(ctx context.Context, bookingID uuid.UUID) error {
	booking, err := s.bookingRepo.Get(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("load booking %s: %w", bookingID, err)
	}
	if booking.CalendarEventID == nil {
		return nil
	}
	svc, conn, err := s.clientFor(ctx, booking.UserID)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	if err := svc.Events.Delete(conn.CalendarID, *booking.CalendarEventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete calendar event: %w", err)
	}
	return s.bookingRepo.SetCalendarEventID(ctx, booking.ID, nil)
}

// clientFor builds a calendar client from the user's stored grant. The
// oauth2 token source refreshes expired access tokens transparently.
func (s *Service) clientFor(ctx context.Context, userID uuid.UUID) (*gcalendar.Service, *model.CalendarConnection, error) {
	if s.oauth == nil {
		return nil, nil, nil
	}
	conn, err := s.calRepo.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("load calendar connection: %w", err)
	}
	token := &oauth2.Token{
		AccessToken:  conn.AccessToken,
		RefreshToken: conn.RefreshToken,
		Expiry:       conn.TokenExpiry,
	}
	svc, err := gcalendar.NewService(ctx, option.WithTokenSource(s.oauth.TokenSource(ctx, token)))
	if err != nil {
		return nil, nil, fmt.Errorf("build calendar client: %w", err)
	}
	return svc, conn, nil
}
