package pro

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jobtrail-io/jobtrail/internal/models"
	"github.com/jobtrail-io/jobtrail/internal/notify"
	"github.com/jobtrail-io/jobtrail/internal/store"
)

var (
	// ErrNotFound is returned for an unknown account or request id.
	ErrNotFound = errors.New("request not found")
	// ErrNotPending guards admin decisions: terminal requests never transition.
	ErrNotPending = errors.New("request is not pending")
	// ErrEmailNotVerified gates requests to verified accounts only.
	ErrEmailNotVerified = errors.New("email address is not verified")
)

const (
	maxNoteLength    = 500
	notifyTimeout    = 5 * time.Second
	expiredSweepNote = "Request expired automatically after the review window elapsed."
)

// RequestResult is the outcome of RequestAccess. AlreadyPro short-circuits
// the workflow for accounts that already hold the flag.
type RequestResult struct {
	AlreadyPro bool                     `json:"already_pro"`
	Request    *models.ProAccessRequest `json:"request,omitempty"`
}

// Service runs the pro-access request workflow: a bounded state machine per
// account with admin decision actions. There is no background timer; stale
// PENDING requests are swept lazily on the next request attempt.
type Service struct {
	store          *store.Store
	notifier       notify.Notifier
	pendingWindow  time.Duration
	denialCooldown time.Duration
	opsEmail       string
	now            func() time.Time
}

// NewService wires the workflow. Zero windows fall back to the defaults:
// 7 days pending, 14 days denial cooldown.
func NewService(st *store.Store, n notify.Notifier, pendingWindow, denialCooldown time.Duration, opsEmail string) *Service {
	if pendingWindow == 0 {
		pendingWindow = 7 * 24 * time.Hour
	}
	if denialCooldown == 0 {
		denialCooldown = 14 * 24 * time.Hour
	}
	return &Service{
		store:          st,
		notifier:       n,
		pendingWindow:  pendingWindow,
		denialCooldown: denialCooldown,
		opsEmail:       opsEmail,
		now:            time.Now,
	}
}

// RequestAccess asks for the pro flag on behalf of an account. Within the
// pending window a duplicate request returns the existing PENDING row; a
// stale PENDING row is first transitioned to EXPIRED; a recent denial is
// returned unchanged until its cooldown elapses.
func (s *Service) RequestAccess(ctx context.Context, userID string, note string) (*RequestResult, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if user.IsPro {
		return &RequestResult{AlreadyPro: true}, nil
	}
	if !user.Verified() {
		return nil, ErrEmailNotVerified
	}

	now := s.now().UTC()
	latest, err := s.store.GetLatestProRequestForUser(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	if latest != nil {
		switch latest.Status {
		case models.ProRequestPending:
			if now.Sub(latest.RequestedAt) < s.pendingWindow {
				return &RequestResult{Request: latest}, nil
			}
			// Lazy sweep: resolve the stale row before opening a new one.
			if err := s.store.ExpireProRequest(ctx, latest.ID, now, expiredSweepNote); err != nil && !errors.Is(err, store.ErrNotFound) {
				return nil, err
			}
		case models.ProRequestDenied:
			if latest.CooldownUntil != nil && now.Before(*latest.CooldownUntil) {
				return &RequestResult{Request: latest}, nil
			}
		}
	}

	req := &models.ProAccessRequest{
		ID:          uuid.NewString(),
		UserID:      userID,
		Status:      models.ProRequestPending,
		RequestedAt: now,
		Note:        normalizeNote(note),
	}
	if err := s.store.CreateProRequest(ctx, req); err != nil {
		return nil, err
	}

	s.sendBestEffort(notify.Email{
		To:       s.opsEmail,
		Subject:  "New pro access request",
		HTMLBody: fmt.Sprintf("<p>User %s (%s) requested pro access.</p>", user.Email, user.ID),
		Kind:     "pro-request-received",
		UserID:   user.ID,
	})

	return &RequestResult{Request: req}, nil
}

// Approve grants the pro flag and closes the request, atomically.
func (s *Service) Approve(ctx context.Context, requestID string, decisionNote string) error {
	req, user, err := s.pendingRequest(ctx, requestID)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	if err := s.store.ApproveProRequest(ctx, req.ID, req.UserID, now, normalizeNote(decisionNote)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Decided concurrently between our read and the guarded update.
			return ErrNotPending
		}
		return err
	}

	s.sendBestEffort(notify.Email{
		To:       user.Email,
		Subject:  "Your pro access request was approved",
		HTMLBody: "<p>Good news: your JobTrail pro access request has been approved.</p>",
		Kind:     "pro-request-approved",
		UserID:   user.ID,
	})
	return nil
}

// Deny closes the request with a cooldown before the account may re-request.
func (s *Service) Deny(ctx context.Context, requestID string, decisionNote string) (time.Time, error) {
	req, user, err := s.pendingRequest(ctx, requestID)
	if err != nil {
		return time.Time{}, err
	}

	now := s.now().UTC()
	cooldownUntil := now.Add(s.denialCooldown)
	if err := s.store.DenyProRequest(ctx, req.ID, now, normalizeNote(decisionNote), cooldownUntil); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return time.Time{}, ErrNotPending
		}
		return time.Time{}, err
	}

	s.sendBestEffort(notify.Email{
		To:       user.Email,
		Subject:  "Your pro access request was declined",
		HTMLBody: fmt.Sprintf("<p>Your JobTrail pro access request was declined. You can submit a new request after %s.</p>", cooldownUntil.Format("January 2, 2006")),
		Kind:     "pro-request-denied",
		UserID:   user.ID,
	})
	return cooldownUntil, nil
}

// GrantCredits resets the account's free-usage counter instead of granting
// the flag, and closes the request, atomically.
func (s *Service) GrantCredits(ctx context.Context, requestID string) error {
	req, user, err := s.pendingRequest(ctx, requestID)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	if err := s.store.GrantProCredits(ctx, req.ID, req.UserID, now); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotPending
		}
		return err
	}

	s.sendBestEffort(notify.Email{
		To:       user.Email,
		Subject:  "Your free usage was topped up",
		HTMLBody: "<p>We reset your free usage counter instead of a pro upgrade. Enjoy!</p>",
		Kind:     "pro-request-credits",
		UserID:   user.ID,
	})
	return nil
}

// pendingRequest loads a request and its owner, enforcing the state-machine
// guard shared by all three decision actions.
func (s *Service) pendingRequest(ctx context.Context, requestID string) (*models.ProAccessRequest, *models.User, error) {
	req, err := s.store.GetProRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	if req.Status != models.ProRequestPending {
		return nil, nil, ErrNotPending
	}
	user, err := s.store.GetUserByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	return req, user, nil
}

// normalizeNote trims and caps the shared optional note field used by the
// requester and all three decision actions. Empty or whitespace-only becomes nil.
func normalizeNote(note string) *string {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil
	}
	if len(note) > maxNoteLength {
		note = note[:maxNoteLength]
	}
	return &note
}

// sendBestEffort delivers a notification without ever failing the caller.
// The primary state change has already committed by the time this runs.
func (s *Service) sendBestEffort(email notify.Email) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := s.notifier.Send(ctx, email); err != nil {
		log.Printf("[PRO] notification %s to %s failed: %v", email.Kind, email.To, err)
	}
}
