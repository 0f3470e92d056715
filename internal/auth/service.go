package auth

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

const notifyTimeout = 5 * time.Second

// Credentials is everything a successful register/login/refresh hands back.
// The raw refresh secret must end up in an HTTP-only cookie, never a JSON
// body; placing it there is the dispatch layer's job, not ours.
type Credentials struct {
	User          *models.User
	AccessToken   string
	RefreshSecret string
	CSRFSecret    string
	ExpiresAt     time.Time
}

// Service is the session lifecycle orchestrator: the only component that
// reads or writes refresh sessions and mints access tokens.
type Service struct {
	store      *store.Store
	tokens     *TokenManager
	notifier   notify.Notifier
	refreshTTL time.Duration
	bcryptCost int
	now        func() time.Time
}

// NewService wires the session lifecycle service.
func NewService(st *store.Store, tm *TokenManager, n notify.Notifier, refreshTTL time.Duration, bcryptCost int) *Service {
	if refreshTTL == 0 {
		refreshTTL = 30 * 24 * time.Hour
	}
	return &Service{
		store:      st,
		tokens:     tm,
		notifier:   n,
		refreshTTL: refreshTTL,
		bcryptCost: bcryptCost,
		now:        time.Now,
	}
}

// Register creates an account, opens its first refresh session and signs an
// access token. Fails with ErrEmailTaken on a duplicate email and with
// *ValidationError carrying every violated policy rule.
func (s *Service) Register(ctx context.Context, email, password, name string) (*Credentials, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var reasons []string
	if !ValidateEmail(email) {
		reasons = append(reasons, "email address is not valid")
	}
	reasons = append(reasons, EvaluatePassword(password, email)...)
	if len(reasons) > 0 {
		return nil, &ValidationError{Reasons: reasons}
	}

	hashed, err := models.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user := &models.User{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      strings.TrimSpace(name),
		Password:  hashed,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	creds, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.sendVerificationEmail(user)
	return creds, nil
}

// Login verifies credentials and opens a new refresh session. A deactivated
// account is reactivated here, and only here: the flag flip is persisted
// before any token is issued.
func (s *Service) Login(ctx context.Context, email, password string) (*Credentials, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.ValidatePassword(password) {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		if err := s.store.SetUserActive(ctx, user.ID, true); err != nil {
			return nil, err
		}
		user.IsActive = true
	}

	return s.issueSession(ctx, user)
}

// issueSession creates a refresh session and signs an access token for the
// user. Shared by Register and Login.
func (s *Service) issueSession(ctx context.Context, user *models.User) (*Credentials, error) {
	refreshSecret, err := NewSecret(refreshSecretBytes)
	if err != nil {
		return nil, err
	}
	csrfSecret, err := NewSecret(csrfSecretBytes)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	sess := &models.RefreshSession{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		RefreshHash: HashSecret(refreshSecret),
		CSRFHash:    HashSecret(csrfSecret),
		ExpiresAt:   now.Add(s.refreshTTL),
		CreatedAt:   now,
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, err
	}

	accessToken, err := s.tokens.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	return &Credentials{
		User:          user,
		AccessToken:   accessToken,
		RefreshSecret: refreshSecret,
		CSRFSecret:    csrfSecret,
		ExpiresAt:     sess.ExpiresAt,
	}, nil
}

// BootstrapCSRF returns a fresh CSRF secret for the session identified by
// the presented refresh secret. An unknown or dead session yields ("", nil),
// not an error: the client silently discovers it is unauthenticated. Stored
// CSRF values are hashes, so a previously issued secret can never be read
// back; every bootstrap mints and persists a new one.
func (s *Service) BootstrapCSRF(ctx context.Context, refreshSecret string) (string, error) {
	if refreshSecret == "" {
		return "", nil
	}

	now := s.now().UTC()
	if _, err := s.store.GetActiveSessionByRefreshHash(ctx, HashSecret(refreshSecret), now); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil
		}
		return "", err
	}

	csrfSecret, err := NewSecret(csrfSecretBytes)
	if err != nil {
		return "", err
	}
	err = s.store.RotateSessionCSRF(ctx, HashSecret(refreshSecret), HashSecret(csrfSecret), now)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Session died between lookup and rotation.
			return "", nil
		}
		return "", err
	}
	return csrfSecret, nil
}

// Refresh rotates both session secrets and re-signs an access token.
// ErrUnauthorized when no active session matches the refresh secret;
// ErrForbidden when the session exists but the CSRF double-submit fails.
// Rotation-on-every-refresh bounds a leaked refresh secret to one use.
func (s *Service) Refresh(ctx context.Context, refreshSecret, csrfSecret string) (*Credentials, error) {
	now := s.now().UTC()
	oldHash := HashSecret(refreshSecret)

	sess, err := s.store.GetActiveSessionByRefreshHash(ctx, oldHash, now)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if !HashEquals(HashSecret(csrfSecret), sess.CSRFHash) {
		return nil, ErrForbidden
	}

	newRefresh, err := NewSecret(refreshSecretBytes)
	if err != nil {
		return nil, err
	}
	newCSRF, err := NewSecret(csrfSecretBytes)
	if err != nil {
		return nil, err
	}

	// Compare-and-swap on the old hash: of two concurrent refreshes carrying
	// the same secret, exactly one wins. The loser must not see stale data.
	err = s.store.RotateSessionSecrets(ctx, oldHash, HashSecret(newRefresh), HashSecret(newCSRF), now)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}

	user, err := s.store.GetUserByID(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	accessToken, err := s.tokens.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	return &Credentials{
		User:          user,
		AccessToken:   accessToken,
		RefreshSecret: newRefresh,
		CSRFSecret:    newCSRF,
		ExpiresAt:     sess.ExpiresAt,
	}, nil
}

// Logout revokes the session matching the presented refresh secret.
// Idempotent: a missing or already-dead session is a silent success. A live
// session still requires the CSRF secret to match before revocation.
func (s *Service) Logout(ctx context.Context, refreshSecret, csrfSecret string) error {
	if refreshSecret == "" {
		return nil
	}

	now := s.now().UTC()
	sess, err := s.store.GetActiveSessionByRefreshHash(ctx, HashSecret(refreshSecret), now)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	if !HashEquals(HashSecret(csrfSecret), sess.CSRFHash) {
		return ErrForbidden
	}

	return s.store.RevokeSession(ctx, sess.ID, now)
}

// Deactivate flips the account inactive and revokes all of its sessions.
// The next successful login reactivates it.
func (s *Service) Deactivate(ctx context.Context, userID string) error {
	if err := s.store.SetUserActive(ctx, userID, false); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return s.store.RevokeUserSessions(ctx, userID, s.now().UTC())
}

// DeleteAccount irreversibly deletes the account, revoking its sessions in
// the same transaction.
func (s *Service) DeleteAccount(ctx context.Context, userID string) error {
	err := s.store.DeleteUser(ctx, userID, s.now().UTC())
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// VerifyEmail consumes a verification-link token and stamps the account's
// email_verified_at.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	userID, err := s.tokens.ValidateVerificationToken(token)
	if err != nil {
		return ErrUnauthorized
	}
	err = s.store.MarkEmailVerified(ctx, userID, s.now().UTC())
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// GetUser loads an account's current state, used by the dispatch layer to
// re-check the active flag on authenticated requests.
func (s *Service) GetUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	return user, err
}

// sendVerificationEmail is best-effort: a broken mail relay never fails a
// registration.
func (s *Service) sendVerificationEmail(user *models.User) {
	token, err := s.tokens.GenerateVerificationToken(user.ID)
	if err != nil {
		log.Printf("[AUTH] failed to sign verification token for user %s: %v", user.ID, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	err = s.notifier.Send(ctx, notify.Email{
		To:       user.Email,
		Subject:  "Verify your JobTrail email",
		HTMLBody: fmt.Sprintf("<p>Welcome to JobTrail!</p><p>Confirm your email address: <a href=\"/auth/verify-email?token=%s\">verify email</a></p>", token),
		Kind:     "email-verification",
		UserID:   user.ID,
	})
	if err != nil {
		log.Printf("[AUTH] verification email to %s failed: %v", user.Email, err)
	}
}
