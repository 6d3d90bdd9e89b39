// Package auth implements the session subsystem: registration,
// email verification, login, refresh-token rotation, logout and
// password reset. It composes the token codec, the Redis refresh
// store and the relational repositories; handlers stay thin.
package auth

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/iliyamo/starwars-api/internal/apperr"
	"github.com/iliyamo/starwars-api/internal/model"
	"github.com/iliyamo/starwars-api/internal/repository"
	"github.com/iliyamo/starwars-api/internal/token"
	"github.com/iliyamo/starwars-api/internal/utils"
)

const (
	genericLoginMsg   = "Invalid email or password"
	invalidRefreshMsg = "Invalid refresh token"
	resetTokenTTL     = 24 * time.Hour
	mailTimeout       = 10 * time.Second
)

// Mailer is the outbound mail collaborator. Implementations must be
// safe for concurrent use; failures are logged by the implementation
// and ignored here.
type Mailer interface {
	SendConfirmation(ctx context.Context, to, firstName, lastName, activationToken string) error
	SendResendConfirmation(ctx context.Context, to, activationToken string) error
	SendPasswordReset(ctx context.Context, to, resetToken string) error
}

// Session is the payload returned by every operation that logs a
// user in: an identity summary plus a fresh access/refresh pair.
type Session struct {
	ID           uint64 `json:"id"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Profile is the public summary returned after registration.
type Profile struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// Service orchestrates the authentication flows.
type Service struct {
	users      *repository.UserRepo
	resets     *repository.ResetTokenRepo
	codec      *token.Codec
	store      *token.Store
	mailer     Mailer
	bcryptCost int
}

func NewService(users *repository.UserRepo, resets *repository.ResetTokenRepo,
	codec *token.Codec, store *token.Store, mailer Mailer, bcryptCost int) *Service {
	return &Service{
		users:      users,
		resets:     resets,
		codec:      codec,
		store:      store,
		mailer:     mailer,
		bcryptCost: bcryptCost,
	}
}

// Register creates a user account with a fresh activation token and
// mails the verification link. Duplicate emails are reported as 400.
func (s *Service) Register(ctx context.Context, firstName, lastName, email, password string) (Profile, error) {
	hash, err := utils.HashPassword(password, s.bcryptCost)
	if err != nil {
		return Profile{}, apperr.Internal("Unable to create account")
	}
	activationToken, err := utils.NewActivationToken()
	if err != nil {
		return Profile{}, apperr.Internal("Unable to create account")
	}

	if _, err := s.users.Create(ctx, firstName, lastName, email, hash, "user", activationToken); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return Profile{}, apperr.BadRequest("This email is already taken")
		}
		return Profile{}, apperr.Internal("Unable to create account")
	}

	s.fireAndForget(func(ctx context.Context) error {
		return s.mailer.SendConfirmation(ctx, email, firstName, lastName, activationToken)
	})
	return Profile{FirstName: firstName, LastName: lastName, Email: email}, nil
}

// Login validates credentials and mints a session. Unknown email,
// wrong password and disabled accounts all answer with an identical
// generic 401 so responses never reveal whether the account exists.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Session{}, apperr.Unauthorized(genericLoginMsg)
		}
		return Session{}, apperr.Internal("Unable to log in")
	}
	if u.Disabled() {
		return Session{}, apperr.Unauthorized(genericLoginMsg)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return Session{}, apperr.Unauthorized(genericLoginMsg)
	}
	return s.issueSession(ctx, u)
}

// Refresh exchanges a valid refresh token for a new access/refresh
// pair. Rotation is single-use: the old store entry is consumed
// atomically, so a replayed or concurrently raced token gets 401.
// The user is reloaded before the store is touched; a storage outage
// answers 500 and leaves the presented token intact.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	claims, err := s.codec.VerifyRefresh(refreshToken)
	if err != nil {
		return Session{}, apperr.Unauthorized(invalidRefreshMsg)
	}

	u, err := s.users.FindByID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Session{}, apperr.Unauthorized(invalidRefreshMsg)
		}
		return Session{}, apperr.Internal("Unable to renew session")
	}
	if u.Disabled() {
		return Session{}, apperr.Unauthorized(invalidRefreshMsg)
	}

	stored, err := s.store.Consume(ctx, claims.ID, refreshToken)
	if err != nil {
		if errors.Is(err, token.ErrNotFound) {
			return Session{}, apperr.Unauthorized(invalidRefreshMsg)
		}
		return Session{}, apperr.Internal("Unable to renew session")
	}
	if stored != refreshToken {
		return Session{}, apperr.Unauthorized(invalidRefreshMsg)
	}
	return s.issueSession(ctx, u)
}

// Logout revokes the presented refresh token.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return apperr.BadRequest("Provide a refresh token")
	}
	claims, err := s.codec.VerifyRefresh(refreshToken)
	if err != nil {
		return apperr.Unauthorized(invalidRefreshMsg)
	}
	if err := s.store.Delete(ctx, claims.ID, refreshToken); err != nil {
		return apperr.Internal("Unable to log out")
	}
	return nil
}

// VerifyEmail activates the account holding the token and logs it
// in. The token is single-use: activation clears it, so replaying it
// or verifying an already-active account answers 404.
func (s *Service) VerifyEmail(ctx context.Context, activationToken string) (Session, error) {
	if activationToken == "" {
		return Session{}, apperr.NotFound("We are unable to identify your account. It is possible that you have already verified your email")
	}
	u, err := s.users.FindByActivationToken(ctx, activationToken)
	if err != nil || u.IsActivated {
		return Session{}, apperr.NotFound("We are unable to identify your account. It is possible that you have already verified your email")
	}
	if err := s.users.Activate(ctx, u.ID); err != nil {
		return Session{}, apperr.Internal("Unable to verify email")
	}
	u.IsActivated = true
	return s.issueSession(ctx, u)
}

// ResendVerification regenerates the activation token for a
// not-yet-activated account and mails a new link.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("We are unable to identify your account")
		}
		return apperr.Internal("Unable to resend verification mail")
	}
	if u.IsActivated {
		return apperr.BadRequest("This account has already been activated")
	}
	activationToken, err := utils.NewActivationToken()
	if err != nil {
		return apperr.Internal("Unable to resend verification mail")
	}
	if err := s.users.SetActivationToken(ctx, u.ID, activationToken); err != nil {
		return apperr.Internal("Unable to resend verification mail")
	}
	s.fireAndForget(func(ctx context.Context) error {
		return s.mailer.SendResendConfirmation(ctx, email, activationToken)
	})
	return nil
}

// InitiatePasswordReset upserts a 24h reset token for the account
// and mails the reset link. At most one reset row exists per user; a
// second request overwrites the first.
func (s *Service) InitiatePasswordReset(ctx context.Context, email string) error {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("We could not find your account")
		}
		return apperr.Internal("Unable to start password reset")
	}
	if u.DeactivatedAt.Valid {
		return apperr.NotFound("We could not find your account")
	}
	resetToken, err := utils.NewResetToken()
	if err != nil {
		return apperr.Internal("Unable to start password reset")
	}
	if err := s.resets.Upsert(ctx, u.ID, resetToken, time.Now().UTC().Add(resetTokenTTL)); err != nil {
		return apperr.Internal("Unable to start password reset")
	}
	s.fireAndForget(func(ctx context.Context) error {
		return s.mailer.SendPasswordReset(ctx, email, resetToken)
	})
	return nil
}

// ResetPassword sets a new password for the token's owner. The
// token row is deleted on success so a reset link cannot be replayed
// within its expiry window.
func (s *Service) ResetPassword(ctx context.Context, resetToken, password, confirmPassword string) error {
	if password != confirmPassword {
		return apperr.BadRequest("Passwords do not match")
	}
	t, err := s.resets.FindByValue(ctx, resetToken)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.BadRequest("Invalid token")
		}
		return apperr.Internal("Unable to reset password")
	}
	if t.Expired() {
		return apperr.BadRequest("Expired reset link. Please request a new reset link")
	}
	hash, err := utils.HashPassword(password, s.bcryptCost)
	if err != nil {
		return apperr.Internal("Unable to reset password")
	}
	if err := s.users.UpdatePassword(ctx, t.OwnerID, hash); err != nil {
		return apperr.Internal("Unable to reset password")
	}
	if err := s.resets.DeleteByOwner(ctx, t.OwnerID); err != nil {
		// The password is already changed; an undeleted token only
		// shortens nothing and still expires in 24h. Log and move on.
		log.Printf("auth: delete consumed reset token failed: %v", err)
	}
	return nil
}

// ChangePassword replaces the password of a logged-in user after
// re-checking the current one.
func (s *Service) ChangePassword(ctx context.Context, userID uint64, currentPassword, newPassword, confirmPassword string) error {
	if newPassword != confirmPassword {
		return apperr.BadRequest("Passwords do not match")
	}
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("Account not found")
		}
		return apperr.Internal("Unable to change password")
	}
	if !utils.VerifyPassword(u.PasswordHash, currentPassword) {
		return apperr.BadRequest("Current password is incorrect")
	}
	hash, err := utils.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperr.Internal("Unable to change password")
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return apperr.Internal("Unable to change password")
	}
	return nil
}

// issueSession mints an access/refresh pair and records the refresh
// token in the store.
func (s *Service) issueSession(ctx context.Context, u model.User) (Session, error) {
	access, err := s.codec.SignAccess(u)
	if err != nil {
		return Session{}, apperr.Internal("Unable to issue session")
	}
	refresh, err := s.codec.SignRefresh(u)
	if err != nil {
		return Session{}, apperr.Internal("Unable to issue session")
	}
	if err := s.store.Save(ctx, u.ID, refresh); err != nil {
		return Session{}, apperr.Internal("Unable to issue session")
	}
	return Session{
		ID:           u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Email:        u.Email,
		Role:         u.Role,
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

// fireAndForget runs fn on its own goroutine with a detached
// timeout context. Mail must never fail or delay the request that
// triggered it; the publisher already logs its own errors.
func (s *Service) fireAndForget(fn func(context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), mailTimeout)
		defer cancel()
		_ = fn(ctx)
	}()
}
