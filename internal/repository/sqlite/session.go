package sqlite

import (
	"context"

	"github.com/sakif/newsdesk/internal/model"
	"github.com/sakif/newsdesk/internal/repository"
)

// compile-time check that *SessionRepo implements repository.SessionRepository
var _ repository.SessionRepository = (*SessionRepo)(nil)

// SessionRepo stores sessions keyed by their token.
type SessionRepo struct {
	*Store[model.Session]
}

func NewSessionRepository(conn *Conn) *SessionRepo {
	return &SessionRepo{Store: newStore[model.Session](conn, CollectionSessions, "SessionRepository")}
}

// Create stores s. ID and Token are the same value; whichever is set fills
// in the other.
func (r *SessionRepo) Create(ctx context.Context, s model.Session) (string, error) {
	if s.ID == "" {
		s.ID = s.Token
	}
	if s.Token == "" {
		s.Token = s.ID
	}
	return r.Store.Create(ctx, s)
}

func (r *SessionRepo) FindByUserID(ctx context.Context, userID string) ([]model.Session, error) {
	return r.findBy(ctx, r.op("findByUserId"), "userId", userID)
}

// FindValidSession returns the session for token if it has not expired.
// An expired session is deleted before returning nil; the outcome of that
// delete does not affect the result.
func (r *SessionRepo) FindValidSession(ctx context.Context, token string) (*model.Session, error) {
	s, err := r.FindByID(ctx, token)
	if err != nil || s == nil {
		return nil, err
	}
	if s.Valid(r.now()) {
		return s, nil
	}
	_ = r.Delete(ctx, token)
	return nil, nil
}

// CleanupExpiredSessions deletes every session whose expiry is at or before
// now and returns how many went.
func (r *SessionRepo) CleanupExpiredSessions(ctx context.Context) (int, error) {
	return r.deleteUpTo(ctx, r.op("cleanupExpiredSessions"), "expiresAt", r.now())
}

func (r *SessionRepo) InvalidateUserSessions(ctx context.Context, userID string) (int, error) {
	return r.deleteBy(ctx, r.op("invalidateUserSessions"), "userId", userID)
}
