package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sakif/newsdesk/internal/model"
	"github.com/sakif/newsdesk/internal/repository"
)

// compile-time check that *UserRepo implements repository.UserRepository
var _ repository.UserRepository = (*UserRepo)(nil)

// UserRepo stores accounts. Emails are normalized before every write and
// lookup, and the unique email index rejects a second account with the
// same address.
type UserRepo struct {
	*Store[model.StoredUser]
}

func NewUserRepository(conn *Conn) *UserRepo {
	return &UserRepo{Store: newStore[model.StoredUser](conn, CollectionUsers, "UserRepository")}
}

func (r *UserRepo) Create(ctx context.Context, u model.StoredUser) (string, error) {
	u.Email = model.NormalizeEmail(u.Email)
	return r.Store.Create(ctx, u)
}

// FindByEmail returns (nil, nil) when no account uses email.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*model.StoredUser, error) {
	return r.findOneBy(ctx, r.op("findByEmail"), "email", model.NormalizeEmail(email))
}

func (r *UserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	n, err := r.countBy(ctx, r.op("emailExists"), "email", model.NormalizeEmail(email))
	return n > 0, err
}

func (r *UserRepo) FindByRole(ctx context.Context, role model.Role) ([]model.StoredUser, error) {
	return r.findBy(ctx, r.op("findByRole"), "role", string(role))
}

func (r *UserRepo) CountByRole(ctx context.Context, role model.Role) (int, error) {
	return r.countBy(ctx, r.op("countByRole"), "role", string(role))
}

// DeleteCascade deletes the user's sessions and then the user in a single
// transaction, so a failure leaves both in place.
func (r *UserRepo) DeleteCascade(ctx context.Context, userID string) (int, error) {
	op := r.op("deleteCascade")

	sessions, ok := r.conn.Schema().Collection(CollectionSessions)
	if !ok {
		return 0, Classify(op, fmt.Errorf("no such table: %s", CollectionSessions))
	}
	byUser, ok := sessions.Index("userId")
	if !ok {
		return 0, Classify(op, fmt.Errorf("collection %s has no userId index", CollectionSessions))
	}

	var removed int
	err := r.conn.WithTx(ctx, op, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE %s = ?", sessions.Name, byUser.expr()), userID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		removed = int(n)

		_, err = tx.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE id = ?", r.coll.Name), userID)
		return err
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}
