package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sakif/newsdesk/internal/model"
	"github.com/sakif/newsdesk/internal/repository"
)

// compile-time check that *PreferencesRepo implements repository.PreferencesRepository
var _ repository.PreferencesRepository = (*PreferencesRepo)(nil)

// PreferencesRepo stores UserPreferences keyed by user id. The same
// collection also holds each user's news preferences blob under
// "news_<userId>"; those documents do not follow the UserPreferences shape.
// They are hidden from FindAll and Count, and the generic by-key methods
// refuse their keys.
type PreferencesRepo struct {
	*Store[model.UserPreferences]
}

func NewPreferencesRepository(conn *Conn) *PreferencesRepo {
	return &PreferencesRepo{Store: newStore[model.UserPreferences](conn, CollectionPreferences, "UserPreferencesRepository")}
}

func (r *PreferencesRepo) Create(ctx context.Context, item model.UserPreferences) (string, error) {
	if err := r.reserved("create", item.ID); err != nil {
		return "", err
	}
	return r.Store.Create(ctx, item)
}

func (r *PreferencesRepo) FindByID(ctx context.Context, id string) (*model.UserPreferences, error) {
	if err := r.reserved("findById", id); err != nil {
		return nil, err
	}
	return r.Store.FindByID(ctx, id)
}

func (r *PreferencesRepo) Update(ctx context.Context, id string, patch repository.Patch[model.UserPreferences]) (*model.UserPreferences, error) {
	if err := r.reserved("update", id); err != nil {
		return nil, err
	}
	return r.Store.Update(ctx, id, patch)
}

func (r *PreferencesRepo) Delete(ctx context.Context, id string) error {
	if err := r.reserved("delete", id); err != nil {
		return err
	}
	return r.Store.Delete(ctx, id)
}

func (r *PreferencesRepo) reserved(method, id string) error {
	if !isNewsKey(id) {
		return nil
	}
	op := r.op(method)
	return &repository.StorageError{
		Kind:    repository.ErrUnknown,
		Op:      op,
		Message: fmt.Sprintf("Error in %s: key %s is reserved for news preferences", op, id),
	}
}

func isNewsKey(id string) bool {
	return strings.HasPrefix(id, model.NewsPreferencesKey(""))
}

func (r *PreferencesRepo) FindAll(ctx context.Context) ([]model.UserPreferences, error) {
	all, err := r.Store.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	prefs := make([]model.UserPreferences, 0, len(all))
	for _, p := range all {
		if isNewsKey(p.ID) {
			continue
		}
		prefs = append(prefs, p)
	}
	return prefs, nil
}

func (r *PreferencesRepo) Count(ctx context.Context) (int, error) {
	prefs, err := r.FindAll(ctx)
	return len(prefs), err
}

// GetPreferencesWithDefaults returns the user's preferences, creating the
// defaults first if the user has none.
func (r *PreferencesRepo) GetPreferencesWithDefaults(ctx context.Context, userID string) (*model.UserPreferences, error) {
	prefs, err := r.FindByID(ctx, userID)
	if err != nil || prefs != nil {
		return prefs, err
	}

	defaults := model.DefaultPreferences(userID, r.now())
	if _, err := r.Create(ctx, defaults); err != nil {
		// Someone else created them in the meantime.
		if errors.Is(err, repository.ErrDuplicateKey) {
			return r.FindByID(ctx, userID)
		}
		return nil, err
	}
	return &defaults, nil
}

func (r *PreferencesRepo) UpdatePreferences(ctx context.Context, userID string, patch model.PreferencesPatch) (*model.UserPreferences, error) {
	if _, err := r.GetPreferencesWithDefaults(ctx, userID); err != nil {
		return nil, err
	}
	now := r.now()
	return r.Update(ctx, userID, repository.PatchFunc[model.UserPreferences](func(p *model.UserPreferences) {
		patch.Apply(p)
		p.UpdatedAt = now
	}))
}

// GetNewsPreferences returns nil if the user never saved any.
func (r *PreferencesRepo) GetNewsPreferences(ctx context.Context, userID string) (*model.NewsPreferences, error) {
	var prefs model.NewsPreferences
	ok, err := r.getRaw(ctx, r.op("getNewsPreferences"), model.NewsPreferencesKey(userID), &prefs)
	if err != nil || !ok {
		return nil, err
	}
	return &prefs, nil
}

func (r *PreferencesRepo) SetNewsPreferences(ctx context.Context, userID string, prefs model.NewsPreferences) error {
	prefs.ID = model.NewsPreferencesKey(userID)
	prefs.UserID = userID
	return r.put(ctx, r.op("setNewsPreferences"), prefs.ID, prefs)
}
