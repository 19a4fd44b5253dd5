package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/newsdesk/internal/model"
	"github.com/sakif/newsdesk/internal/repository"
)

func newTestPreferencesRepo(t *testing.T) *PreferencesRepo {
	t.Helper()
	prefs := NewPreferencesRepository(newTestConn(t))
	prefs.now = func() time.Time { return fixedTime }
	return prefs
}

func TestGetPreferencesWithDefaults(t *testing.T) {
	prefs := newTestPreferencesRepo(t)
	ctx := context.Background()

	got, err := prefs.GetPreferencesWithDefaults(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, model.DefaultPreferences("u1", fixedTime), *got)

	// Second call reads the stored row instead of creating another.
	again, err := prefs.GetPreferencesWithDefaults(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, *got, *again)

	n, err := prefs.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUpdatePreferences(t *testing.T) {
	prefs := newTestPreferencesRepo(t)
	ctx := context.Background()

	_, err := prefs.GetPreferencesWithDefaults(ctx, "u1")
	require.NoError(t, err)

	later := fixedTime.Add(time.Hour)
	prefs.now = func() time.Time { return later }

	dark := model.ThemeDark
	got, err := prefs.UpdatePreferences(ctx, "u1", model.PreferencesPatch{
		Theme:         &dark,
		Notifications: &model.NotificationSettings{Push: true},
	})
	require.NoError(t, err)

	assert.Equal(t, model.ThemeDark, got.Theme)
	assert.Equal(t, "en", got.Language, "untouched fields keep their value")
	assert.Equal(t, model.NotificationSettings{Push: true}, got.Notifications)
	assert.Equal(t, later, got.UpdatedAt)
}

func TestUpdatePreferencesCreatesDefaults(t *testing.T) {
	prefs := newTestPreferencesRepo(t)
	ctx := context.Background()

	lang := "de"
	got, err := prefs.UpdatePreferences(ctx, "fresh", model.PreferencesPatch{Language: &lang})
	require.NoError(t, err)
	assert.Equal(t, "de", got.Language)
	assert.Equal(t, model.ThemeAuto, got.Theme)
}

func TestNewsPreferencesAreHidden(t *testing.T) {
	prefs := newTestPreferencesRepo(t)
	ctx := context.Background()

	missing, err := prefs.GetNewsPreferences(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	news := model.DefaultNewsPreferences("u1")
	news.BookmarkedArticles = []string{"a1"}
	require.NoError(t, prefs.SetNewsPreferences(ctx, "u1", news))

	got, err := prefs.GetNewsPreferences(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "news_u1", got.ID)
	assert.Equal(t, []string{"a1"}, got.BookmarkedArticles)

	_, err = prefs.GetPreferencesWithDefaults(ctx, "u1")
	require.NoError(t, err)

	all, err := prefs.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "u1", all[0].ID)
}

func TestNewsKeysAreReserved(t *testing.T) {
	prefs := newTestPreferencesRepo(t)
	ctx := context.Background()

	news := model.DefaultNewsPreferences("u1")
	news.ReadArticles = []string{"a1", "a2"}
	require.NoError(t, prefs.SetNewsPreferences(ctx, "u1", news))
	key := model.NewsPreferencesKey("u1")

	tests := []struct {
		name string
		call func() error
	}{
		{"find", func() error { _, err := prefs.FindByID(ctx, key); return err }},
		{"update", func() error {
			_, err := prefs.Update(ctx, key, repository.PatchFunc[model.UserPreferences](func(p *model.UserPreferences) {
				p.Theme = model.ThemeDark
			}))
			return err
		}},
		{"delete", func() error { return prefs.Delete(ctx, key) }},
		{"create", func() error {
			_, err := prefs.Create(ctx, model.DefaultPreferences("news_u2", fixedTime))
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.ErrorIs(t, err, repository.ErrUnknown)
		})
	}

	got, err := prefs.GetNewsPreferences(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, got, "the blob survives every refused call")
	assert.Equal(t, []string{"a1", "a2"}, got.ReadArticles)
}
