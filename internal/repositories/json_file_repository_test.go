package repositories

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ps-vitor/crous-notifier/internal/domain"
	"github.com/ps-vitor/crous-notifier/pkg/logger"
)

type MockMirror struct {
	mock.Mock
}

func (m *MockMirror) Pull(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockMirror) Push(ctx context.Context, payload []byte) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newRepo(t *testing.T, mirror Mirror) (*JSONFileRepository, string, *clock) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.json")
	repo := NewJSONFileRepository(context.Background(), path, mirror, logger.Nop())
	c := &clock{t: time.Date(2024, 9, 1, 10, 0, 0, 0, time.Local)}
	repo.now = c.now
	return repo, path, c
}

func ids(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

func TestLoadKnownIDs_MissingFileIsEmpty(t *testing.T) {
	repo, _, _ := newRepo(t, nil)

	known, err := repo.LoadKnownIDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, known)
}

func TestLoadKnownIDs_CorruptFileIsEmpty(t *testing.T) {
	repo, path, _ := newRepo(t, nil)
	require.NoError(t, os.WriteFile(path, []byte(`{"a": {"id": `), 0o644))

	known, err := repo.LoadKnownIDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, known)
}

func TestLoad_UpgradesLegacyList(t *testing.T) {
	repo, path, _ := newRepo(t, nil)
	require.NoError(t, os.WriteFile(path, []byte(`["101", "102"]`), 0o644))

	known, err := repo.LoadKnownIDs(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"101", "102"}, ids(known))

	listings, err := repo.LoadListings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.Listing{{ID: "101"}, {ID: "102"}}, listings)
}

func TestSave_RoundTripPreservesFirstSeen(t *testing.T) {
	repo, _, c := newRepo(t, nil)
	ctx := context.Background()

	current := []domain.Listing{
		{ID: "1", Name: "A", Address: "47000 AGEN", Price: "300 €"},
		{ID: "2", Name: "B", Address: "64000 PAU", Price: "400 €"},
	}
	require.NoError(t, repo.Save(ctx, domain.IDs(current), current))

	c.t = c.t.Add(time.Hour)
	current[0].Price = "310 €"
	current = append(current, domain.Listing{ID: "3", Name: "C"})
	require.NoError(t, repo.Save(ctx, domain.IDs(current), current))

	known, err := repo.LoadKnownIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1", "2", "3"}, ids(known))

	listings, err := repo.LoadListings(ctx)
	require.NoError(t, err)
	require.Len(t, listings, 3)
	assert.Equal(t, "3", listings[0].ID)
	assert.Equal(t, "2024-09-01T11:00:00", listings[0].FirstSeen)
	assert.Equal(t, "1", listings[1].ID)
	assert.Equal(t, "2024-09-01T10:00:00", listings[1].FirstSeen)
	assert.Equal(t, "310 €", listings[1].Price, "record is refreshed")
	assert.Equal(t, "2024-09-01T10:00:00", listings[2].FirstSeen)
}

func TestSave_KeepsKnownIDsAbsentFromCurrent(t *testing.T) {
	repo, path, _ := newRepo(t, nil)
	ctx := context.Background()
	require.NoError(t, os.WriteFile(path, []byte(`{"old": {"id": "old", "name": "Gone", "first_seen": "2023-01-01T00:00:00"}}`), 0o644))

	current := []domain.Listing{{ID: "new", Name: "Fresh"}}
	require.NoError(t, repo.Save(ctx, []string{"old", "ghost", "new"}, current))

	listings, err := repo.LoadListings(ctx)
	require.NoError(t, err)
	require.Len(t, listings, 3)
	assert.Equal(t, domain.Listing{ID: "new", Name: "Fresh", FirstSeen: "2024-09-01T10:00:00"}, listings[0])
	assert.Equal(t, domain.Listing{ID: "old", Name: "Gone", FirstSeen: "2023-01-01T00:00:00"}, listings[1])
	assert.Equal(t, domain.Listing{ID: "ghost"}, listings[2])
}

func TestSave_UpgradedPlaceholderGetsStamped(t *testing.T) {
	repo, path, _ := newRepo(t, nil)
	ctx := context.Background()
	require.NoError(t, os.WriteFile(path, []byte(`["1"]`), 0o644))

	require.NoError(t, repo.Save(ctx, []string{"1"}, []domain.Listing{{ID: "1", Name: "A"}}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"1": {"id": "1", "name": "A", "first_seen": "2024-09-01T10:00:00"}}`, string(raw))
}

func TestSave_FailureReturnsPersistError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "state.json")
	repo := NewJSONFileRepository(context.Background(), path, nil, logger.Nop())

	err := repo.Save(context.Background(), []string{"1"}, []domain.Listing{{ID: "1"}})

	var persistErr *domain.PersistError
	require.True(t, errors.As(err, &persistErr))
	assert.Equal(t, path, persistErr.Path)
}

func TestDelete(t *testing.T) {
	repo, _, _ := newRepo(t, nil)
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, []string{"1", "2"}, []domain.Listing{{ID: "1"}, {ID: "2"}}))

	require.NoError(t, repo.Delete(ctx, "1"))
	assert.ErrorIs(t, repo.Delete(ctx, "1"), ErrListingNotFound)

	known, err := repo.LoadKnownIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, ids(known))
}

func TestMirror_PushAfterSave(t *testing.T) {
	mirror := new(MockMirror)
	mirror.On("Pull", mock.Anything).Return(nil, nil).Once()
	repo, path, _ := newRepo(t, mirror)

	mirror.On("Push", mock.Anything, mock.Anything).Return(errors.New("heroku down")).Once()
	require.NoError(t, repo.Save(context.Background(), []string{"1"}, []domain.Listing{{ID: "1"}}), "mirror failures never fail a save")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	mirror.AssertCalled(t, "Push", mock.Anything, raw)
	mirror.AssertExpectations(t)
}

func TestMirror_RestoreWhenFileMissing(t *testing.T) {
	mirror := new(MockMirror)
	mirror.On("Pull", mock.Anything).Return([]byte(`{"9": {"id": "9"}}`), nil).Once()

	repo, _, _ := newRepo(t, mirror)

	known, err := repo.LoadKnownIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"9"}, ids(known))
	mirror.AssertExpectations(t)
}

func TestMirror_NotPulledWhenFileExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))
	mirror := new(MockMirror)

	NewJSONFileRepository(context.Background(), path, mirror, logger.Nop())

	mirror.AssertNotCalled(t, "Pull", mock.Anything)
}
