package directory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raftaar/raftaar-backend/internal/apperr"
	"github.com/raftaar/raftaar-backend/internal/geo"
	"github.com/raftaar/raftaar-backend/internal/models"
)

func newCaptain(email, mobile string) *models.Captain {
	c := &models.Captain{}
	c.ID = uuid.New()
	c.Email = email
	c.MobileNumber = mobile
	return c
}

func TestMemoryStore_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	store := NewCaptainMemoryStore()

	c := newCaptain("a@example.com", "+911111111111")
	require.NoError(t, store.Save(ctx, c))

	byEmail, err := store.FindByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, c.ID, byEmail.ID)

	byMobile, err := store.FindByMobile(ctx, "+911111111111")
	require.NoError(t, err)
	assert.Equal(t, c.ID, byMobile.ID)

	either, err := store.FindByEmailOrMobile(ctx, "nobody@example.com", "+911111111111")
	require.NoError(t, err)
	assert.Equal(t, c.ID, either.ID)

	_, err = store.FindByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewCaptainMemoryStore()
	c := newCaptain("a@example.com", "+911111111111")
	require.NoError(t, store.Save(ctx, c))

	got, err := store.FindByID(ctx, c.ID)
	require.NoError(t, err)
	got.EmailVerified = true

	again, err := store.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, again.EmailVerified, "mutation without Save must not leak into the store")
}

func TestMemoryStore_UniqueFields(t *testing.T) {
	ctx := context.Background()
	store := NewCaptainMemoryStore()
	require.NoError(t, store.Save(ctx, newCaptain("a@example.com", "+911111111111")))

	err := store.Save(ctx, newCaptain("a@example.com", "+912222222222"))
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.Conflict, e.Kind)
	assert.Equal(t, "email", e.Field)

	err = store.Save(ctx, newCaptain("b@example.com", "+911111111111"))
	e, ok = apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "mobileNumber", e.Field)
}

func TestMemoryStore_UniquenessIsPerKind(t *testing.T) {
	ctx := context.Background()
	captains := NewCaptainMemoryStore()
	users := NewUserMemoryStore()

	require.NoError(t, captains.Save(ctx, newCaptain("same@example.com", "+911111111111")))

	u := &models.User{}
	u.ID = uuid.New()
	u.Email = "same@example.com"
	u.MobileNumber = "+911111111111"
	require.NoError(t, users.Save(ctx, u))
}

func TestMemoryStore_ChannelBinding(t *testing.T) {
	ctx := context.Background()
	store := NewCaptainMemoryStore()
	c := newCaptain("a@example.com", "+911111111111")
	require.NoError(t, store.Save(ctx, c))

	require.NoError(t, store.UpdateField(ctx, c.ID, FieldChannelID, "ch-1"))
	found, err := store.FindByChannel(ctx, "ch-1")
	require.NoError(t, err)
	assert.Equal(t, c.ID, found.ID)

	cleared, err := store.ClearChannel(ctx, "ch-1")
	require.NoError(t, err)
	assert.True(t, cleared)

	_, err = store.FindByChannel(ctx, "ch-1")
	assert.ErrorIs(t, err, ErrNotFound)

	cleared, err = store.ClearChannel(ctx, "ch-1")
	require.NoError(t, err)
	assert.False(t, cleared)
}

func TestMemoryStore_UpdateFieldUnknownActor(t *testing.T) {
	store := NewCaptainMemoryStore()
	err := store.UpdateField(context.Background(), uuid.New(), FieldChannelID, "ch-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_NearOrdersAndCutsOff(t *testing.T) {
	ctx := context.Background()
	store := NewCaptainMemoryStore()
	center := geo.Point{Lat: 12.97, Lng: 77.59}

	far := newCaptain("far@example.com", "+910000000001")   // ~11 km
	mid := newCaptain("mid@example.com", "+910000000002")   // ~3.3 km
	near := newCaptain("near@example.com", "+910000000003") // ~1.1 km
	nowhere := newCaptain("nowhere@example.com", "+910000000004")
	for _, c := range []*models.Captain{far, mid, near, nowhere} {
		require.NoError(t, store.Save(ctx, c))
	}
	require.NoError(t, store.UpdateField(ctx, far.ID, FieldLocation, geo.Point{Lat: 13.07, Lng: 77.59}.Stored()))
	require.NoError(t, store.UpdateField(ctx, mid.ID, FieldLocation, geo.Point{Lat: 13.00, Lng: 77.59}.Stored()))
	require.NoError(t, store.UpdateField(ctx, near.ID, FieldLocation, geo.Point{Lat: 12.98, Lng: 77.59}.Stored()))

	got, err := store.Near(ctx, center, 5000)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, near.ID, got[0].ID)
	assert.Equal(t, mid.ID, got[1].ID)

	none, err := store.Near(ctx, geo.Point{Lat: -33.86, Lng: 151.21}, 5000)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryTokenStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryTokenStore()
	require.NoError(t, store.Create(ctx, &models.RefreshToken{TokenHash: "h", ActorKind: models.KindRider}))

	tok, err := store.FindActive(ctx, "h")
	require.NoError(t, err)
	assert.Equal(t, models.KindRider, tok.ActorKind)

	require.NoError(t, store.Revoke(ctx, "h"))
	_, err = store.FindActive(ctx, "h")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestFieldForConstraint(t *testing.T) {
	assert.Equal(t, "email", fieldForConstraint("idx_captains_email"))
	assert.Equal(t, "mobileNumber", fieldForConstraint("idx_users_mobile_number"))
	assert.Equal(t, "value", fieldForConstraint("something_else"))
}
