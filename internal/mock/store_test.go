package mock

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gkstorejd-max/gkstore-admin/internal/client"
)

func TestParseListQuery(t *testing.T) {
	q := ParseListQuery(url.Values{
		"page": {"2"}, "limit": {"5"}, "search": {" tikka "},
		"sortField": {"price"}, "sortOrder": {"DESC"},
	})
	assert.Equal(t, ListQuery{Page: 2, Limit: 5, Search: "tikka", SortField: "price", Desc: true}, q)

	def := ParseListQuery(url.Values{"page": {"-1"}, "limit": {"abc"}})
	assert.Equal(t, 1, def.Page)
	assert.Equal(t, 10, def.Limit)
	assert.False(t, def.Desc)
}

func TestProductsPagination(t *testing.T) {
	s := seededStore()

	page, p := s.Products(ListQuery{Page: 3, Limit: 3})
	assert.Len(t, page, 2)
	assert.Equal(t, client.Pagination{Page: 3, Limit: 3, Total: 8, TotalPages: 3}, p)

	beyond, _ := s.Products(ListQuery{Page: 9, Limit: 3})
	assert.Empty(t, beyond)
}

func TestTodayOrdersExcludesEarlierDays(t *testing.T) {
	s := NewStore()
	now := time.Date(2026, 5, 2, 10, 0, 0, 0, time.Local)
	s.now = func() time.Time { return now }

	s.AddOrder(client.Order{ID: "late-yesterday", PlacedAt: now.Add(-10*time.Hour - time.Minute)})
	s.AddOrder(client.Order{ID: "midnight", PlacedAt: time.Date(2026, 5, 2, 0, 0, 0, 0, time.Local)})
	s.AddOrder(client.Order{ID: "now"})

	got := s.TodayOrders()
	require.Len(t, got, 2)
	assert.Equal(t, "now", got[0].ID)
	assert.Equal(t, "midnight", got[1].ID)
	assert.Equal(t, now, got[0].PlacedAt)
}

func TestAuthenticate(t *testing.T) {
	s := NewStore()
	u, err := s.AddUser("Admin", "Admin@GKStore.test", "boss", "admin", "s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", string(u.PasswordHash))

	for _, id := range []string{"admin@gkstore.test", "ADMIN@gkstore.TEST", "boss"} {
		got, err := s.Authenticate(id, "s3cret")
		require.NoError(t, err, id)
		assert.Equal(t, u.ID, got.ID)
	}
	_, err = s.Authenticate("boss", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Authenticate("Boss", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestTokens(t *testing.T) {
	tokens, err := NewTokens("k", time.Minute, time.Hour)
	require.NoError(t, err)
	u := &User{ID: "u1", Role: "admin"}

	access, err := tokens.Issue(u, AccessToken)
	require.NoError(t, err)
	claims, err := tokens.Verify(access, AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "admin", claims.Role)

	_, err = tokens.Verify(access, RefreshToken)
	assert.Error(t, err)

	other, _ := NewTokens("other", time.Minute, time.Hour)
	_, err = other.Verify(access, AccessToken)
	assert.Error(t, err)

	_, err = tokens.Verify("", AccessToken)
	assert.Error(t, err)

	_, err = NewTokens("", time.Minute, time.Hour)
	assert.Error(t, err)
}
