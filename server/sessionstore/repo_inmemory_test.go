package sessionstore_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-landing-page/identity"
	apperrors "github.com/jrsteele09/go-landing-page/internal/errors"
	"github.com/jrsteele09/go-landing-page/server/sessionstore"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRepo(t *testing.T) {
	t.Run("get missing session", func(t *testing.T) {
		r := sessionstore.NewInMemoryRepo(10, time.Hour)
		_, err := r.Get("s1")
		require.True(t, apperrors.Is(err, apperrors.ErrSessionNotFound))
	})

	t.Run("empty session id", func(t *testing.T) {
		r := sessionstore.NewInMemoryRepo(10, time.Hour)
		_, err := r.Get("")
		require.Error(t, err)
		require.Error(t, r.Set("", sessionstore.Record{}))
		require.Error(t, r.Clear(""))
	})

	t.Run("set get clear", func(t *testing.T) {
		r := sessionstore.NewInMemoryRepo(10, time.Hour)
		require.NoError(t, r.Set("s1", sessionstore.Record{State: "abc"}))

		rec, err := r.Get("s1")
		require.NoError(t, err)
		require.Equal(t, "abc", rec.State)
		require.False(t, rec.Authenticated())
		require.False(t, rec.CreatedAt.IsZero())

		require.NoError(t, r.Set("s1", sessionstore.Record{Claims: identity.Claims{"tid": "t1"}}))
		rec, err = r.Get("s1")
		require.NoError(t, err)
		require.Empty(t, rec.State)
		require.True(t, rec.Authenticated())

		require.NoError(t, r.Clear("s1"))
		_, err = r.Get("s1")
		require.True(t, apperrors.Is(err, apperrors.ErrSessionNotFound))
		require.NoError(t, r.Clear("s1"))
	})

	t.Run("sessions are isolated", func(t *testing.T) {
		r := sessionstore.NewInMemoryRepo(10, time.Hour)
		require.NoError(t, r.Set("s1", sessionstore.Record{State: "one"}))
		require.NoError(t, r.Set("s2", sessionstore.Record{State: "two"}))
		require.NoError(t, r.Clear("s1"))

		rec, err := r.Get("s2")
		require.NoError(t, err)
		require.Equal(t, "two", rec.State)
	})

	t.Run("stored claims cannot be mutated by the caller", func(t *testing.T) {
		r := sessionstore.NewInMemoryRepo(10, time.Hour)
		claims := identity.Claims{"name": "A"}
		require.NoError(t, r.Set("s1", sessionstore.Record{Claims: claims}))
		claims["name"] = "B"

		rec, err := r.Get("s1")
		require.NoError(t, err)
		rec.Claims["name"] = "C"

		rec, err = r.Get("s1")
		require.NoError(t, err)
		require.Equal(t, "A", rec.Claims.Name())
	})

	t.Run("entries expire", func(t *testing.T) {
		r := sessionstore.NewInMemoryRepo(10, 20*time.Millisecond)
		require.NoError(t, r.Set("s1", sessionstore.Record{State: "abc"}))
		require.Eventually(t, func() bool {
			_, err := r.Get("s1")
			return apperrors.Is(err, apperrors.ErrSessionNotFound)
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("least recently used is evicted", func(t *testing.T) {
		r := sessionstore.NewInMemoryRepo(2, time.Hour)
		require.NoError(t, r.Set("s1", sessionstore.Record{State: "1"}))
		require.NoError(t, r.Set("s2", sessionstore.Record{State: "2"}))
		_, err := r.Get("s1")
		require.NoError(t, err)
		require.NoError(t, r.Set("s3", sessionstore.Record{State: "3"}))

		require.Equal(t, 2, r.Len())
		_, err = r.Get("s2")
		require.True(t, apperrors.Is(err, apperrors.ErrSessionNotFound))
		_, err = r.Get("s1")
		require.NoError(t, err)
	})
}
