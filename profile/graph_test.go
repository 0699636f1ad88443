package profile_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "github.com/jrsteele09/go-landing-page/internal/errors"
	"github.com/jrsteele09/go-landing-page/profile"
	"github.com/stretchr/testify/require"
)

func TestGraphClient_Me(t *testing.T) {
	var gotAuth, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery
		switch r.Header.Get("Authorization") {
		case "Bearer good":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"o1","mail":null,"jobTitle":"Engineer"}`))
		case "Bearer garbage":
			_, _ = w.Write([]byte(`not json`))
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	g := profile.NewGraphClient(srv.URL+"/v1.0/me?$select=id,mail,jobTitle", srv.Client())

	t.Run("ok", func(t *testing.T) {
		got, err := g.Me(context.Background(), "good")
		require.NoError(t, err)
		require.Equal(t, "Bearer good", gotAuth)
		require.Equal(t, "$select=id,mail,jobTitle", gotQuery)
		require.Equal(t, map[string]any{"id": "o1", "mail": nil, "jobTitle": "Engineer"}, got)
	})

	t.Run("unauthorized", func(t *testing.T) {
		_, err := g.Me(context.Background(), "bad")
		require.True(t, apperrors.Is(err, apperrors.ErrProfileFetch))
		require.Contains(t, err.Error(), "401")
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := g.Me(context.Background(), "garbage")
		require.True(t, apperrors.Is(err, apperrors.ErrProfileFetch))
	})
}
