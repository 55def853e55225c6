package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credit-marketplace/internal/common/errors"
)

// newFakeRealm serves the token and user search endpoints of realm "market".
func newFakeRealm(t *testing.T, users []Company, searchStatus int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var tokenCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/realms/market/protocol/openid-connect/token", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		if r.PostForm.Get("client_secret") != "s3cret" {
			http.Error(w, `{"error":"unauthorized_client"}`, http.StatusUnauthorized)
			return
		}
		tokenCalls.Add(1)
		json.NewEncoder(w).Encode(TokenResponse{AccessToken: "tok", ExpiresIn: 300, TokenType: "Bearer"})
	})
	mux.HandleFunc("/admin/realms/market/users", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "true", r.URL.Query().Get("exact"))
		if searchStatus != http.StatusOK {
			http.Error(w, "boom", searchStatus)
			return
		}
		username := r.URL.Query().Get("username")
		var out []Company
		for _, u := range users {
			if u.Username == strings.ToLower(username) {
				out = append(out, u)
			}
		}
		if out == nil {
			out = []Company{}
		}
		json.NewEncoder(w).Encode(out)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &tokenCalls
}

func TestKeycloakClient_FindCompany(t *testing.T) {
	users := []Company{
		{
			ID:         "u-1",
			Username:   "comp-42",
			FirstName:  "Solar",
			Enabled:    true,
			Attributes: map[string][]string{"companyName": {"Solar Fabrication Ltd"}},
		},
	}
	srv, tokenCalls := newFakeRealm(t, users, http.StatusOK)
	client := NewKeycloakClient(srv.URL+"/", "market", "marketplace", "s3cret", time.Second)

	tests := []struct {
		name      string
		companyID string
		wantFound bool
	}{
		{"exact case", "comp-42", true},
		{"upper case id", "COMP-42", true},
		{"unknown company", "COMP-99", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			company, err := client.FindCompany(context.Background(), tt.companyID)
			require.NoError(t, err)
			if !tt.wantFound {
				assert.Nil(t, company)
				return
			}
			require.NotNil(t, company)
			assert.True(t, company.Enabled)
			assert.Equal(t, "Solar Fabrication Ltd", company.Name())
		})
	}

	assert.Equal(t, int32(1), tokenCalls.Load(), "token should be cached across lookups")
}

func TestKeycloakClient_FindCompany_Errors(t *testing.T) {
	t.Run("bad credentials", func(t *testing.T) {
		srv, _ := newFakeRealm(t, nil, http.StatusOK)
		client := NewKeycloakClient(srv.URL, "market", "marketplace", "wrong", time.Second)

		_, err := client.FindCompany(context.Background(), "COMP-42")
		var se *errors.StandardError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, errors.ErrorCode("KEYCLOAK_AUTH_ERROR"), se.Code)
		assert.True(t, se.Retryable)
	})

	tests := []struct {
		name          string
		status        int
		wantRetryable bool
	}{
		{"unavailable", http.StatusServiceUnavailable, true},
		{"forbidden", http.StatusForbidden, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newFakeRealm(t, nil, tt.status)
			client := NewKeycloakClient(srv.URL, "market", "marketplace", "s3cret", time.Second)

			_, err := client.FindCompany(context.Background(), "COMP-42")
			var se *errors.StandardError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, errors.ErrorCode("KEYCLOAK_API_ERROR"), se.Code)
			assert.Equal(t, tt.wantRetryable, se.Retryable)
		})
	}
}

func TestCompany_Name(t *testing.T) {
	assert.Equal(t, "Acme", Company{FirstName: "Acme"}.Name())
	assert.Equal(t, "Acme Holdings", Company{
		FirstName:  "Acme",
		Attributes: map[string][]string{"companyName": {"Acme Holdings"}},
	}.Name())
}
