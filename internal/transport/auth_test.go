package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type testResolver struct {
	tokenToActor map[string]string
	err          error
}

func (r *testResolver) ResolveActor(_ context.Context, token string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	actor, ok := r.tokenToActor[token]
	if !ok {
		return "", ErrUnauthorized
	}
	return actor, nil
}

// echoActor answers 200 with the resolved actor as body.
var echoActor = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	actorID, _ := ActorFromContext(r.Context())
	_, _ = w.Write([]byte(actorID))
})

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		resolver *testResolver
		header   string
		status   int
		actor    string
	}{
		{"valid token", &testResolver{tokenToActor: map[string]string{"tok": "lead"}}, "Bearer tok", http.StatusOK, "lead"},
		{"unknown token", &testResolver{tokenToActor: map[string]string{"tok": "lead"}}, "Bearer other", http.StatusUnauthorized, ""},
		{"resolver failure", &testResolver{err: errors.New("db down")}, "Bearer tok", http.StatusUnauthorized, ""},
		{"missing header", &testResolver{}, "", http.StatusUnauthorized, ""},
		{"blank bearer", &testResolver{}, "Bearer   ", http.StatusUnauthorized, ""},
		{"empty actor", &testResolver{tokenToActor: map[string]string{"tok": ""}}, "Bearer tok", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/rpc", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			AuthMiddleware(tt.resolver)(echoActor).ServeHTTP(rec, req)

			require.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				require.Equal(t, tt.actor, rec.Body.String())
			}
		})
	}
}

func TestStaticActorMiddleware(t *testing.T) {
	rec := httptest.NewRecorder()
	StaticActorMiddleware("admin")(echoActor).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/rpc", nil))
	require.Equal(t, "admin", rec.Body.String())
}

func TestWithActor(t *testing.T) {
	_, ok := ActorFromContext(context.Background())
	require.False(t, ok)

	actorID, ok := ActorFromContext(WithActor(context.Background(), "u1"))
	require.True(t, ok)
	require.Equal(t, "u1", actorID)
}
