// Package testserver runs the full sciflow stack over an in-memory database
// for tests.
package testserver

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/rpggio/sciflow/internal/app"
	"github.com/rpggio/sciflow/internal/domain/user"
	"github.com/rpggio/sciflow/internal/mcp"
	"github.com/rpggio/sciflow/internal/notify"
	"github.com/rpggio/sciflow/internal/sqlite"
	"github.com/rpggio/sciflow/internal/transport"
	"github.com/stretchr/testify/require"
)

// TestServer is an HTTP server plus direct access to its services.
type TestServer struct {
	Server *httptest.Server
	DB     *sqlite.DB
	App    *app.App
	// Handler is the JSON-RPC handler behind /rpc.
	Handler *mcp.Handler
	// Sent collects every notification dispatched after commit.
	Sent []notify.Message
}

// New starts a server with bearer-token auth over a fresh database.
func New(t *testing.T) *TestServer {
	t.Helper()

	db, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)

	ts := &TestServer{DB: db}
	ts.App = app.New(db, app.Options{
		Notifier: notify.NotifierFunc(func(_ context.Context, msg notify.Message) error {
			ts.Sent = append(ts.Sent, msg)
			return nil
		}),
		Workers: 2,
	})
	ts.Handler = mcp.NewHandler(ts.App.Services(), nil)
	ts.Server = httptest.NewServer(transport.NewServer(ts.Handler, transport.AuthMiddleware(ts.App.Users), nil))

	t.Cleanup(func() {
		ts.Server.Close()
		_ = db.Close()
	})

	return ts
}

// AddUser creates a user holding roles. It returns the user's ID and a
// bearer token for them.
func (ts *TestServer) AddUser(t *testing.T, username string, roles ...string) (string, string) {
	t.Helper()
	ctx := context.Background()
	u, err := ts.App.Users.Create(ctx, user.CreateRequest{Username: username, DisplayName: username})
	require.NoError(t, err)
	for _, role := range roles {
		require.NoError(t, ts.App.Users.GrantRole(ctx, u.ID, role))
	}
	token, err := ts.App.Users.IssueAPIKey(ctx, u.ID, "test")
	require.NoError(t, err)
	return u.ID, token
}

// MCPConfig configures an SDK server over the same services, acting as actorID.
func (ts *TestServer) MCPConfig(actorID string) mcp.Config {
	return mcp.Config{
		Services:      ts.App.Services(),
		TransportMode: "stdio",
		DefaultActor:  actorID,
	}
}
