package testutil

import (
	"fmt"
	"os"
	"testing"
	"time"

	"healthmatch/pkg/auth"
)

type TestEnv struct {
	MongoURI     string
	DatabaseName string
	ServerURL    string
	JWTSecret    string

	issuer *auth.Issuer
}

// NewTestEnv reads the target deployment from the environment. Tests are
// skipped unless TEST_SERVER_URL points at a running service.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	serverURL := os.Getenv("TEST_SERVER_URL")
	if serverURL == "" {
		t.Skip("TEST_SERVER_URL not set; skipping integration tests")
	}

	secret := getEnv("TEST_JWT_SECRET", os.Getenv("JWT_SECRET"))
	if secret == "" {
		t.Fatal("TEST_JWT_SECRET or JWT_SECRET must match the service under test")
	}

	return &TestEnv{
		MongoURI:     getEnv("TEST_MONGO_URI", DefaultMongoURI),
		DatabaseName: getEnv("TEST_DB_NAME", DefaultDatabaseName),
		ServerURL:    serverURL,
		JWTSecret:    secret,
		issuer:       auth.NewIssuer(secret, auth.DefaultIssuer),
	}
}

func (e *TestEnv) Setup(t *testing.T) (*MongoHelper, *Client) {
	t.Helper()

	mongo := NewMongoHelper(t, e.MongoURI, e.DatabaseName)
	mongo.CleanDatabase(t)

	client := NewClient(e.ServerURL)
	client.WaitForHealthy(t, DefaultHealthCheckTimeout)

	return mongo, client
}

func (e *TestEnv) Cleanup(t *testing.T, mongo *MongoHelper) {
	t.Helper()

	if mongo != nil {
		mongo.CleanDatabase(t)
		mongo.Close(t)
	}
}

// Token mints a bearer token the service under test accepts.
func (e *TestEnv) Token(t *testing.T, userID, role string) string {
	t.Helper()
	token, err := e.issuer.CreateAccessToken(userID, role, fmt.Sprintf("%s@example.com", userID), 5*time.Minute)
	if err != nil {
		t.Fatalf("failed to mint token: %v", err)
	}
	return token
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

const (
	DefaultHealthCheckTimeout = 3 * ConnectionTimeout
)
