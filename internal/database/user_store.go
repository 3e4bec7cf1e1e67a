package database

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"github.com/nfrund/roster/internal/domain"
	"github.com/surrealdb/surrealdb.go"
)

var _ domain.UserRepository = (*UserStore)(nil)

// accessMethod is the record access defined on the database for users.
const accessMethod = "account"

// UserStore authenticates users through SurrealDB record access.
type UserStore struct {
	dbURL  string
	ns     string
	dbName string
}

// NewUserStore creates a UserStore that signs users in against conn's
// endpoint, namespace and database.
func NewUserStore(conn DBConnection) *UserStore {
	return &UserStore{dbURL: conn.GetDBURL(), ns: conn.GetDBNs(), dbName: conn.GetDBDb()}
}

// SignIn exchanges credentials for a record access token.
//
// Sign-in switches the authentication of the connection it runs on, so it
// uses a short-lived connection of its own and leaves the shared root
// connection untouched.
func (s *UserStore) SignIn(ctx context.Context, creds domain.Credentials) (string, error) {
	if err := creds.Validate(); err != nil {
		return "", domain.ErrInvalidCredentials
	}

	var token string
	err := s.withAccessConnection(ctx, func(db *surrealdb.DB) (err error) {
		token, err = db.SignIn(ctx, s.accessParams(creds.Email, creds.Password))
		return err
	})
	if err != nil {
		if isAuthFailure(err) {
			return "", domain.ErrInvalidCredentials
		}
		return "", NewDBError(err, "sign-in failed")
	}
	if token == "" {
		return "", fmt.Errorf("sign-in returned an empty token: %w", domain.ErrInvalidCredentials)
	}

	slog.InfoContext(ctx, "User signed in", "event", "user_signin", "email", creds.Email)
	return token, nil
}

// SignUp creates the account through the SIGNUP clause of the record access,
// which also writes the users row from the registration fields.
func (s *UserStore) SignUp(ctx context.Context, reg domain.Registration) (string, error) {
	if err := reg.Validate(); err != nil {
		return "", fmt.Errorf("validation failed for registration: %w", err)
	}

	params := s.accessParams(reg.Email, reg.Password)
	maps.Copy(params, reg.Fields())

	var token string
	err := s.withAccessConnection(ctx, func(db *surrealdb.DB) (err error) {
		token, err = db.SignUp(ctx, params)
		return err
	})
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return "", domain.ErrUserAlreadyExists
		}
		return "", NewDBError(err, "sign-up failed")
	}
	if token == "" {
		return "", NewDBError(ErrQueryFailed, "sign-up returned an empty token")
	}

	slog.InfoContext(ctx, "User signed up", "event", "user_signup", "email", reg.Email, "user_type", reg.UserType)
	return token, nil
}

func (s *UserStore) accessParams(email, password string) map[string]any {
	return map[string]any{
		"ns":       s.ns,
		"db":       s.dbName,
		"ac":       accessMethod,
		"email":    email,
		"password": password,
	}
}

func (s *UserStore) withAccessConnection(ctx context.Context, fn func(db *surrealdb.DB) error) error {
	db, err := surrealdb.FromEndpointURLString(ctx, s.dbURL)
	if err != nil {
		return NewDBError(err, "failed to open access connection")
	}
	defer func() {
		if cerr := db.Close(context.WithoutCancel(ctx)); cerr != nil {
			slog.DebugContext(ctx, "Closing access connection failed", "error", cerr)
		}
	}()
	return fn(db)
}

// isAuthFailure recognises the errors SurrealDB returns for bad credentials.
func isAuthFailure(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no record was returned") ||
		strings.Contains(msg, "authentication") ||
		strings.Contains(msg, "invalid")
}
