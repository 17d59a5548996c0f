package auth

import (
	"os"
	"time"
)

const (
	envSessionCookie = "PXFOLLOW_SESSION_COOKIE"
	envUserAgent     = "PXFOLLOW_USER_AGENT"
	envAccountName   = "env"
)

// EnvironmentStore reads a single account from PXFOLLOW_SESSION_COOKIE.
// It is read-only.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve returns the environment account. An empty name or "env" matches.
func (e *EnvironmentStore) Retrieve(name string) (*Account, error) {
	cookie := os.Getenv(envSessionCookie)
	if cookie == "" || (name != "" && name != envAccountName) {
		return nil, ErrCredentialsNotFound
	}

	userID, _ := UserIDFromCookie(cookie)
	return &Account{
		Name:          envAccountName,
		SessionCookie: cookie,
		UserID:        userID,
		UserAgent:     os.Getenv(envUserAgent),
		LastModified:  time.Now(),
	}, nil
}

func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Exists(name string) bool {
	_, err := e.Retrieve(name)
	return err == nil
}
