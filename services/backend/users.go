package backend

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"convokit/core"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password Signup accepts.
const MinPasswordLength = 6

var (
	ErrInvalidCredentials = errors.New("Invalid email or password")
	ErrEmailTaken         = errors.New("Email already exists")
	ErrWeakPassword       = errors.New("Password must be at least 6 characters long")
)

// userRecord is one entry of the user collection as stored by the backend.
type userRecord struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Avatar   string `json:"avatar,omitempty"`
}

func (u userRecord) identity() core.Identity {
	return core.Identity{ID: u.ID, Email: u.Email, DisplayName: u.Username, Avatar: u.Avatar}
}

// Login finds the user by email and checks the password. The returned identity never carries the
// password.
func (c *Client) Login(ctx context.Context, email, password string) (core.Identity, error) {
	users, err := c.listUsers(ctx)
	if err != nil {
		return core.Identity{}, err
	}
	email = strings.TrimSpace(email)
	for _, u := range users {
		if strings.EqualFold(u.Email, email) && passwordMatches(u.Password, password) {
			return u.identity(), nil
		}
	}
	return core.Identity{}, ErrInvalidCredentials
}

// Signup creates a user with a bcrypt-hashed password. Emails are unique.
func (c *Client) Signup(ctx context.Context, username, email, password string) (core.Identity, error) {
	if len(password) < MinPasswordLength {
		return core.Identity{}, ErrWeakPassword
	}
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" {
		return core.Identity{}, errors.New("username and email are required")
	}

	users, err := c.listUsers(ctx)
	if err != nil {
		return core.Identity{}, err
	}
	for _, u := range users {
		if strings.EqualFold(u.Email, email) {
			return core.Identity{}, ErrEmailTaken
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return core.Identity{}, err
	}
	record := userRecord{
		ID:       uuid.NewString(),
		Username: username,
		Email:    email,
		Password: string(hash),
		Avatar:   "https://api.dicebear.com/7.x/initials/svg?seed=" + url.QueryEscape(username),
	}
	resp, err := c.postJSON(ctx, "create user", c.config.UsersURL, record)
	if err != nil {
		return core.Identity{}, err
	}
	resp.Body.Close()
	c.logger.Info("user created", "user", record.ID)
	return record.identity(), nil
}

func (c *Client) listUsers(ctx context.Context) ([]userRecord, error) {
	req, err := newRequest(ctx, http.MethodGet, c.config.UsersURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.do("list users", req)
	if err != nil {
		return nil, err
	}
	var users []userRecord
	if err := decode("list users", resp, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// passwordMatches accepts bcrypt hashes and, for records created before hashing, plain text.
func passwordMatches(stored, password string) bool {
	if strings.HasPrefix(stored, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
	}
	return stored != "" && subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1
}
