package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/gotrue-go"

	"github.com/moodtherapist/backend/internal/config"
)

var (
	ErrInvalidToken = errors.New("invalid or expired session")
	ErrUnavailable  = errors.New("auth provider unavailable")
)

// gotrue reports non-200 answers as "response status code N: body".
var statusPattern = regexp.MustCompile(`status code (\d{3})`)

// User is the authenticated caller.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// Verifier resolves a bearer token to a user.
type Verifier interface {
	Verify(ctx context.Context, token string) (User, error)
}

// SupabaseVerifier asks Supabase Auth who owns an access token.
type SupabaseVerifier struct {
	client gotrue.Client
}

// NewSupabaseVerifier returns nil when Supabase is not configured.
func NewSupabaseVerifier(cfg config.SupabaseConfig, httpClient *http.Client) *SupabaseVerifier {
	if !cfg.Enabled() {
		return nil
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	key := cfg.AnonKey
	if key == "" {
		key = cfg.ServiceKey
	}
	client := gotrue.New("", key).
		WithCustomGoTrueURL(cfg.URL + "/auth/v1").
		WithClient(*httpClient)
	return &SupabaseVerifier{client: client}
}

func (v *SupabaseVerifier) Verify(ctx context.Context, token string) (User, error) {
	type result struct {
		user User
		err  error
	}
	done := make(chan result, 1)
	go func() {
		user, err := v.lookup(token)
		done <- result{user: user, err: err}
	}()

	select {
	case <-ctx.Done():
		return User{}, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
	case res := <-done:
		return res.user, res.err
	}
}

func (v *SupabaseVerifier) lookup(token string) (User, error) {
	resp, err := v.client.WithToken(token).GetUser()
	if err != nil {
		if code := statusCode(err); code == http.StatusUnauthorized || code == http.StatusForbidden {
			return User{}, ErrInvalidToken
		}
		return User{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp == nil || resp.ID == uuid.Nil {
		return User{}, ErrInvalidToken
	}
	return User{ID: resp.ID.String(), Email: resp.Email}, nil
}

func statusCode(err error) int {
	m := statusPattern.FindStringSubmatch(err.Error())
	if m == nil {
		return 0
	}
	code, _ := strconv.Atoi(m[1])
	return code
}
