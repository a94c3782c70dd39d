package libcs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// Actions understood by the authentication endpoint.
const (
	ActionSignIn = "signin"
	ActionSignUp = "signup"
)

type (
	// A Client defines all interactions that can be performed on the authentication endpoint.
	Client interface {
		// SignIn checks the given credentials and returns the account's display name.
		SignIn(ctx context.Context, email, password string) (Account, error)
		// SignUp creates an account and returns it.
		SignUp(ctx context.Context, email, password, name string) (Account, error)
	}

	// An Account is the identity returned by the authentication endpoint.
	Account struct {
		Email string `json:"-"`
		Name  string `json:"name"`
	}

	envelope struct {
		Success bool    `json:"success"`
		Data    Account `json:"data"`
		Message string  `json:"message"`
	}

	client struct {
		http     *http.Client
		endpoint string
	}
)

// NewDefaultClient returns a new Client with default HTTP client.
func NewDefaultClient(endpoint string) (Client, error) {
	return NewClient(http.DefaultClient, endpoint)
}

// NewClient returns a new Client.
func NewClient(c *http.Client, endpoint string) (Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse endpoint")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("unsupported endpoint scheme %q", u.Scheme)
	}
	return &client{http: c, endpoint: u.String()}, nil
}

func (c *client) SignIn(ctx context.Context, email, password string) (Account, error) {
	form := url.Values{}
	form.Set("action", ActionSignIn)
	form.Set("email", email)
	form.Set("password", password)

	return c.do(ctx, email, form)
}

func (c *client) SignUp(ctx context.Context, email, password, name string) (Account, error) {
	form := url.Values{}
	form.Set("action", ActionSignUp)
	form.Set("email", email)
	form.Set("password", password)
	form.Set("name", name)

	account, err := c.do(ctx, email, form)
	if err == nil && account.Name == "" {
		account.Name = name
	}
	return account, err
}

func (c *client) do(ctx context.Context, email string, form url.Values) (Account, error) {
	//
	// Build request
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Account{}, errors.Wrap(err, "could not build request")
	}
	req.Close = true
	req.Header.Add("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Add("Accept", "application/json")

	//
	// Perform request
	res, err := c.http.Do(req)
	if err != nil {
		return Account{}, &NetworkError{Err: err}
	}
	defer res.Body.Close()

	//
	// Process response
	var payload envelope
	if err = json.NewDecoder(res.Body).Decode(&payload); err != nil {
		if res.StatusCode >= 400 {
			return Account{}, &NetworkError{Err: errors.Errorf("unexpected status %d", res.StatusCode)}
		}
		return Account{}, &NetworkError{Err: errors.Wrap(err, "could not parse response")}
	}

	if !payload.Success {
		return Account{}, &AuthError{StatusCode: res.StatusCode, Message: payload.Message}
	}

	payload.Data.Email = email
	return payload.Data, nil
}
