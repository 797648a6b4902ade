package storage

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// ErrNoRefreshToken means Google skipped the refresh token, which happens when
// the app was already authorized for the account.
var ErrNoRefreshToken = errors.New("no refresh token returned; revoke the app at https://myaccount.google.com/permissions and retry")

// ConsentFlow obtains a Drive refresh token through the offline OAuth consent
// screen, receiving the code on a loopback callback.
type ConsentFlow struct {
	ClientID     string
	ClientSecret string
	// Endpoint overrides google.Endpoint.
	Endpoint oauth2.Endpoint
	// Timeout bounds the wait for the browser; zero means 3 minutes.
	Timeout time.Duration
	// Prompt shows the authorization URL to the user.
	Prompt func(authURL, redirectURL string)
}

// RefreshToken runs the flow and returns the refresh token.
func (f ConsentFlow) RefreshToken(ctx context.Context) (string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("listen for callback: %w", err)
	}
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port
	redirectURL := fmt.Sprintf("http://127.0.0.1:%d/callback", port)

	conf := OAuthConfig(f.ClientID, f.ClientSecret, redirectURL)
	if f.Endpoint.TokenURL != "" {
		conf.Endpoint = f.Endpoint
	}

	state, err := randomState()
	if err != nil {
		return "", err
	}
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.Handle("/callback", callbackHandler(state, codeCh, errCh))
	srv := &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		_ = srv.Serve(ln)
	}()
	defer srv.Close()

	authURL := conf.AuthCodeURL(
		state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
	if f.Prompt != nil {
		f.Prompt(authURL, redirectURL)
	}

	timeout := f.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return "", err
	case <-time.After(timeout):
		return "", fmt.Errorf("timed out after %s waiting for consent", timeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}

	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("exchange code: %w", err)
	}
	if strings.TrimSpace(tok.RefreshToken) == "" {
		return "", ErrNoRefreshToken
	}
	return tok.RefreshToken, nil
}

// callbackHandler reports the first code or error; later callbacks are
// answered but ignored.
func callbackHandler(state string, codeCh chan<- string, errCh chan<- error) http.Handler {
	fail := func(w http.ResponseWriter, err error) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		select {
		case errCh <- err:
		default:
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			fail(w, errors.New("invalid state"))
			return
		}
		if e := q.Get("error"); e != "" {
			fail(w, fmt.Errorf("auth error: %s", e))
			return
		}
		code := q.Get("code")
		if code == "" {
			fail(w, errors.New("missing code"))
			return
		}

		fmt.Fprintln(w, "OK. You can close this window and return to the terminal.")
		select {
		case codeCh <- code:
		default:
		}
	})
}

func randomState() (string, error) {
	b := make([]byte, 18)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
