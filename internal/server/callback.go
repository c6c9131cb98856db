package server

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/desertthunder/encore/internal/shared"
	"golang.org/x/oauth2"
)

// CallbackResult contains the outcome of one login redirect.
type CallbackResult struct {
	Token *oauth2.Token
	err   error
}

func (c *CallbackResult) Error() error {
	return c.err
}

// CallbackHandler receives the backend's post-login redirect.
//
// The backend sends the browser to /callback?access=...&refresh=...&state=...
// after the provider authorization completes. The handler validates the state
// token, captures the pair, and answers with a parameter-free HTML page so
// the credentials never stay visible in the browser. Implements [Handler].
type CallbackHandler struct {
	state       string
	resultChan  chan CallbackResult
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// NewCallbackHandler creates a handler expecting the given state token.
// The state should be cryptographically random for CSRF protection.
func NewCallbackHandler(state string) *CallbackHandler {
	return &CallbackHandler{
		state:      state,
		resultChan: make(chan CallbackResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *CallbackHandler) Routes() []string {
	return []string{"/callback"}
}

// ServeHTTP handles the login redirect.
//
// Validates the state parameter, extracts the access/refresh tokens, and
// sends the result through the result channel.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Only handle the redirect once
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	if h.state != "" && r.URL.Query().Get("state") != h.state {
		h.Send(CallbackResult{err: shared.ErrInvalidState})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	access := r.URL.Query().Get("access")
	if access == "" {
		errParam := r.URL.Query().Get("error")
		err := fmt.Errorf("%w: redirect carried no access token (%s)", shared.ErrAuthFailed, errParam)
		h.Send(CallbackResult{err: err})
		http.Error(w, "Login failed", http.StatusBadRequest)
		return
	}
	refresh := r.URL.Query().Get("refresh")

	h.Send(CallbackResult{Token: &oauth2.Token{
		AccessToken:  access,
		RefreshToken: refresh,
	}})

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `
<!DOCTYPE html>
<html>
<head>
    <title>Signed In</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>&#10003; Signed In</h1>
        <p>You can close this window and return to the terminal.</p>
    </div>
</body>
</html>
`)
}

// Send sends the callback result through the channel (only once).
func (h *CallbackHandler) Send(result CallbackResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel for receiving login completion.
//
// Channel will receive exactly one result and then be closed.
func (h *CallbackHandler) Result() <-chan CallbackResult {
	return h.resultChan
}
