package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/encore/internal/server"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const loginTimeout = 2 * time.Minute

// Login runs the browser-based login flow.
//
// Starts a local HTTP server, opens the backend's login page in the browser,
// and captures the token pair from the redirect.
func (r *Runner) Login(ctx context.Context, cmd *cli.Command) error {
	token, err := r.captureLogin(ctx)
	if err != nil {
		return err
	}

	if err := r.session.Login(ctx, token.AccessToken, token.RefreshToken); err != nil {
		return fmt.Errorf("%w: token rejected by backend", shared.ErrAuthFailed)
	}

	user := r.session.User()
	r.writePlainln("✓ Signed in as %s", user.Username)
	return nil
}

// Logout clears the session and the stored token pair.
func (r *Runner) Logout(ctx context.Context, cmd *cli.Command) error {
	r.session.Logout()
	return r.writePlain("✓ Signed out\n")
}

// Whoami prints the authenticated user's profile.
func (r *Runner) Whoami(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	user := r.session.User()
	if cmd.Bool("json") {
		return r.writeJSON(user, true)
	}

	r.writePlain("Username: %s\n", user.Username)
	if user.DisplayName != "" {
		r.writePlain("Name: %s\n", user.DisplayName)
	}
	if user.Email != "" {
		r.writePlain("Email: %s\n", user.Email)
	}
	if user.SpotifyID != nil {
		r.writePlain("Spotify: %s\n", *user.SpotifyID)
	}
	return nil
}

// captureLogin runs the local callback server and returns the captured pair.
func (r *Runner) captureLogin(ctx context.Context) (*oauth2.Token, error) {
	state := shared.GenerateID()
	callbackHandler := server.NewCallbackHandler(state)

	router := server.NewBasicRouter()
	router.Use(server.Logging(r.logger))
	router.Handler(callbackHandler)

	serverAddr := fmt.Sprintf("%s:%d", r.config.Callback.Host, r.config.Callback.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting login callback server at %v", serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	loginURL := r.api.LoginURL(state, r.config.Callback.CallbackURL())

	r.writePlain("→ Opening browser to sign in...\n")
	if err := shared.OpenBrowser(loginURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", loginURL)
	}

	r.writePlain("→ Waiting for sign-in (2 minute timeout)...\n")

	timeout := time.NewTimer(loginTimeout)
	defer timeout.Stop()

	var result server.CallbackResult

	select {
	case result = <-callbackHandler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: sign-in timed out after 2 minutes", shared.ErrLoginTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("sign-in failed: %w", result.Error())
	}

	if result.Token == nil {
		return nil, fmt.Errorf("no token received")
	}

	return result.Token, nil
}
