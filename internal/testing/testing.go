// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/desertthunder/encore/internal/services"
)

// MockBackend is a programmable test double for the rating backend API.
// Each function field defaults to a benign zero response when unset.
type MockBackend struct {
	ProfileFunc        func(ctx context.Context, token string) (*services.UserProfile, error)
	RecentlyPlayedFunc func(ctx context.Context, token string) ([]services.RecentlyPlayedItem, error)
	RatingFunc         func(ctx context.Context, token, itemID string, itemType services.ItemType) (*services.RatingLookup, error)
	ReviewFunc         func(ctx context.Context, token, itemID string, itemType services.ItemType) (*services.ReviewLookup, error)
	SaveRatingFunc     func(ctx context.Context, token string, req services.SaveRatingRequest) error
	SaveReviewFunc     func(ctx context.Context, token string, req services.SaveReviewRequest) error
}

func (m *MockBackend) Profile(ctx context.Context, token string) (*services.UserProfile, error) {
	if m.ProfileFunc != nil {
		return m.ProfileFunc(ctx, token)
	}
	return &services.UserProfile{ID: 1, Username: "mock"}, nil
}

func (m *MockBackend) RecentlyPlayed(ctx context.Context, token string) ([]services.RecentlyPlayedItem, error) {
	if m.RecentlyPlayedFunc != nil {
		return m.RecentlyPlayedFunc(ctx, token)
	}
	return []services.RecentlyPlayedItem{}, nil
}

func (m *MockBackend) ItemRating(ctx context.Context, token, itemID string, itemType services.ItemType) (*services.RatingLookup, error) {
	if m.RatingFunc != nil {
		return m.RatingFunc(ctx, token, itemID, itemType)
	}
	return &services.RatingLookup{}, nil
}

func (m *MockBackend) ItemReview(ctx context.Context, token, itemID string, itemType services.ItemType) (*services.ReviewLookup, error) {
	if m.ReviewFunc != nil {
		return m.ReviewFunc(ctx, token, itemID, itemType)
	}
	return &services.ReviewLookup{}, nil
}

func (m *MockBackend) SaveRating(ctx context.Context, token string, req services.SaveRatingRequest) error {
	if m.SaveRatingFunc != nil {
		return m.SaveRatingFunc(ctx, token, req)
	}
	return nil
}

func (m *MockBackend) SaveReview(ctx context.Context, token string, req services.SaveReviewRequest) error {
	if m.SaveReviewFunc != nil {
		return m.SaveReviewFunc(ctx, token, req)
	}
	return nil
}

// StaticTokens satisfies token source interfaces with fixed values.
type StaticTokens struct {
	Authenticated bool
	Access        string
}

func (s *StaticTokens) IsAuthenticated() bool { return s.Authenticated }
func (s *StaticTokens) AccessToken() string   { return s.Access }

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
