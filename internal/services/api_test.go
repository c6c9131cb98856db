package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/encore/internal/services"
	tu "github.com/desertthunder/encore/internal/testing"
)

func TestDecimal(t *testing.T) {
	t.Run("unmarshals string tokens", func(t *testing.T) {
		var d services.Decimal
		if err := json.Unmarshal([]byte(`"4.50"`), &d); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if d != "4.50" {
			t.Errorf("expected 4.50, got %s", d)
		}
	})

	t.Run("unmarshals number tokens", func(t *testing.T) {
		var d services.Decimal
		if err := json.Unmarshal([]byte(`3.5`), &d); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		v, err := d.Float()
		if err != nil {
			t.Fatalf("expected parseable value, got %v", err)
		}
		if v != 3.5 {
			t.Errorf("expected 3.5, got %v", v)
		}
	})

	t.Run("treats null as empty", func(t *testing.T) {
		var d services.Decimal
		if err := json.Unmarshal([]byte(`null`), &d); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if d != "" {
			t.Errorf("expected empty, got %s", d)
		}
	})

	t.Run("rejects non-numeric strings on Float", func(t *testing.T) {
		d := services.Decimal("not-a-number")
		if _, err := d.Float(); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestParseItemType(t *testing.T) {
	t.Run("accepts the three canonical types", func(t *testing.T) {
		for _, s := range []string{"track", "Album", " ARTIST "} {
			if _, err := services.ParseItemType(s); err != nil {
				t.Errorf("expected %q to parse, got %v", s, err)
			}
		}
	})

	t.Run("rejects unknown types", func(t *testing.T) {
		if _, err := services.ParseItemType("playlist"); err == nil {
			t.Error("expected error for unknown type")
		}
	})
}

func TestAPIService(t *testing.T) {
	ctx := context.Background()

	t.Run("Profile", func(t *testing.T) {
		t.Run("sends bearer token and decodes user", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/auth/user/" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
					t.Errorf("unexpected auth header %q", got)
				}
				json.NewEncoder(w).Encode(services.UserProfile{ID: 7, Username: "maria"})
			}))
			defer srv.Close()

			api := services.NewAPIService(srv.URL, srv.Client())
			profile, err := api.Profile(ctx, "tok-1")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if profile.ID != 7 || profile.Username != "maria" {
				t.Errorf("unexpected profile %+v", profile)
			}
		})

		t.Run("returns StatusError on non-2xx", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			}))
			defer srv.Close()

			api := services.NewAPIService(srv.URL, srv.Client())
			_, err := api.Profile(ctx, "expired")

			var statusErr *services.StatusError
			if !errors.As(err, &statusErr) {
				t.Fatalf("expected StatusError, got %v", err)
			}
			if statusErr.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", statusErr.Code)
			}
		})

		t.Run("wraps transport failures", func(t *testing.T) {
			client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))}
			api := services.NewAPIService("http://localhost:8000", client)

			_, err := api.Profile(ctx, "tok")
			if err == nil {
				t.Fatal("expected error")
			}

			var statusErr *services.StatusError
			if errors.As(err, &statusErr) {
				t.Error("transport failure must not be a StatusError")
			}
		})

		t.Run("fails on an unreadable response body", func(t *testing.T) {
			resp := &http.Response{
				StatusCode: http.StatusOK,
				Header:     http.Header{},
				Body:       &tu.FCloser{},
			}
			client := &http.Client{Transport: tu.NewMockRoundTripper(resp, nil)}
			api := services.NewAPIService("http://localhost:8000", client)

			if _, err := api.Profile(ctx, "tok"); err == nil {
				t.Fatal("expected decode error")
			}
		})
	})

	t.Run("RecentlyPlayed unwraps the items envelope", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/user/recently-played/" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			w.Write([]byte(`{"items":[{"track_id":"t1","track_name":"Song","artists":["A"],"duration_ms":1000}]}`))
		}))
		defer srv.Close()

		api := services.NewAPIService(srv.URL, srv.Client())
		items, err := api.RecentlyPlayed(ctx, "tok")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(items) != 1 || items[0].TrackID != "t1" {
			t.Errorf("unexpected items %+v", items)
		}
	})

	t.Run("SearchMusic encodes query and type", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("q") != "blue train" {
				t.Errorf("unexpected query %q", q.Get("q"))
			}
			if q.Get("type") != "album" {
				t.Errorf("unexpected type %q", q.Get("type"))
			}
			w.Write([]byte(`{"tracks":[],"albums":[],"artists":[]}`))
		}))
		defer srv.Close()

		api := services.NewAPIService(srv.URL, srv.Client())
		if _, err := api.SearchMusic(ctx, "tok", "blue train", services.ItemAlbum); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("ItemRating", func(t *testing.T) {
		t.Run("passes item identity as query params", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				q := r.URL.Query()
				if q.Get("spotify_id") != "abc" || q.Get("item_type") != "track" {
					t.Errorf("unexpected query %v", q)
				}
				w.Write([]byte(`{"exists":true,"rating":{"rating":"4.00"}}`))
			}))
			defer srv.Close()

			api := services.NewAPIService(srv.URL, srv.Client())
			lookup, err := api.ItemRating(ctx, "tok", "abc", services.ItemTrack)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !lookup.Exists || lookup.Rating == nil {
				t.Errorf("unexpected lookup %+v", lookup)
			}
		})

		t.Run("tags failures with the rating resource", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			}))
			defer srv.Close()

			api := services.NewAPIService(srv.URL, srv.Client())
			_, err := api.ItemRating(ctx, "tok", "abc", services.ItemTrack)

			var statusErr *services.StatusError
			if !errors.As(err, &statusErr) {
				t.Fatalf("expected StatusError, got %v", err)
			}
			if statusErr.Resource != "rating" {
				t.Errorf("expected rating resource, got %q", statusErr.Resource)
			}
			if want := "rating request failed with status 500"; statusErr.Error() != want {
				t.Errorf("expected %q, got %q", want, statusErr.Error())
			}
		})
	})

	t.Run("SaveRating posts the request body", func(t *testing.T) {
		var received services.SaveRatingRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/ratings/" {
				t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
			}
			json.NewDecoder(r.Body).Decode(&received)
			w.WriteHeader(http.StatusCreated)
		}))
		defer srv.Close()

		api := services.NewAPIService(srv.URL, srv.Client())
		req := services.SaveRatingRequest{SpotifyID: "abc", ItemType: services.ItemTrack, ItemName: "Song", Rating: "3.50"}
		if err := api.SaveRating(ctx, "tok", req); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if received != req {
			t.Errorf("expected %+v sent, got %+v", req, received)
		}
	})

	t.Run("LoginURL carries state and redirect", func(t *testing.T) {
		api := services.NewAPIService("http://localhost:8000", nil)
		u := api.LoginURL("st-1", "http://127.0.0.1:8765/callback")

		if !strings.HasPrefix(u, "http://localhost:8000/auth/spotify/login/?") {
			t.Errorf("unexpected login URL %s", u)
		}
		if !strings.Contains(u, "state=st-1") {
			t.Errorf("expected state param, got %s", u)
		}
		if !strings.Contains(u, "redirect_uri=") {
			t.Errorf("expected redirect param, got %s", u)
		}
	})
}
