package jellyseerr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSearch(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/search" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("X-Api-Key") != "seerr-key" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if r.URL.Query().Get("query") != "dune" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"results":[{"id":438631,"mediaType":"movie","title":"Dune","releaseDate":"2021-09-15"}]}`))
	}))
	defer server.Close()

	client, err := NewClient(nil, server.URL, "seerr-key", 0)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	results, err := client.Search(context.Background(), "dune")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].DisplayTitle() != "Dune" || results[0].Year() != "2021" {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestCreateRequest(t *testing.T) {
	t.Parallel()

	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/request" || r.Method != http.MethodPost {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client, _ := NewClient(nil, server.URL, "key", 0)
	if err := client.CreateRequest(context.Background(), "tv", 1399, 7); err != nil {
		t.Fatalf("create request: %v", err)
	}
	if payload["seasons"] != "all" {
		t.Fatalf("tv request must cover all seasons, payload %v", payload)
	}
	if payload["mediaId"] != float64(1399) || payload["userId"] != float64(7) {
		t.Fatalf("unexpected payload %v", payload)
	}
}

func TestCreateRequestConflict(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer server.Close()

	client, _ := NewClient(nil, server.URL, "key", 0)
	err := client.CreateRequest(context.Background(), "movie", 438631, 7)
	if !errors.Is(err, ErrAlreadyRequested) {
		t.Fatalf("expected ErrAlreadyRequested, got %v", err)
	}
}

func TestImportJellyfinUsers(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/user/import-from-jellyfin" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var payload struct {
			IDs []string `json:"jellyfinUserIds"`
		}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if len(payload.IDs) != 1 || payload.IDs[0] != "fin-1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`[{"id":42,"jellyfinUserId":"fin-1","jellyfinUsername":"alice"}]`))
	}))
	defer server.Close()

	client, _ := NewClient(nil, server.URL, "key", 0)
	created, err := client.ImportJellyfinUsers(context.Background(), []string{"fin-1"})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(created) != 1 || created[0].ID != 42 || created[0].DisplayName() != "alice" {
		t.Fatalf("unexpected users: %+v", created)
	}
}

func TestListUsersBoundsPageSize(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("take") != "1000" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"results":[{"id":1,"username":"admin"}]}`))
	}))
	defer server.Close()

	client, _ := NewClient(nil, server.URL, "key", 0)
	users, err := client.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("unexpected users: %+v", users)
	}
}

func TestRemoteErrorCarriesUpstreamMessage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"Something exploded"}`))
	}))
	defer server.Close()

	client, _ := NewClient(nil, server.URL, "key", 0)
	_, err := client.Search(context.Background(), "dune")

	var remoteErr *RemoteError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if remoteErr.Status != http.StatusInternalServerError {
		t.Fatalf("unexpected status: %d", remoteErr.Status)
	}
	if remoteErr.Err == nil || remoteErr.Err.Error() != "Something exploded" {
		t.Fatalf("expected upstream message, got %v", remoteErr.Err)
	}
}

func TestStatusLabel(t *testing.T) {
	if StatusLabel(StatusAvailable) == StatusLabel(StatusPending) {
		t.Fatal("labels must differ per status")
	}
	if StatusLabel(99) != "❓ Unknown" {
		t.Fatalf("unexpected fallback label: %s", StatusLabel(99))
	}
}
