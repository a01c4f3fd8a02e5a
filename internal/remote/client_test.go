package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/example/home-scheduler/internal/persistence"
)

type recordedRequest struct {
	Method        string
	Path          string
	Authorization string
	Body          map[string]string
}

type fakeAPI struct {
	mu       sync.Mutex
	requests []recordedRequest
	status   map[string]int
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()

	api := &fakeAPI{status: map[string]int{}}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if r.Body != nil {
			data, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(data, &body)
		}

		api.mu.Lock()
		api.requests = append(api.requests, recordedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			Body:          body,
		})
		status, ok := api.status[r.URL.Path]
		api.mu.Unlock()

		if ok {
			w.WriteHeader(status)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/houses":
			_, _ = io.WriteString(w, `{"houses":[{"id":1,"name":"Home","owner":"ada@example.com"}]}`)
		case "/houses/1/devices":
			_, _ = io.WriteString(w, `{"devices":[{"id":"1.1","type":"light","availableCommands":["TURN ON","TURN OFF"]}]}`)
		case "/auth/login":
			_, _ = io.WriteString(w, `{"token":"issued-token"}`)
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return api, server
}

func (a *fakeAPI) recorded() []recordedRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]recordedRequest(nil), a.requests...)
}

func newTestClient(t *testing.T, baseURL string, tokens TokenSource) *Client {
	t.Helper()

	client, err := New(Config{BaseURL: baseURL, RatePerSec: 1000}, tokens, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return client
}

func staticToken(token string) TokenSource {
	return TokenFunc(func(context.Context) (string, error) { return token, nil })
}

func TestClient_SendCommand(t *testing.T) {
	t.Parallel()

	api, server := newFakeAPI(t)
	client := newTestClient(t, server.URL, staticToken("secret"))

	if err := client.Dispatch(context.Background(), 1, persistence.ScheduleCommand{PeripheralID: "1.1", PeripheralType: "light", Command: "TURN ON"}); err != nil {
		t.Fatalf("Dispatch returned error: %v", err)
	}

	requests := api.recorded()
	if len(requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(requests))
	}
	got := requests[0]
	if got.Method != http.MethodPost || got.Path != "/houses/1/devices/1.1/command" {
		t.Fatalf("unexpected request %s %s", got.Method, got.Path)
	}
	if got.Authorization != "Bearer secret" {
		t.Fatalf("unexpected authorization header %q", got.Authorization)
	}
	if got.Body["command"] != "TURN ON" {
		t.Fatalf("unexpected body %v", got.Body)
	}
}

func TestClient_SendCommandFailures(t *testing.T) {
	t.Parallel()

	t.Run("non 2xx status", func(t *testing.T) {
		t.Parallel()

		api, server := newFakeAPI(t)
		api.status["/houses/1/devices/2.1/command"] = http.StatusBadGateway
		client := newTestClient(t, server.URL, staticToken("secret"))

		err := client.SendCommand(context.Background(), 1, "2.1", "OPEN")
		var failure *DispatchFailure
		if !errors.As(err, &failure) {
			t.Fatalf("expected DispatchFailure, got %v", err)
		}
		if failure.Status != http.StatusBadGateway || failure.PeripheralID != "2.1" {
			t.Fatalf("unexpected failure %+v", failure)
		}
	})

	t.Run("transport error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()
		client := newTestClient(t, url, staticToken("secret"))

		err := client.SendCommand(context.Background(), 1, "2.1", "OPEN")
		var failure *DispatchFailure
		if !errors.As(err, &failure) || failure.Status != 0 || failure.Err == nil {
			t.Fatalf("expected transport DispatchFailure, got %v", err)
		}
	})

	t.Run("token unavailable", func(t *testing.T) {
		t.Parallel()

		api, server := newFakeAPI(t)
		expired := errors.New("session expired")
		client := newTestClient(t, server.URL, TokenFunc(func(context.Context) (string, error) { return "", expired }))

		err := client.SendCommand(context.Background(), 1, "2.1", "OPEN")
		if !errors.Is(err, expired) {
			t.Fatalf("expected wrapped token error, got %v", err)
		}
		if len(api.recorded()) != 0 {
			t.Fatal("expected no request without a token")
		}
	})
}

func TestClient_Listings(t *testing.T) {
	t.Parallel()

	_, server := newFakeAPI(t)
	client := newTestClient(t, server.URL, staticToken("secret"))
	ctx := context.Background()

	houses, err := client.ListHouses(ctx)
	if err != nil {
		t.Fatalf("ListHouses returned error: %v", err)
	}
	if len(houses) != 1 || houses[0].ID != 1 || houses[0].Name != "Home" {
		t.Fatalf("unexpected houses %+v", houses)
	}

	devices, err := client.ListDevices(ctx, 1)
	if err != nil {
		t.Fatalf("ListDevices returned error: %v", err)
	}
	if len(devices) != 1 || devices[0].Type != "light" || len(devices[0].AvailableCommands) != 2 {
		t.Fatalf("unexpected devices %+v", devices)
	}
}

func TestClient_ListError(t *testing.T) {
	t.Parallel()

	api, server := newFakeAPI(t)
	api.status["/houses"] = http.StatusUnauthorized
	client := newTestClient(t, server.URL, staticToken("secret"))

	_, err := client.ListHouses(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected APIError 401, got %v", err)
	}
}

func TestClient_Login(t *testing.T) {
	t.Parallel()

	api, server := newFakeAPI(t)
	client := newTestClient(t, server.URL, nil)

	token, err := client.Login(context.Background(), "ada@example.com", "pw")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if token != "issued-token" {
		t.Fatalf("unexpected token %q", token)
	}
	requests := api.recorded()
	if requests[0].Authorization != "" || requests[0].Body["email"] != "ada@example.com" {
		t.Fatalf("unexpected login request %+v", requests[0])
	}

	api.mu.Lock()
	api.status["/auth/login"] = http.StatusUnauthorized
	api.mu.Unlock()
	if _, err := client.Login(context.Background(), "ada@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestNew_InvalidBaseURL(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "not a url", "/relative"} {
		if _, err := New(Config{BaseURL: raw}, nil, nil); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}
