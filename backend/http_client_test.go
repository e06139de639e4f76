package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPClientTopology(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/topology" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]any{
				"datasets": map[string]any{
					"fast": map[string]any{"taint_count": 3},
				},
			},
		})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, 0, time.Second, nil)
	topo, err := c.Topology(context.Background())
	if err != nil {
		t.Fatalf("Topology: %v", err)
	}
	if _, ok := topo.Datasets["fast"]; !ok {
		t.Fatalf("expected dataset 'fast', got %+v", topo.Datasets)
	}
}

func TestHTTPClientQueryError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"error": "bad query"})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, 0, time.Second, nil)
	_, err := c.Query(context.Background(), "{string}", "", "fast")
	if err == nil {
		t.Fatal("expected error")
	}
	var be *Error
	if !asBackendError(err, &be) {
		t.Fatalf("expected *backend.Error, got %T: %v", err, err)
	}
	if be.Message != "bad query" {
		t.Fatalf("unexpected message: %s", be.Message)
	}
}

func TestHTTPClientPop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Iterator string `json:"iterator"`
			Count    int    `json:"count"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Iterator != "it1" || req.Count != 50 {
			t.Fatalf("unexpected request: %+v", req)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"files":          []string{"/a", "/b"},
			"iterator_empty": true,
		})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, 0, time.Second, nil)
	res, err := c.Pop(context.Background(), "it1", 50)
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	if len(res.Files) != 2 || !res.IteratorEmpty {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func asBackendError(err error, target **Error) bool {
	be, ok := err.(*Error)
	if !ok {
		return false
	}
	*target = be
	return true
}
