package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Subscription-Token"); got != "key-123" {
			t.Errorf("token header = %q", got)
		}
		if got := r.URL.Query().Get("q"); got != "golang schedulers" {
			t.Errorf("query = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"web": map[string]any{
				"results": []map[string]string{
					{"title": "First", "url": "https://a.example", "description": "about a"},
					{"title": "Second", "url": "https://b.example", "description": "about b"},
				},
			},
		})
	}))
	defer srv.Close()

	c := NewClient("key-123")
	c.baseURL = srv.URL

	results, err := c.Search(context.Background(), "golang schedulers", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results", len(results))
	}
	if results[0].Title != "First" || results[1].URL != "https://b.example" {
		t.Errorf("unexpected results: %+v", results)
	}
}

func TestSearchCountCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"web": map[string]any{
				"results": []map[string]string{
					{"title": "a"}, {"title": "b"}, {"title": "c"},
				},
			},
		})
	}))
	defer srv.Close()

	c := NewClient("k")
	c.baseURL = srv.URL

	results, err := c.Search(context.Background(), "x", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("got %d results, want 2", len(results))
	}
}

func TestSearchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient("k")
	c.baseURL = srv.URL

	if _, err := c.Search(context.Background(), "x", 1); err == nil {
		t.Fatal("expected error on HTTP 429")
	}
}

func TestFormatResults(t *testing.T) {
	out := FormatResults([]Result{
		{Title: "First", URL: "https://a.example", Snippet: "snippet a"},
		{Title: "Second", URL: "https://b.example"},
	})
	if !strings.Contains(out, "1. First") || !strings.Contains(out, "2. Second") {
		t.Errorf("missing numbered entries:\n%s", out)
	}
	if !strings.Contains(out, "snippet a") {
		t.Errorf("missing snippet:\n%s", out)
	}
}

func TestFormatResultsEmpty(t *testing.T) {
	if got := FormatResults(nil); got != "No results found." {
		t.Errorf("got %q", got)
	}
}
