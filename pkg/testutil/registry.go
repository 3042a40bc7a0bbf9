package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// TagServer is an in-process registry speaking the Docker Hub tags API
// (/v2/repositories/<repo>/tags?page=N&page_size=M). Tags are served in the order given.
type TagServer struct {
	*httptest.Server

	mu       sync.Mutex
	repos    map[string][]string
	requests map[string]int
}

// NewTagServer starts a TagServer; it is closed when the test ends.
func NewTagServer(t testing.TB) *TagServer {
	t.Helper()
	s := &TagServer{repos: make(map[string][]string), requests: make(map[string]int)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serveTags))
	t.Cleanup(s.Close)
	return s
}

// SetTags replaces the tags of repo, newest first. Official images use the library/ prefix.
func (s *TagServer) SetTags(repo string, tags ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repos[repo] = tags
}

// Requests returns the number of page requests served for repo.
func (s *TagServer) Requests(repo string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[repo]
}

func (s *TagServer) serveTags(w http.ResponseWriter, r *http.Request) {
	repo, ok := strings.CutPrefix(r.URL.Path, "/v2/repositories/")
	if !ok || !strings.HasSuffix(repo, "/tags") {
		http.NotFound(w, r)
		return
	}
	repo = strings.TrimSuffix(repo, "/tags")

	s.mu.Lock()
	all, known := s.repos[repo]
	s.requests[repo]++
	s.mu.Unlock()
	if !known {
		http.NotFound(w, r)
		return
	}

	page := queryInt(r.URL.Query(), "page", 1)
	size := queryInt(r.URL.Query(), "page_size", 10)
	start := min((page-1)*size, len(all))
	end := min(start+size, len(all))

	resp := struct {
		Count   int                 `json:"count"`
		Next    *string             `json:"next"`
		Results []map[string]string `json:"results"`
	}{Count: len(all)}
	for _, tag := range all[start:end] {
		resp.Results = append(resp.Results, map[string]string{"name": tag})
	}
	if end < len(all) {
		q := r.URL.Query()
		q.Set("page", strconv.Itoa(page+1))
		next := s.URL + r.URL.Path + "?" + q.Encode()
		resp.Next = &next
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp) //nolint:errcheck // client disconnects are not test failures
}

func queryInt(q url.Values, key string, def int) int {
	n, err := strconv.Atoi(q.Get(key))
	if err != nil || n < 1 {
		return def
	}
	return n
}
