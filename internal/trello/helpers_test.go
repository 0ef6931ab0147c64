/*
 * Copyright 2018-present HiveMQ and the HiveMQ Community
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package trello

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hivemq/trello-mcp/internal/config"
)

const (
	testAPIKey   = "test-api-key"
	testAPIToken = "test-api-token"
)

// fakeTrello is an in-memory stand-in for the three board endpoints.
type fakeTrello struct {
	mu       sync.Mutex
	boards   map[string]Board
	order    []string
	requests int
}

func newFakeTrello(t *testing.T) (*fakeTrello, *httptest.Server) {
	t.Helper()

	f := &fakeTrello{boards: make(map[string]Board)}
	server := httptest.NewServer(f)
	t.Cleanup(server.Close)

	return f, server
}

func (f *fakeTrello) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++

	q := r.URL.Query()
	if q.Get("key") != testAPIKey || q.Get("token") != testAPIToken {
		http.Error(w, "invalid key", http.StatusUnauthorized)
		return
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/1/members/me/boards":
		out := make([]Board, 0, len(f.order))
		for _, id := range f.order {
			b := f.boards[id]
			out = append(out, Board{ID: b.ID, Name: b.Name})
		}
		writeJSON(w, http.StatusOK, out)

	case r.Method == http.MethodPost && r.URL.Path == "/1/boards":
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		name := r.PostForm.Get("name")
		if name == "" {
			writeJSON(w, http.StatusBadRequest, APIError{Message: "invalid value for name", Error: "ERROR"})
			return
		}
		b := Board{ID: newBoardID(), Name: name, URL: "https://trello.com/b/" + name}
		f.boards[b.ID] = b
		f.order = append(f.order, b.ID)
		writeJSON(w, http.StatusOK, b)

	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/1/boards/"):
		id := strings.TrimPrefix(r.URL.Path, "/1/boards/")
		if _, ok := f.boards[id]; !ok {
			http.Error(w, "The requested resource was not found.", http.StatusNotFound)
			return
		}
		delete(f.boards, id)
		for i, existing := range f.order {
			if existing == id {
				f.order = append(f.order[:i], f.order[i+1:]...)
				break
			}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"_value": nil})

	default:
		http.NotFound(w, r)
	}
}

func (f *fakeTrello) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// newBoardID returns a 24 hex character id, the shape Trello uses.
func newBoardID() string {
	buf := make([]byte, 12)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

// newTestClient returns a client pointed at server with base path /1.
func newTestClient(t *testing.T, server *httptest.Server, opts ...Option) *Client {
	t.Helper()

	cfg, err := config.New(testAPIKey, testAPIToken, config.WithBaseURL(server.URL+"/1"))
	require.NoError(t, err)

	client, err := NewClient(cfg, opts...)
	require.NoError(t, err)
	return client
}
