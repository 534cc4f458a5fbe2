package session

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/Jeffail/gabs/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesm/redmine-tracker/internal/api"
	"github.com/wesm/redmine-tracker/internal/db"
	"github.com/wesm/redmine-tracker/internal/models"
)

type memoryStore struct {
	mu     sync.Mutex
	creds  db.Credentials
	saves  int
	logins map[string]string
}

func (m *memoryStore) LoadCredentials() (db.Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creds, nil
}

func (m *memoryStore) SaveCredentials(creds db.Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !creds.Remember {
		creds = db.Credentials{}
	}
	m.creds = creds
	m.saves++
	return nil
}

func (m *memoryStore) UpdateLastLoginTime(url, login string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.logins == nil {
		m.logins = make(map[string]string)
	}
	m.logins[url] = login
	return nil
}

// newRedmine serves a current user for bob/secret, two projects and issues
// for project 1 across pages
func newRedmine(t *testing.T) *httptest.Server {
	t.Helper()
	basic := "Basic " + base64.StdEncoding.EncodeToString([]byte("bob:secret"))

	mux := http.NewServeMux()
	mux.HandleFunc("/users/current.json", func(w http.ResponseWriter, req *http.Request) {
		auth := req.Header.Get("Authorization")
		if auth != basic && auth != "Bearer tok-123" && req.Header.Get("X-Redmine-API-Key") != "abc123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		doc := gabs.New()
		_, _ = doc.Set(api.EncodeUser(models.User{ID: 3, Login: "bob"}).Data(), "user")
		_, _ = io.WriteString(w, doc.String())
	})
	mux.HandleFunc("/projects.json", func(w http.ResponseWriter, _ *http.Request) {
		list := api.EncodeList("projects", []*gabs.Container{
			api.EncodeProject(models.Project{ID: 1, Name: "Issue Tracker"}),
			api.EncodeProject(models.Project{ID: 2, Name: "Website"}),
			api.EncodeProject(models.Project{ID: 3, Name: "Tracker Plugins"}),
		})
		_, _ = io.WriteString(w, list.String())
	})
	mux.HandleFunc("/issues.json", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		offset, _ := strconv.Atoi(q.Get("offset"))
		limit, _ := strconv.Atoi(q.Get("limit"))
		var items []*gabs.Container
		switch q.Get("project_id") {
		case "1":
			// Five issues of project 1, the last one belongs to a subproject
			for id := offset + 1; id <= 5 && id <= offset+limit; id++ {
				project := models.Ref(1, "Issue Tracker")
				if id == 5 {
					project = models.Ref(4, "Subproject")
				}
				items = append(items, api.EncodeIssue(models.Issue{ID: id, Subject: fmt.Sprintf("Issue %d", id), Project: project}))
			}
		case "3":
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = io.WriteString(w, api.EncodeList("issues", items).String())
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newSession(t *testing.T, store Store) *Session {
	t.Helper()
	client := api.NewClient("", api.WithPageSize(2))
	t.Cleanup(func() { _ = client.Close() })
	return New(store, client, nil)
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestCanLogin(t *testing.T) {
	assert.True(t, CanLogin(db.Credentials{URL: "https://r", Login: "bob", Password: "secret"}))
	assert.True(t, CanLogin(db.Credentials{URL: "https://r", APIKey: "abc123"}))
	assert.True(t, CanLogin(db.Credentials{URL: "https://r", AccessToken: "tok-123"}))
	assert.False(t, CanLogin(db.Credentials{URL: "https://r", Login: "bob"}))
	assert.False(t, CanLogin(db.Credentials{URL: "https://r", Password: "secret"}))
	assert.False(t, CanLogin(db.Credentials{Login: "bob", Password: "secret"}))
}

func TestLoginRemembersCredentials(t *testing.T) {
	srv := newRedmine(t)
	store := &memoryStore{}
	s := newSession(t, store)

	creds := db.Credentials{URL: srv.URL, Login: "bob", Password: "secret", Remember: true}
	user, err := s.Login(testContext(t), creds)
	require.NoError(t, err)
	assert.Equal(t, "bob", user.Login)
	require.NotNil(t, s.User())
	assert.Equal(t, 3, s.User().ID)

	remembered, err := s.RememberedCredentials()
	require.NoError(t, err)
	assert.Equal(t, creds, remembered)
	assert.Equal(t, "bob", store.logins[srv.URL])
}

func TestLoginWithoutRememberClears(t *testing.T) {
	srv := newRedmine(t)
	store := &memoryStore{creds: db.Credentials{URL: "https://old", Login: "old", Password: "old", Remember: true}}
	s := newSession(t, store)

	_, err := s.Login(testContext(t), db.Credentials{URL: srv.URL, Login: "bob", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, db.Credentials{}, store.creds)
}

func TestLoginWithAPIKey(t *testing.T) {
	srv := newRedmine(t)
	s := newSession(t, &memoryStore{})

	user, err := s.Login(testContext(t), db.Credentials{URL: srv.URL, APIKey: "abc123"})
	require.NoError(t, err)
	assert.Equal(t, "bob", user.Login)
}

func TestLoginWithAccessToken(t *testing.T) {
	srv := newRedmine(t)
	store := &memoryStore{}
	s := newSession(t, store)

	creds := db.Credentials{URL: srv.URL, AccessToken: "tok-123", Remember: true}
	user, err := s.Login(testContext(t), creds)
	require.NoError(t, err)
	assert.Equal(t, "bob", user.Login)
	assert.Equal(t, creds, store.creds)

	_, err = s.Connect(testContext(t), db.Credentials{URL: srv.URL, AccessToken: "expired"})
	require.Error(t, err)
}

func TestLoginFailure(t *testing.T) {
	srv := newRedmine(t)
	store := &memoryStore{}
	s := newSession(t, store)

	_, err := s.Login(testContext(t), db.Credentials{URL: srv.URL, Login: "bob", Password: "wrong", Remember: true})
	require.Error(t, err)

	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, api.ErrNetwork, apiErr.Code)
	assert.Zero(t, store.saves)
	assert.Nil(t, s.User())
}

func TestLoginMissingFields(t *testing.T) {
	s := newSession(t, &memoryStore{})
	_, err := s.Login(testContext(t), db.Credentials{URL: "https://r", Login: "bob"})
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestProjectsFilter(t *testing.T) {
	srv := newRedmine(t)
	s := newSession(t, &memoryStore{})
	ctx := testContext(t)
	_, err := s.Login(ctx, db.Credentials{URL: srv.URL, Login: "bob", Password: "secret"})
	require.NoError(t, err)

	all, err := s.Projects(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	filtered, err := s.Projects(ctx, "TRACKER")
	require.NoError(t, err)
	require.Len(t, filtered, 2)
	assert.Equal(t, "Issue Tracker", filtered[0].Name)
	assert.Equal(t, "Tracker Plugins", filtered[1].Name)

	assert.Empty(t, FilterProjects(all, "nothing"))
}

func TestIssuesOfProject(t *testing.T) {
	srv := newRedmine(t)
	s := newSession(t, &memoryStore{})
	ctx := testContext(t)
	_, err := s.Login(ctx, db.Credentials{URL: srv.URL, Login: "bob", Password: "secret"})
	require.NoError(t, err)

	issues, err := s.Issues(ctx, 1)
	require.NoError(t, err)

	var ids []int
	for _, issue := range issues {
		ids = append(ids, issue.ID)
	}
	assert.Equal(t, []int{1, 2, 3, 4}, ids)
}

func TestIssuesByProject(t *testing.T) {
	srv := newRedmine(t)
	s := newSession(t, &memoryStore{})
	s.SetWorkers(2)
	ctx := testContext(t)
	_, err := s.Login(ctx, db.Credentials{URL: srv.URL, Login: "bob", Password: "secret"})
	require.NoError(t, err)

	projects, err := s.Projects(ctx, "")
	require.NoError(t, err)

	results, err := s.IssuesByProject(ctx, projects)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 projects")

	require.Len(t, results, 2)
	assert.Equal(t, 1, results[0].Project.ID)
	assert.Len(t, results[0].Issues, 4)
	assert.Equal(t, 2, results[1].Project.ID)
	assert.Empty(t, results[1].Issues)
}

func TestAwaitHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := await(ctx, func(api.Callback[int]) {})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoginWithDatabaseStore(t *testing.T) {
	srv := newRedmine(t)
	database, err := db.New(filepath.Join(t.TempDir(), "settings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, database.Initialize())

	s := newSession(t, database)
	_, err = s.Login(testContext(t), db.Credentials{URL: srv.URL, Login: "bob", Password: "secret", Remember: true})
	require.NoError(t, err)

	creds, err := database.LoadCredentials()
	require.NoError(t, err)
	assert.Equal(t, srv.URL, creds.URL)

	when, login, err := database.GetLastLoginTime(srv.URL)
	require.NoError(t, err)
	assert.False(t, when.IsZero())
	assert.Equal(t, "bob", login)
}

func TestConnectLeavesStoreAlone(t *testing.T) {
	srv := newRedmine(t)
	remembered := db.Credentials{URL: "https://old", Login: "old", Password: "old", Remember: true}
	store := &memoryStore{creds: remembered}
	s := newSession(t, store)

	user, err := s.Connect(testContext(t), db.Credentials{URL: srv.URL, Login: "bob", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "bob", user.Login)
	assert.Equal(t, remembered, store.creds)
	assert.Zero(t, store.saves)
	assert.Empty(t, store.logins)
}
