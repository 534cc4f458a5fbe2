package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/wesm/redmine-tracker/internal/api"
	"github.com/wesm/redmine-tracker/internal/db"
	"github.com/wesm/redmine-tracker/internal/models"
	"github.com/wesm/redmine-tracker/internal/redmine"
)

// ErrMissingCredentials is returned by Connect and Login when the credentials are incomplete
var ErrMissingCredentials = errors.New("url and an api key, access token or login and password are required")

// Store persists the remembered connection
type Store interface {
	LoadCredentials() (db.Credentials, error)
	SaveCredentials(creds db.Credentials) error
	UpdateLastLoginTime(url, login string, loginTime time.Time) error
}

// Session drives a Redmine client the way the tracker UI does: log in, list
// projects, list the issues of a project
type Session struct {
	store  Store
	client *api.Client
	logger *slog.Logger
	// Number of projects loaded in parallel by IssuesByProject
	workers int

	mu   sync.Mutex
	user *models.User
}

// New creates a new session
func New(store Store, client *api.Client, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		store:   store,
		client:  client,
		logger:  logger.With("component", "session"),
		workers: 5,
	}
}

// SetWorkers sets the number of parallel workers
func (s *Session) SetWorkers(workers int) {
	if workers < 1 {
		workers = 1
	}
	if workers > 10 {
		workers = 10 // Cap at 10 to keep the server responsive
	}
	s.workers = workers
}

// Client returns the underlying client
func (s *Session) Client() *api.Client {
	return s.client
}

// User returns the logged in user, or nil before a successful login
func (s *Session) User() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// CanLogin reports whether creds are complete enough to attempt a login. An
// API key or an access token replaces login and password.
func CanLogin(creds db.Credentials) bool {
	if creds.URL == "" {
		return false
	}
	if creds.APIKey != "" || creds.AccessToken != "" {
		return true
	}
	return creds.Login != "" && creds.Password != ""
}

// RememberedCredentials returns the credentials saved by the last login
func (s *Session) RememberedCredentials() (db.Credentials, error) {
	creds, err := s.store.LoadCredentials()
	if err != nil {
		return creds, fmt.Errorf("failed to load credentials: %w", err)
	}
	return creds, nil
}

// Connect authenticates against creds.URL by fetching the current user,
// without touching the remembered credentials
func (s *Session) Connect(ctx context.Context, creds db.Credentials) (models.User, error) {
	if !CanLogin(creds) {
		return models.User{}, ErrMissingCredentials
	}

	s.client.SetURL(creds.URL)
	Authenticate(s.client, creds)

	user, err := await(ctx, s.client.RetrieveCurrentUser)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to log in to %s: %w", creds.URL, err)
	}

	s.mu.Lock()
	s.user = &user
	s.mu.Unlock()

	s.logger.Debug("connected", "url", creds.URL, "user", user.Login)
	return user, nil
}

// Authenticate installs the authenticator matching creds on client. An API key
// wins over an access token, which wins over login and password.
func Authenticate(client *api.Client, creds db.Credentials) {
	switch {
	case creds.APIKey != "":
		client.SetAuthenticatorKey(creds.APIKey)
	case creds.AccessToken != "":
		client.SetAuthenticator(redmine.NewStaticTokenAuthenticator(creds.AccessToken))
	default:
		client.SetAuthenticatorPassword(creds.Login, creds.Password)
	}
}

// Login connects and then remembers the credentials, or forgets them if
// creds.Remember is not set
func (s *Session) Login(ctx context.Context, creds db.Credentials) (models.User, error) {
	user, err := s.Connect(ctx, creds)
	if err != nil {
		return user, err
	}

	if err := s.store.SaveCredentials(creds); err != nil {
		return user, fmt.Errorf("failed to save credentials: %w", err)
	}
	if err := s.store.UpdateLastLoginTime(creds.URL, user.Login, time.Now()); err != nil {
		return user, fmt.Errorf("failed to update last login time: %w", err)
	}

	s.logger.Info("logged in", "url", creds.URL, "user", user.Login, "remember", creds.Remember)
	return user, nil
}

// Projects returns the visible projects whose name contains filter
func (s *Session) Projects(ctx context.Context, filter string) ([]models.Project, error) {
	params := fmt.Sprintf("limit=%d", s.client.PageSize())
	projects, err := await(ctx, func(cb api.Callback[[]models.Project]) {
		s.client.RetrieveProjects(cb, params)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve projects: %w", err)
	}
	return FilterProjects(projects, filter), nil
}

// FilterProjects keeps the projects whose name contains text, ignoring case.
// An empty text keeps all projects.
func FilterProjects(projects []models.Project, text string) []models.Project {
	if text == "" {
		return projects
	}
	needle := strings.ToLower(text)
	var out []models.Project
	for _, p := range projects {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			out = append(out, p)
		}
	}
	return out
}

// Issues returns all issues of a project, following every page. Issues of
// subprojects are left out.
func (s *Session) Issues(ctx context.Context, projectID int) ([]models.Issue, error) {
	opts := api.Options{
		Filter:      &api.IssueFilter{ProjectID: projectID},
		GetAllItems: true,
	}
	issues, err := await(ctx, func(cb api.Callback[[]models.Issue]) {
		s.client.RetrieveIssues(cb, opts)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve issues of project %d: %w", projectID, err)
	}

	var out []models.Issue
	for _, issue := range issues {
		if issue.Project != nil && issue.Project.ID != projectID {
			continue
		}
		out = append(out, issue)
	}
	return out, nil
}

// LogTime creates a time entry and returns its id
func (s *Session) LogTime(ctx context.Context, te models.TimeEntry) (int, error) {
	id, err := awaitSend(ctx, func(cb api.SuccessCallback) {
		s.client.SendTimeEntry(te, cb, models.NoID, "")
	})
	if err != nil {
		return 0, fmt.Errorf("failed to log time: %w", err)
	}
	return id, nil
}
