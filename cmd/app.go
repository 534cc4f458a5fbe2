package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wesm/redmine-tracker/config"
	"github.com/wesm/redmine-tracker/internal/api"
	"github.com/wesm/redmine-tracker/internal/db"
	"github.com/wesm/redmine-tracker/internal/models"
	"github.com/wesm/redmine-tracker/internal/redmine"
	"github.com/wesm/redmine-tracker/internal/session"
)

// app bundles what every command needs
type app struct {
	cfg      *config.Config
	database *db.DB
	client   *api.Client
	session  *session.Session
}

func newApp() (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	database, err := db.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.Initialize(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	logger := slog.Default()
	client := api.NewClient("",
		api.WithLogger(logger),
		api.WithPageSize(cfg.PageSize),
		api.WithTransportOptions(redmine.WithUserAgent(cfg.UserAgent)),
	)
	client.SetCheckSSL(cfg.CheckSSL)

	return &app{
		cfg:      cfg,
		database: database,
		client:   client,
		session:  session.New(database, client, logger),
	}, nil
}

func (a *app) Close() {
	_ = a.client.Close()
	_ = a.database.Close()
}

// credentials prefers the configuration and falls back to the remembered login
func (a *app) credentials() (db.Credentials, error) {
	creds := db.Credentials{
		URL:         a.cfg.URL,
		Login:       a.cfg.Login,
		Password:    a.cfg.Password,
		APIKey:      a.cfg.APIKey,
		AccessToken: a.cfg.AccessToken,
		Remember:    remember,
	}
	if session.CanLogin(creds) {
		return creds, nil
	}

	stored, err := a.session.RememberedCredentials()
	if err != nil {
		return creds, err
	}
	if session.CanLogin(stored) {
		return stored, nil
	}
	return creds, fmt.Errorf("%w: set them in %s or the environment", session.ErrMissingCredentials, configPath)
}

// login authenticates; only the login command persists the credentials
func (a *app) login(ctx context.Context, persist bool) (models.User, error) {
	creds, err := a.credentials()
	if err != nil {
		return models.User{}, err
	}
	if persist {
		return a.session.Login(ctx, creds)
	}
	return a.session.Connect(ctx, creds)
}

// withApp runs fn with an authenticated session
func withApp(ctx context.Context, persist bool, fn func(context.Context, *app) error) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.login(ctx, persist); err != nil {
		return err
	}
	return fn(ctx, a)
}
