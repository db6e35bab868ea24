// Package apps holds the registered OAuth application credentials for the
// meeting provider. Tenants may pin a specific app; everyone else gets the
// default one.
package apps

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"meetsync/internal/store"
)

var ErrNoApp = errors.New("no registered app")

// App is one registered OAuth client.
type App struct {
	Name         string `yaml:"name" json:"name"`
	ClientID     string `yaml:"clientId" json:"clientId"`
	ClientSecret string `yaml:"clientSecret" json:"clientSecret"`
	RedirectURL  string `yaml:"redirectUrl" json:"redirectUrl"`
}

type Registry struct {
	docs store.Store
}

func NewRegistry(docs store.Store) *Registry {
	return &Registry{docs: docs}
}

// Lookup resolves appName to its credentials. An empty appName falls back to
// the default app named by the external config document.
func (r *Registry) Lookup(ctx context.Context, appName string) (App, error) {
	if appName == "" {
		cfg, err := r.docs.Get(ctx, store.DefaultAppConfigPath())
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return App{}, ErrNoApp
			}
			return App{}, err
		}
		appName, _ = cfg["appName"].(string)
		if appName == "" {
			return App{}, ErrNoApp
		}
	}
	doc, err := r.docs.Get(ctx, store.ZoomAppPath(appName))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return App{}, ErrNoApp
		}
		return App{}, err
	}
	app := App{Name: appName}
	app.ClientID, _ = doc["clientId"].(string)
	app.ClientSecret, _ = doc["clientSecret"].(string)
	app.RedirectURL, _ = doc["redirectUrl"].(string)
	if app.ClientID == "" || app.ClientSecret == "" {
		return App{}, ErrNoApp
	}
	return app, nil
}

// Register upserts one app document.
func (r *Registry) Register(ctx context.Context, app App) error {
	if app.Name == "" || app.ClientID == "" || app.ClientSecret == "" {
		return fmt.Errorf("app name, clientId and clientSecret are required")
	}
	return r.docs.Set(ctx, store.ZoomAppPath(app.Name), map[string]any{
		"clientId":     app.ClientID,
		"clientSecret": app.ClientSecret,
		"redirectUrl":  app.RedirectURL,
	})
}

// SetDefault points the fallback config at appName.
func (r *Registry) SetDefault(ctx context.Context, appName string) error {
	return r.docs.Merge(ctx, store.DefaultAppConfigPath(), map[string]any{"appName": appName})
}

type seedFile struct {
	Default string `yaml:"default"`
	Apps    []App  `yaml:"apps"`
}

// SeedFromFile loads a YAML app list at startup. Missing file is not an
// error so dev environments can run without one.
func (r *Registry) SeedFromFile(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var sf seedFile
	if err := yaml.Unmarshal(raw, &sf); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	for _, app := range sf.Apps {
		if err := r.Register(ctx, app); err != nil {
			return fmt.Errorf("seed app %q: %w", app.Name, err)
		}
	}
	if sf.Default != "" {
		if err := r.SetDefault(ctx, sf.Default); err != nil {
			return err
		}
	}
	return nil
}
