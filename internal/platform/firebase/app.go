package firebase

import (
	"context"
	"fmt"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/storage"
	"google.golang.org/api/option"
)

// Config holds Firebase configuration.
type Config struct {
	ProjectID                    string
	GoogleApplicationCredentials string // path to a service account JSON file, optional
	// StorageBucket enables the Storage client when set, e.g. "my-project.appspot.com".
	StorageBucket string
}

// Clients holds the Firebase clients the service uses. Storage is nil unless
// Config.StorageBucket was set.
type Clients struct {
	Auth    *auth.Client
	Storage *storage.Client
}

// InitializeClients creates the Firebase app and its clients.
func InitializeClients(ctx context.Context, cfg Config) (*Clients, error) {
	opts, err := clientOptions(cfg)
	if err != nil {
		return nil, err
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:     cfg.ProjectID,
		StorageBucket: cfg.StorageBucket,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}

	ac, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth: %w", err)
	}
	clients := &Clients{Auth: ac}

	if cfg.StorageBucket != "" {
		sc, err := app.Storage(ctx)
		if err != nil {
			return nil, fmt.Errorf("firebase storage: %w", err)
		}
		clients.Storage = sc
	}
	return clients, nil
}

func clientOptions(cfg Config) ([]option.ClientOption, error) {
	if cfg.GoogleApplicationCredentials == "" {
		return nil, nil
	}
	creds, err := os.ReadFile(cfg.GoogleApplicationCredentials)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	return []option.ClientOption{option.WithCredentialsJSON(creds)}, nil
}
