package firebase

import (
	"context"
	"fmt"
	"log"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// InitAuth builds a Firebase auth client for verifying ID tokens. It
// returns nil, nil when no credentials path is configured so the server
// can run without Firebase login.
func InitAuth(ctx context.Context, credentialsPath string) (*auth.Client, error) {
	if credentialsPath == "" {
		log.Println("FIREBASE_CREDENTIALS_PATH not set, Firebase login disabled.")
		return nil, nil
	}
	if _, err := os.Stat(credentialsPath); err != nil {
		return nil, fmt.Errorf("firebase credentials file not found at %s: %w", credentialsPath, err)
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firebase auth client: %w", err)
	}

	log.Println("Firebase auth client initialized.")
	return client, nil
}
