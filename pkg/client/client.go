// Package client provides the authenticated HTTP client for Google APIs
// using a service account key.
package client

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2/google"
)

// New creates an HTTP client from a service account key file.
func New(serviceAccountFile string, scope ...string) (*http.Client, error) {
	b, err := os.ReadFile(serviceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("reading service account file: %w", err)
	}

	return NewFromJSON(b, scope...)
}

// NewFromJSON creates an HTTP client from service account key JSON content.
func NewFromJSON(keyJSON []byte, scope ...string) (*http.Client, error) {
	conf, err := google.JWTConfigFromJSON(keyJSON, scope...)
	if err != nil {
		return nil, fmt.Errorf("parsing service account key: %w", err)
	}

	return conf.Client(context.Background()), nil
}
