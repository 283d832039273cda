package client

import "errors"

// Domain errors
var (
	ErrClientNotFound = errors.New("client not found")
)

// Client is a corporate customer on whose behalf certificates and accounts are managed.
type Client struct {
	ID             string `json:"id" yaml:"id"`
	Name           string `json:"name" yaml:"name"`
	BusinessNumber string `json:"businessNumber" yaml:"businessNumber"`
}
