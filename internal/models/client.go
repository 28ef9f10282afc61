package models

import (
	"fmt"
	"strings"
)

// Admin permissions
const (
	PermSessionsRead  = "sessions:read"
	PermCatalogReload = "catalog:reload"
)

// ApiClient is an operator allowed to call the admin endpoints
type ApiClient struct {
	Name        string   `json:"name"`
	ApiKey      string   `json:"-"` // Never serialize
	Permissions []string `json:"permissions"`
}

// HasPermission checks if client has specific permission
// Supports wildcard permissions like "sessions:*"
func (c *ApiClient) HasPermission(required string) bool {
	if c == nil {
		return false
	}

	for _, perm := range c.Permissions {
		if perm == required || perm == "*" {
			return true
		}
		if strings.HasSuffix(perm, ":*") && strings.HasPrefix(required, strings.TrimSuffix(perm, "*")) {
			return true
		}
	}
	return false
}

// MaskedApiKey returns first 8 characters of API key for logging
func (c *ApiClient) MaskedApiKey() string {
	if len(c.ApiKey) < 8 {
		return "***"
	}
	return c.ApiKey[:8] + "..."
}

// ParseApiClients parses a comma separated list of name:key:perm+perm
// entries. Permissions default to "*" when omitted.
func ParseApiClients(raw string) ([]*ApiClient, error) {
	var clients []*ApiClient
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.SplitN(entry, ":", 3)
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid api client entry %q: expected name:key[:perm+perm]", entry)
		}

		perms := []string{"*"}
		if len(parts) == 3 && parts[2] != "" {
			perms = strings.Split(parts[2], "+")
		}
		clients = append(clients, &ApiClient{Name: parts[0], ApiKey: parts[1], Permissions: perms})
	}
	return clients, nil
}
