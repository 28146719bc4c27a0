package domain

import "time"

// Account is a hosting account scraped from the panel's account listing.
type Account struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DNSRecord is a (host, type, target) row scraped from a domain's records table.
// DeleteHandle, when present, is the URL of the row's inline delete form.
type DNSRecord struct {
	Host         string `json:"host"`
	Type         string `json:"type"`
	Target       string `json:"target"`
	DeleteHandle string `json:"delete_handle,omitempty"`
}

// Extension is one free-subdomain suffix offered by the registration form.
type Extension struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// OperationResult is the outcome of a write operation against the panel.
// Confirmed is false for the lenient "request sent" paths where the panel gave
// no positive confirmation but also no error.
type OperationResult struct {
	Message   string `json:"message"`
	Domain    string `json:"domain,omitempty"`
	Confirmed bool   `json:"confirmed"`
}

// VerifyResult reports the outcome of an authentication probe.
type VerifyResult struct {
	Authenticated bool   `json:"authenticated"`
	Detail        string `json:"detail"`
}

// OwnedDomain is a domain registered through the service on behalf of an
// external chat user, tracked in the ownership store.
type OwnedDomain struct {
	Domain    string    `json:"domain"`
	Subdomain string    `json:"subdomain,omitempty"`
	Extension string    `json:"extension,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatUser is an external bot user recorded in the ownership store.
type ChatUser struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username,omitempty"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ConversationState holds a chat user's in-flight multi-step dialog state.
type ConversationState struct {
	State     string            `json:"state"`
	Data      map[string]string `json:"data,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}
