package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain"
	"github.com/google/uuid"
)

var (
	ErrForbidden = errors.New("forbidden: insufficient permissions")

	// ErrInvalidReference wraps a not-found error for an entity the caller
	// referenced in a request body rather than in the URL.
	ErrInvalidReference = errors.New("invalid reference")
)

// ValidationError maps request field names to what is wrong with them.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = message
	}
}

// OrNil lets validators build the error unconditionally and return it.
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Actor is the verified caller of a service operation.
type Actor struct {
	UserID    uuid.UUID
	Role      domain.Role
	EntityID  uuid.UUID
	IP        string
	RequestID string
}

func ActorFromClaims(c *domain.Claims, ip, requestID string) Actor {
	return Actor{
		UserID:    c.UserID,
		Role:      c.Role,
		EntityID:  c.EntityID(),
		IP:        ip,
		RequestID: requestID,
	}
}

func (a Actor) require(role domain.Role) error {
	if a.Role != role || a.EntityID == uuid.Nil {
		return ErrForbidden
	}
	return nil
}

func (a Actor) audit(action domain.AuditAction, resourceType, resourceID string) AuditEntry {
	return AuditEntry{
		UserID:       a.UserID,
		UserRole:     a.Role,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    a.IP,
		RequestID:    a.RequestID,
	}
}

type AuditEntry struct {
	UserID       uuid.UUID
	UserRole     domain.Role
	Action       domain.AuditAction
	ResourceType string
	ResourceID   string
	IPAddress    string
	RequestID    string
	StatusCode   int
	Changes      string
}
