package httpkit

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Identity is the authenticated actor behind a request, as asserted by the
// identity collaborator's token. Handlers use it for audit attribution and
// organization scoping; permission checks happen upstream, never here.
type Identity interface {
	UserID() uuid.UUID
	// OrganizationID is the actor's organization, or uuid.Nil for tokens
	// without an org claim.
	OrganizationID() uuid.UUID
	Roles() []string
	HasRole(role string) bool
	IsAuthenticated() bool
}

type identity struct {
	userID        uuid.UUID
	orgID         uuid.UUID
	roles         []string
	authenticated bool
}

func (i *identity) UserID() uuid.UUID         { return i.userID }
func (i *identity) OrganizationID() uuid.UUID { return i.orgID }
func (i *identity) Roles() []string           { return i.roles }
func (i *identity) IsAuthenticated() bool     { return i.authenticated }

func (i *identity) HasRole(role string) bool {
	for _, r := range i.roles {
		if r == role {
			return true
		}
	}
	return false
}

// GetIdentity reads the identity seeded into the context by AuthRequired.
// Requests that skipped authentication yield an unauthenticated identity.
func GetIdentity(c *gin.Context) Identity {
	userID, userOK := c.Get(ContextUserIDKey)
	if !userOK {
		return &identity{}
	}

	uid, ok := userID.(uuid.UUID)
	if !ok {
		return &identity{}
	}

	var orgID uuid.UUID
	if raw, ok := c.Get(ContextOrganizationIDKey); ok {
		orgID, _ = raw.(uuid.UUID)
	}

	var roleList []string
	if raw, ok := c.Get(ContextRolesKey); ok {
		roleList, _ = raw.([]string)
	}

	return &identity{
		userID:        uid,
		orgID:         orgID,
		roles:         roleList,
		authenticated: true,
	}
}

// MustGetIdentity is GetIdentity for authenticated routes. It aborts with
// 401 and returns nil when no identity is present.
func MustGetIdentity(c *gin.Context) Identity {
	id := GetIdentity(c)
	if !id.IsAuthenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil
	}
	return id
}
