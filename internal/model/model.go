// Package model contains the domain types shared by every layer.
// Types here carry JSON tags only; persistence mapping lives in the repositories.
package model

import "strings"

// Role and capability names understood by the access policy.
const (
	RoleAdmin = "admin"

	CapabilityViewDocuments    = "view documents"
	CapabilityEditDocuments    = "edit documents"
	CapabilityDeleteDocuments  = "delete documents"
	CapabilityRestoreDocuments = "restore documents"
)

// Actor is the authenticated caller as supplied by the identity provider.
type Actor struct {
	ID           string   `json:"id"`
	Roles        []string `json:"roles"`
	Capabilities []string `json:"capabilities"`
}

// HasRole reports whether the actor holds role (case-insensitive).
func (a *Actor) HasRole(role string) bool {
	if a == nil {
		return false
	}
	return containsFold(a.Roles, role)
}

// HasCapability reports whether the actor holds the named capability (case-insensitive).
func (a *Actor) HasCapability(capability string) bool {
	if a == nil {
		return false
	}
	return containsFold(a.Capabilities, capability)
}

// IsAdmin is shorthand for HasRole(RoleAdmin).
func (a *Actor) IsAdmin() bool {
	return a.HasRole(RoleAdmin)
}

// Owns reports whether doc was created by the actor.
func (a *Actor) Owns(doc *Document) bool {
	if a == nil || doc == nil || a.ID == "" {
		return false
	}
	return doc.OwnerID == a.ID
}

func containsFold(list []string, want string) bool {
	want = strings.TrimSpace(want)
	for _, v := range list {
		if strings.EqualFold(strings.TrimSpace(v), want) {
			return true
		}
	}
	return false
}
