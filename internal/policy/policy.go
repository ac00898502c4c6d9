// Package policy decides whether an actor may perform an action on a document.
// Decisions are pure: they read only the actor's roles, capabilities and id
// and the document's owner.
package policy

import "docvault/internal/model"

// Action is something an actor attempts.
type Action string

const (
	ViewAny     Action = "viewAny"
	View        Action = "view"
	Create      Action = "create"
	Update      Action = "update"
	Delete      Action = "delete"
	Restore     Action = "restore"
	ForceDelete Action = "forceDelete"

	// Audit covers the global history query across all documents.
	Audit Action = "audit"
	// ManageCategories covers category create, update and delete.
	ManageCategories Action = "manageCategories"
)

// Decision is the outcome of Decide. Reason is set for denials.
type Decision struct {
	Allowed bool
	Reason  string
}

var allow = Decision{Allowed: true}

func deny(reason string) Decision {
	return Decision{Reason: reason}
}

// Decide evaluates action for actor against doc. doc may be nil for actions
// that do not target a document.
func Decide(actor *model.Actor, action Action, doc *model.Document) Decision {
	if actor == nil || actor.ID == "" {
		return deny("unauthenticated")
	}
	if actor.IsAdmin() {
		return allow
	}

	switch action {
	case ViewAny, Create:
		return allow
	case View:
		return ownerOr(actor, doc, model.CapabilityViewDocuments)
	case Update:
		return ownerOr(actor, doc, model.CapabilityEditDocuments)
	case Delete:
		return ownerOr(actor, doc, model.CapabilityDeleteDocuments)
	case Restore:
		if actor.HasCapability(model.CapabilityRestoreDocuments) {
			return allow
		}
		return deny("requires the restore capability or admin role")
	case ForceDelete, Audit, ManageCategories:
		return deny("requires the admin role")
	default:
		return deny("unknown action")
	}
}

// Allowed is Decide reduced to a bool.
func Allowed(actor *model.Actor, action Action, doc *model.Document) bool {
	return Decide(actor, action, doc).Allowed
}

func ownerOr(actor *model.Actor, doc *model.Document, capability string) Decision {
	if actor.HasCapability(capability) {
		return allow
	}
	if actor.Owns(doc) {
		return allow
	}
	return deny("not the owner and missing the " + capability + " capability")
}
