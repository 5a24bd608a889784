package auth

import (
	"github.com/pocketbase/pocketbase/core"

	"tickethub/internal/status"
)

// RoleKind is the closed set of roles a caller can carry. Roles are parsed
// once at the request boundary and matched exhaustively after that; nothing
// downstream ever reads raw token fields.
type RoleKind int

const (
	RoleUser RoleKind = iota
	RoleScanner
	RoleSubAdmin
	RoleVenueAdmin
	RoleSiteAdmin
)

func (k RoleKind) String() string {
	switch k {
	case RoleScanner:
		return "scanner"
	case RoleSubAdmin:
		return "subAdmin"
	case RoleVenueAdmin:
		return "venueAdmin"
	case RoleSiteAdmin:
		return "siteAdmin"
	default:
		return "user"
	}
}

// Role is a tagged variant: venue-scoped kinds carry the venue they are
// scoped to, the others leave it empty.
type Role struct {
	Kind    RoleKind
	VenueID string
}

// Claims are the immutable identity assertions attached to a caller. The
// identity provider is trusted as given; the core only consumes claims.
type Claims struct {
	UserID string
	Role   Role
}

// FromRecord parses claims from the authenticated PocketBase record. Returns
// an unauthenticated error for a nil record and an invalid-argument error for
// a venue-scoped role missing its venue.
func FromRecord(record *core.Record) (*Claims, error) {
	if record == nil {
		return nil, status.E(status.Unauthenticated, "authentication required")
	}

	if record.IsSuperuser() {
		return &Claims{UserID: record.Id, Role: Role{Kind: RoleSiteAdmin}}, nil
	}

	role := Role{Kind: RoleUser}
	switch record.GetString("role") {
	case "siteAdmin":
		role.Kind = RoleSiteAdmin
	case "venueAdmin":
		role.Kind = RoleVenueAdmin
	case "subAdmin":
		role.Kind = RoleSubAdmin
	case "scanner":
		role.Kind = RoleScanner
	}

	switch role.Kind {
	case RoleVenueAdmin, RoleSubAdmin, RoleScanner:
		role.VenueID = record.GetString("venueId")
		if role.VenueID == "" {
			return nil, status.Errorf(status.InvalidArgument, "%s role requires a venue", role.Kind)
		}
	}

	return &Claims{UserID: record.Id, Role: role}, nil
}

// IsSiteAdmin reports whether the caller holds the highest administrative
// tier, the only tier allowed to run migrations.
func (c *Claims) IsSiteAdmin() bool {
	return c != nil && c.Role.Kind == RoleSiteAdmin
}
