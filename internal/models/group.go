package models

import "fmt"

// Group represents a reusable participant list.
// Transactions reference a group by ID; the group does not own them, so
// archiving a group leaves its history intact.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g., "Roommates", "Ski Trip").
	Name string

	// Members is the ordered list of participants in this group.
	Members []Member

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64

	// Archived hides the group from active use. Balances stay computable.
	Archived bool

	// ArchivedAt is the Unix timestamp of the last archive, zero if never archived.
	ArchivedAt int64
}

// Member is one participant of a group.
type Member struct {
	// ID is the participant identifier used in transactions and settlements.
	// For registered users it equals the user ID.
	ID string

	// DisplayName is the name shown for this participant.
	DisplayName string

	// UserID references a registered account. Empty for a contact that
	// only exists by phone number.
	UserID string

	// Phone is the contact phone number for unregistered participants.
	Phone string
}

// Registered reports whether the member is backed by a user account.
func (m Member) Registered() bool {
	return m.UserID != ""
}

// MemberIDs returns the participant IDs of the group in order.
func (g *Group) MemberIDs() []string {
	ids := make([]string, len(g.Members))
	for i, m := range g.Members {
		ids[i] = m.ID
	}
	return ids
}

// HasMember reports whether id is a participant of the group.
func (g *Group) HasMember(id string) bool {
	for _, m := range g.Members {
		if m.ID == id {
			return true
		}
	}
	return false
}

// Validate checks the group invariants: a name, at least one member while
// active, and unique non-empty member IDs.
func (g *Group) Validate() error {
	if g.Name == "" {
		return fmt.Errorf("group name is required")
	}
	if !g.Archived && len(g.Members) == 0 {
		return fmt.Errorf("active group must have at least one member")
	}
	seen := make(map[string]bool, len(g.Members))
	for _, m := range g.Members {
		if m.ID == "" {
			return fmt.Errorf("member id is required")
		}
		if seen[m.ID] {
			return fmt.Errorf("duplicate member %q", m.ID)
		}
		seen[m.ID] = true
	}
	return nil
}
