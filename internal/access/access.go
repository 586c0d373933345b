// Package access resolves effective roles and authorization decisions for
// rooms and bookings. Every function is a pure predicate over the snapshot
// passed in; nothing here fetches state.
package access

import "strings"

// Role is the resolved authorization level of an identity against a room.
type Role string

const (
	// RoleAdmin may manage the room, its members, and its bookings.
	RoleAdmin Role = "Admin"
	// RoleUser may view the room and its bookings.
	RoleUser Role = "User"
	// RoleNonMember has no access to the room.
	RoleNonMember Role = "NonMember"
)

// legacyCreatorRole is an alias for Admin found in rooms written by early
// versions of the product.
const legacyCreatorRole = "Creator"

// Room is the minimal room snapshot required for authorization decisions.
// Callers convert from their own room representation.
type Room struct {
	CreatedBy string
	Members   map[string]string
}

// Booking is the minimal booking snapshot required for delete authorization.
type Booking struct {
	CreatedBy string
}

// NormalizeEmail lower-cases and trims an email address for use as an
// identity key. All member map keys and creator fields are stored in this
// form, but resolution tolerates stale mixed-case keys.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EffectiveRole resolves the role of the given identity against the room.
// The room creator is always Admin regardless of the members map.
func EffectiveRole(room Room, email string) Role {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return RoleNonMember
	}

	if NormalizeEmail(room.CreatedBy) == normalized {
		return RoleAdmin
	}

	role, ok := lookupMember(room.Members, normalized)
	if !ok {
		return RoleNonMember
	}

	switch role {
	case string(RoleAdmin), legacyCreatorRole:
		return RoleAdmin
	case string(RoleUser):
		return RoleUser
	default:
		return RoleNonMember
	}
}

// CanManageRoom reports whether the identity may edit or delete the room,
// including its members map.
func CanManageRoom(room Room, email string) bool {
	return EffectiveRole(room, email) == RoleAdmin
}

// CanViewRoom reports whether the identity may see the room and its bookings.
func CanViewRoom(room Room, email string) bool {
	switch EffectiveRole(room, email) {
	case RoleAdmin, RoleUser:
		return true
	default:
		return false
	}
}

// CanWriteBooking reports whether the identity may create or edit bookings
// on the room. Booking writes are admin-only.
func CanWriteBooking(room Room, email string) bool {
	return EffectiveRole(room, email) == RoleAdmin
}

// CanDeleteBooking reports whether the identity may delete the booking.
// Room admins may delete any booking; the booking's creator may always
// delete their own, whatever their current role.
func CanDeleteBooking(room Room, booking Booking, email string) bool {
	if EffectiveRole(room, email) == RoleAdmin {
		return true
	}
	normalized := NormalizeEmail(email)
	return normalized != "" && NormalizeEmail(booking.CreatedBy) == normalized
}

// AddMember inserts the email into the members map with role User. Adding an
// existing member resets their role to User. The input map is mutated; a map
// is allocated when nil.
func AddMember(members map[string]string, email string) map[string]string {
	if members == nil {
		members = make(map[string]string, 1)
	}
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return members
	}
	dropStaleKeys(members, normalized)
	members[normalized] = string(RoleUser)
	return members
}

// SetRole assigns the role for the email, inserting the key when absent.
// No membership pre-check is performed.
func SetRole(members map[string]string, email string, role Role) map[string]string {
	if members == nil {
		members = make(map[string]string, 1)
	}
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return members
	}
	dropStaleKeys(members, normalized)
	members[normalized] = string(role)
	return members
}

// RemoveMember deletes the email from the members map. Removing the room
// creator's entry does not revoke their implicit Admin role.
func RemoveMember(members map[string]string, email string) {
	if len(members) == 0 {
		return
	}
	normalized := NormalizeEmail(email)
	dropStaleKeys(members, normalized)
	delete(members, normalized)
}

// lookupMember finds the role for a normalized email, accepting legacy
// mixed-case keys written before normalization was enforced.
func lookupMember(members map[string]string, normalized string) (string, bool) {
	if role, ok := members[normalized]; ok {
		return role, true
	}
	for key, role := range members {
		if NormalizeEmail(key) == normalized {
			return role, true
		}
	}
	return "", false
}

// dropStaleKeys removes mixed-case duplicates of the normalized key so that
// a later insert leaves exactly one entry per identity.
func dropStaleKeys(members map[string]string, normalized string) {
	for key := range members {
		if key != normalized && NormalizeEmail(key) == normalized {
			delete(members, key)
		}
	}
}
