package display

import (
	"fmt"
	"strconv"
	"strings"
)

// Role distinguishes the primary overlay from secondary ones. It only affects
// the generated identifier.
type Role int

const (
	RoleSecondary Role = iota
	RolePrimary
)

// RoleFor maps the command-surface isPrimary flag to a Role.
func RoleFor(isPrimary bool) Role {
	if isPrimary {
		return RolePrimary
	}
	return RoleSecondary
}

func (r Role) String() string {
	if r == RolePrimary {
		return "primary"
	}
	return "secondary"
}

const (
	primaryPrefix   = "main_monitor_"
	secondaryPrefix = "secondary_monitor_"
	legacyPrefix    = "monitor_"
)

// OverlayPrefixes lists every naming scheme an overlay window has used,
// current and legacy. The main application window matches none of them.
var OverlayPrefixes = []string{legacyPrefix, primaryPrefix, secondaryPrefix}

// Identifier returns the canonical, deterministic identifier for (slot, role).
func Identifier(slot int, role Role) string {
	if role == RolePrimary {
		return fmt.Sprintf("%s%d", primaryPrefix, slot)
	}
	return fmt.Sprintf("%s%d", secondaryPrefix, slot)
}

// KnownIdentifiers returns every identifier any naming scheme could have
// given a window on slot, including the canonical ones for both roles.
func KnownIdentifiers(slot int) []string {
	ids := make([]string, 0, len(OverlayPrefixes))
	for _, prefix := range OverlayPrefixes {
		ids = append(ids, prefix+strconv.Itoa(slot))
	}
	return ids
}

// IsOverlayIdentifier reports whether id follows one of the overlay naming schemes.
func IsOverlayIdentifier(id string) bool {
	_, ok := ParseSlot(id)
	return ok
}

// ParseSlot extracts the slot encoded in an overlay identifier.
func ParseSlot(id string) (int, bool) {
	for _, prefix := range []string{primaryPrefix, secondaryPrefix, legacyPrefix} {
		rest, ok := strings.CutPrefix(id, prefix)
		if !ok {
			continue
		}
		slot, err := strconv.Atoi(rest)
		if err != nil || slot < 0 || strconv.Itoa(slot) != rest {
			return 0, false
		}
		return slot, true
	}
	return 0, false
}
