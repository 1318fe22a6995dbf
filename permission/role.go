package permission

import "strings"

// Role names a privilege level carried in the access token's role claim.
type Role string

const (
	Guest  Role = "guest"
	User   Role = "user"
	Member Role = "member"
	Staff  Role = "staff"
	Admin  Role = "admin"
)

// UnknownRank is returned by [Rank] for roles outside the hierarchy.
const UnknownRank = -1

// Roles lists the hierarchy from least to most privileged.
func Roles() []Role {
	return []Role{Guest, User, Member, Staff, Admin}
}

// Rank returns the position of r in the hierarchy, or UnknownRank.
func Rank(r Role) int {
	switch r {
	case Guest:
		return 0
	case User:
		return 1
	case Member:
		return 2
	case Staff:
		return 3
	case Admin:
		return 4
	default:
		return UnknownRank
	}
}

// Valid reports whether r is part of the hierarchy.
func (r Role) Valid() bool {
	return Rank(r) != UnknownRank
}

// Satisfies reports whether a session holding role held may access something that
// requires role required. An unrecognized required role is never satisfied and an
// unrecognized held role satisfies nothing.
func Satisfies(held, required Role) bool {
	need := Rank(required)
	if need == UnknownRank {
		return false
	}
	return Rank(held) >= need
}

// Parse normalizes a claim value into a Role. Unknown values map to Guest so a
// malformed claim never elevates privilege.
func Parse(s string) Role {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return Guest
	}
	return r
}
