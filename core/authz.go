package core

import (
	"fmt"
	"strconv"
	"strings"
)

// RoleID identifies a chat role.
type RoleID int64

// ParseRoleID parses a base-10 role id, tolerating a "<@&id>" mention.
func ParseRoleID(s string) (RoleID, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(strings.TrimPrefix(s, "<@&"), ">")
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid role id %q", s)
	}
	return RoleID(v), nil
}

// RoleSet is the pre-resolved set of roles an actor holds.
type RoleSet map[RoleID]struct{}

// NewRoleSet builds a RoleSet from ids.
func NewRoleSet(ids ...RoleID) RoleSet {
	rs := make(RoleSet, len(ids))
	for _, id := range ids {
		rs[id] = struct{}{}
	}
	return rs
}

// Has reports whether id is in the set. A nil set holds nothing.
func (rs RoleSet) Has(id RoleID) bool {
	_, ok := rs[id]
	return ok
}

// IsAuthorized reports whether required is a member of roles.
func IsAuthorized(roles RoleSet, required RoleID) bool {
	return roles.Has(required)
}

// Authorize returns ErrPermissionDenied unless roles contains required.
func Authorize(roles RoleSet, required RoleID) error {
	if !IsAuthorized(roles, required) {
		return ErrPermissionDenied
	}
	return nil
}
