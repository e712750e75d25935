package command

import (
	"fmt"
	"strings"
)

// Permission is a set of capabilities granted to a connection or required by
// a command.
type Permission uint32

const (
	PermissionNone Permission = 0
	PermissionRead Permission = 1 << (iota - 1)
	PermissionAdd
	PermissionControl
	PermissionAdmin

	PermissionAll = PermissionRead | PermissionAdd | PermissionControl | PermissionAdmin
)

var permissionNames = []struct {
	name string
	perm Permission
}{
	{"read", PermissionRead},
	{"add", PermissionAdd},
	{"control", PermissionControl},
	{"admin", PermissionAdmin},
}

// Has reports whether p holds every bit of required. Holding extra bits never
// matters, and PermissionNone is satisfied by everyone.
func (p Permission) Has(required Permission) bool {
	return p&required == required
}

func (p Permission) String() string {
	if p == PermissionNone {
		return "none"
	}
	var parts []string
	for _, pn := range permissionNames {
		if p&pn.perm != 0 {
			parts = append(parts, pn.name)
		}
	}
	return strings.Join(parts, ",")
}

// ParsePermissions parses a comma separated list such as "read,add,control".
// The empty string yields PermissionNone.
func ParsePermissions(s string) (Permission, error) {
	var p Permission
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		found := false
		for _, pn := range permissionNames {
			if strings.EqualFold(field, pn.name) {
				p |= pn.perm
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown permission %q", field)
		}
	}
	return p, nil
}
