// Package command implements the dispatch core every request flows through:
// the command registry, permission and arity validation, the dispatcher that
// invokes handlers, the responder that frames OK/ACK replies, and the
// command-list executor.
//
// Registry
// ========
//
// The registry is an immutable array of descriptors sorted by name. It is
// built once at startup and shared by every connection without locking.
// Lookups are a binary search over the array. NewRegistry sorts its input and
// then verifies the result is strictly increasing; a duplicate name is a
// programming mistake in the command table and aborts the process.
//
// Arity
// =====
//
// Descriptor.Min and Descriptor.Max count the arguments after the command
// name. Validation adds one to both to compare against the full argument
// vector, where element 0 is the name itself. A bound of -1 is unchecked, and
// Min == -1 disables argument counting for the command entirely.
package command

import (
	"fmt"
	"slices"
	"strings"
)

// Descriptor describes one command.
type Descriptor struct {
	Name       string
	Permission Permission
	Min        int
	Max        int
	Handler    Handler
}

// Registry is the immutable, name-sorted command table.
type Registry struct {
	commands []Descriptor
}

// NewRegistry builds a registry from descs. It panics if two descriptors
// share a name or a descriptor has no handler.
func NewRegistry(descs ...Descriptor) *Registry {
	commands := slices.Clone(descs)
	slices.SortStableFunc(commands, func(a, b Descriptor) int {
		return strings.Compare(a.Name, b.Name)
	})

	for i := range commands {
		if commands[i].Handler == nil {
			panic(fmt.Sprintf("command: %q has no handler", commands[i].Name))
		}
		if i > 0 && commands[i-1].Name >= commands[i].Name {
			panic(fmt.Sprintf("command: duplicate command %q", commands[i].Name))
		}
	}

	return &Registry{commands: commands}
}

// Lookup finds the descriptor for name. Names are case-sensitive.
func (r *Registry) Lookup(name string) (*Descriptor, bool) {
	lo, hi := 0, len(r.commands)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		switch cmp := strings.Compare(name, r.commands[mid].Name); {
		case cmp == 0:
			return &r.commands[mid], true
		case cmp < 0:
			hi = mid
		default:
			lo = mid + 1
		}
	}
	return nil, false
}

// All returns the descriptors in name order.
func (r *Registry) All() []Descriptor {
	return slices.Clone(r.commands)
}

// Len returns the number of registered commands.
func (r *Registry) Len() int {
	return len(r.commands)
}
