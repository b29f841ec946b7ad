// Package policy decides which row actions an entity allows from its
// lifecycle status. Views consume the result; they never inspect status
// strings themselves.
package policy

import (
	"slices"
	"strings"
)

// Action is a row-level operation offered by a table or dialog.
type Action string

const (
	Preview         Action = "preview"
	Edit            Action = "edit"
	Delete          Action = "delete"
	Approve         Action = "approve"
	Terminate       Action = "terminate"
	Export          Action = "export"
	VariationOrders Action = "variation_orders"
)

// Contract statuses.
const (
	ContractDraft      = "Draft"
	ContractActive     = "Active"
	ContractTerminated = "Terminated"
)

// Variation order statuses.
const (
	VOPending  = "Pending"
	VOApproved = "Approved"
	VORejected = "Rejected"
)

// Set is an unordered set of allowed actions.
type Set map[Action]bool

// NewSet builds a Set from actions.
func NewSet(actions ...Action) Set {
	s := make(Set, len(actions))
	for _, a := range actions {
		s[a] = true
	}
	return s
}

// Allows reports whether a is in the set.
func (s Set) Allows(a Action) bool {
	return s[a]
}

// List returns the actions sorted by name.
func (s Set) List() []Action {
	out := make([]Action, 0, len(s))
	for a, ok := range s {
		if ok {
			out = append(out, a)
		}
	}
	slices.Sort(out)
	return out
}

// ContractActions returns what a contract in status may do. Unknown statuses
// only allow preview.
func ContractActions(status string) Set {
	switch normalize(status) {
	case normalize(ContractDraft):
		return NewSet(Preview, Edit, Delete, Export)
	case normalize(ContractActive):
		return NewSet(Preview, Edit, Terminate, Export, VariationOrders)
	case normalize(ContractTerminated):
		return NewSet(Preview, Export, VariationOrders)
	}
	return NewSet(Preview)
}

// VariationOrderActions returns what a variation order in status may do.
// contractStatus gates mutations: nothing but preview once the parent
// contract is terminated.
func VariationOrderActions(status, contractStatus string) Set {
	if normalize(contractStatus) == normalize(ContractTerminated) {
		return NewSet(Preview)
	}
	switch normalize(status) {
	case normalize(VOPending):
		return NewSet(Preview, Edit, Delete, Approve)
	case normalize(VORejected):
		return NewSet(Preview, Edit)
	}
	return NewSet(Preview)
}

// CanAddVariationOrder reports whether new variation orders may be raised on
// a contract.
func CanAddVariationOrder(contractStatus string) bool {
	return normalize(contractStatus) == normalize(ContractActive)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
