// Package policy is the authorization gate consulted by every mutating and restricted operation.
package policy

import (
	"github.com/Astemirdum/libsys/library/internal/errs"
	"github.com/Astemirdum/libsys/library/internal/model"
)

type Action string

const (
	ReadCatalog   Action = "catalog:read"
	ManageBooks   Action = "catalog:manage"
	ManageUsers   Action = "users:manage"
	ReadUser      Action = "users:read"
	SubmitRequest Action = "requests:submit"
	ReviewRequest Action = "requests:review"
	ReadRequests  Action = "requests:read"
	ReadLedger    Action = "requests:read-all"
)

// Resource narrows an action to a target. OwnerID is the user the target belongs to, if any.
type Resource struct {
	OwnerID string
}

var Any = Resource{}

func Owned(userID string) Resource {
	return Resource{OwnerID: userID}
}

type rule func(actor model.User, res Resource) bool

func allow(model.User, Resource) bool { return true }

func own(actor model.User, res Resource) bool {
	return res.OwnerID != "" && res.OwnerID == actor.ID
}

var table = map[model.Role]map[Action]rule{
	model.RoleLibrarian: {
		ReadCatalog:   allow,
		ManageBooks:   allow,
		ReadUser:      own,
		ReviewRequest: allow,
		ReadRequests:  allow,
		ReadLedger:    allow,
	},
	model.RoleMember: {
		ReadCatalog:   allow,
		ReadUser:      own,
		SubmitRequest: own,
		ReadRequests:  own,
	},
}

func CanPerform(actor model.User, action Action, res Resource) bool {
	if !actor.Active() {
		return false
	}
	if actor.Role == model.RoleAdmin {
		return true
	}
	r, ok := table[actor.Role][action]
	return ok && r(actor, res)
}

// Gate is the error-returning form of CanPerform.
type Gate struct{}

func (Gate) Check(actor model.User, action Action, res Resource) error {
	if CanPerform(actor, action, res) {
		return nil
	}
	if !actor.Active() {
		return errs.ErrAccountInactive
	}
	return errs.Forbidden("%s may not %s", actor.Role, action)
}
