package policy

import (
	"blogapi/common"
	"blogapi/models"
)

type Action string

const (
	Update Action = "update"
	Delete Action = "delete"
)

const MsgForbidden = "This action is unauthorized."

// Resource is anything a policy can be checked against.
type Resource interface {
	PolicyEntity() string
	OwnerID() uint
}

type Key struct {
	Entity string
	Action Action
}

// Checker reports whether actor may perform an action on r.
type Checker func(actor *models.User, r Resource) bool

// Owns is true when actor created r.
func Owns(actor *models.User, r Resource) bool {
	return actor != nil && r != nil && actor.ID != 0 && actor.ID == r.OwnerID()
}

// Guard dispatches (entity, action) pairs to their checker. The table is
// fixed once NewGuard returns.
type Guard struct {
	checkers map[Key]Checker
}

func NewGuard() *Guard {
	return &Guard{checkers: map[Key]Checker{
		{Entity: models.Post{}.PolicyEntity(), Action: Update}:    Owns,
		{Entity: models.Post{}.PolicyEntity(), Action: Delete}:    Owns,
		{Entity: models.Comment{}.PolicyEntity(), Action: Update}: Owns,
		{Entity: models.Comment{}.PolicyEntity(), Action: Delete}: Owns,
	}}
}

// Allows reports whether actor may perform action on r. Unregistered pairs
// are denied.
func (g *Guard) Allows(actor *models.User, action Action, r Resource) bool {
	if r == nil {
		return false
	}
	check, ok := g.checkers[Key{Entity: r.PolicyEntity(), Action: action}]
	if !ok {
		return false
	}
	return check(actor, r)
}

func (g *Guard) Authorize(actor *models.User, action Action, r Resource) error {
	if !g.Allows(actor, action, r) {
		return common.AuthorizationError(MsgForbidden)
	}
	return nil
}
