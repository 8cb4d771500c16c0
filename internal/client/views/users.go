package views

import (
	"context"
	"errors"

	"github.com/atvirokodosprendimai/storefront/internal/client/api"
	"github.com/atvirokodosprendimai/storefront/internal/client/result"
	"github.com/atvirokodosprendimai/storefront/internal/optimistic"
)

var (
	ErrOwnRole = errors.New("cannot change own role")
	ErrOwnBan  = errors.New("cannot ban own account")
)

// Notification text for the self-moderation guards.
const (
	MsgOwnRole = "You cannot change your own role"
	MsgOwnBan  = "You cannot ban your own account"
)

// AdminUsers lists accounts for role and ban management.
type AdminUsers struct {
	*optimistic.Controller[api.User]
	env Env
}

func NewAdminUsers(env Env, query api.UserQuery) *AdminUsers {
	return &AdminUsers{
		Controller: newController(env, func(ctx context.Context) result.Result[[]api.User] {
			return env.Client.AdminUsers(ctx, query)
		}),
		env: env,
	}
}

func (v *AdminUsers) ChangeRole(ctx context.Context, id, role string) *optimistic.Pending[api.User] {
	return v.Go(ctx, optimistic.Mutation[api.User]{
		RecordID: id,
		Field:    "role",
		Guard:    v.notSelf(ErrOwnRole, MsgOwnRole),
		Change: func(u api.User) api.User {
			u.Role = role
			return u
		},
		Request: func(ctx context.Context, u api.User) (optimistic.Reply[api.User], error) {
			return reply(v.env.Client.ChangeUserRole(ctx, u.ID, role), mergeRole, func(r api.RoleReply) string { return r.Message })
		},
		SuccessMessage: "Role updated",
	})
}

// CycleRole moves the user to the next role in Roles.
func (v *AdminUsers) CycleRole(ctx context.Context, id string) *optimistic.Pending[api.User] {
	u, _ := v.Collection().Get(id)
	return v.ChangeRole(ctx, id, NextRole(u.Role))
}

func (v *AdminUsers) ToggleBan(ctx context.Context, id string) *optimistic.Pending[api.User] {
	return v.Go(ctx, optimistic.Mutation[api.User]{
		RecordID: id,
		Field:    "status",
		Guard:    v.notSelf(ErrOwnBan, MsgOwnBan),
		Change: func(u api.User) api.User {
			u.Status = toggledUserStatus(u.Status)
			return u
		},
		Request: func(ctx context.Context, u api.User) (optimistic.Reply[api.User], error) {
			return reply(v.env.Client.ToggleUserBan(ctx, u.ID), mergeUserStatus, func(r api.StatusReply) string { return r.Message })
		},
		SuccessMessage: "User status updated",
	})
}

func (v *AdminUsers) notSelf(err error, message string) func(api.User) error {
	return func(u api.User) error {
		if actor := v.env.actorID(); actor != "" && u.ID == actor {
			return &result.Error{Kind: result.Rejected, Message: message, Err: err}
		}
		return nil
	}
}

func mergeRole(u api.User, r api.RoleReply) api.User {
	if r.Role != "" {
		u.Role = r.Role
	}
	return u
}

func mergeUserStatus(u api.User, r api.StatusReply) api.User {
	if r.Status != "" {
		u.Status = r.Status
	}
	return u
}
