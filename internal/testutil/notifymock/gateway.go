package notifymock

import (
	"sync"

	"goldloan-backend/internal/domain/notification"
)

var _ notification.Gateway = (*Gateway)(nil)

// Gateway records every dispatched message; safe for concurrent use.
type Gateway struct {
	mu        sync.Mutex
	RoleCalls []RoleCall
	UserCalls []UserCall
}

type RoleCall struct {
	Roles []string
	Msg   notification.Message
}

type UserCall struct {
	UserID string
	Msg    notification.Message
}

func (g *Gateway) NotifyRoles(roles []string, msg notification.Message) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.RoleCalls = append(g.RoleCalls, RoleCall{Roles: roles, Msg: msg})
}

func (g *Gateway) NotifyUser(userID string, msg notification.Message) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.UserCalls = append(g.UserCalls, UserCall{UserID: userID, Msg: msg})
}

// Events lists dispatched event names in order, role calls first.
func (g *Gateway) Events() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, len(g.RoleCalls)+len(g.UserCalls))
	for _, c := range g.RoleCalls {
		out = append(out, c.Msg.Event)
	}
	for _, c := range g.UserCalls {
		out = append(out, c.Msg.Event)
	}
	return out
}
