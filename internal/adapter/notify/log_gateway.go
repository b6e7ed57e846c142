// Package notify carries the default log-backed notification gateway.
// Real channels (email/SMS/push) plug in behind the same interface.
package notify

import (
	"log"

	"goldloan-backend/internal/domain/notification"
)

type LogGateway struct{}

var _ notification.Gateway = (*LogGateway)(nil)

func NewLogGateway() *LogGateway { return &LogGateway{} }

// Dispatch runs in a goroutine: a slow or failing channel must never
// hold up the workflow transition that already committed.
func (g *LogGateway) NotifyRoles(roles []string, msg notification.Message) {
	go func() {
		log.Printf("notify roles=%v event=%s application=%s step=%s: %s",
			roles, msg.Event, msg.ApplicationID, msg.StepID, msg.Body)
	}()
}

func (g *LogGateway) NotifyUser(userID string, msg notification.Message) {
	go func() {
		log.Printf("notify user=%s event=%s application=%s loan=%s: %s",
			userID, msg.Event, msg.ApplicationID, msg.LoanID, msg.Body)
	}()
}
