// Package providers assembles the registry of all built-in gateway
// adapters. Kept separate from package gateway so adapters can import
// the core contracts without a cycle.
package providers

import (
	"github.com/jwalitptl/notify-engine/internal/gateway"
	"github.com/jwalitptl/notify-engine/internal/gateway/ntfy"
	"github.com/jwalitptl/notify-engine/internal/gateway/slack"
	"github.com/jwalitptl/notify-engine/internal/gateway/smtp"
	"github.com/jwalitptl/notify-engine/internal/gateway/twilio"
)

// NewRegistry returns a registry with every built-in provider wired.
func NewRegistry() *gateway.Registry {
	r := gateway.NewRegistry()
	twilio.Register(r)
	slack.Register(r)
	ntfy.Register(r)
	smtp.Register(r)
	return r
}
