// Package notify sends account emails without blocking the request that
// triggered them.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Message is one outbound email.
type Message struct {
	To      string
	Name    string
	Subject string
	Body    string
}

// Sender delivers a Message.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// Notifier sends account emails in the background. Send failures are logged
// and otherwise ignored.
type Notifier struct {
	sender  Sender
	timeout time.Duration
	wg      sync.WaitGroup
}

func New(sender Sender) *Notifier {
	return &Notifier{sender: sender, timeout: 10 * time.Second}
}

// Welcome greets a newly registered user.
func (n *Notifier) Welcome(email, name string) {
	n.dispatch(Message{
		To:      email,
		Name:    name,
		Subject: "Welcome!",
		Body:    fmt.Sprintf("You are now part of the community, %s!", name),
	})
}

// Cancellation says goodbye to a user who deleted their account.
func (n *Notifier) Cancellation(email, name string) {
	n.dispatch(Message{
		To:      email,
		Name:    name,
		Subject: "We're sorry to see you go!",
		Body:    "Please let us know what we could improve",
	})
}

// Wait blocks until every dispatched message has been attempted.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) dispatch(m Message) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		if err := n.sender.Send(ctx, m); err != nil {
			log.Warn().Err(err).Str("to", m.To).Str("subject", m.Subject).Msg("email not sent")
		}
	}()
}

// LogSender only logs messages; used when no mail provider is configured.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, m Message) error {
	log.Info().Str("to", m.To).Str("subject", m.Subject).Msg("email (not delivered, no provider configured)")
	return nil
}
