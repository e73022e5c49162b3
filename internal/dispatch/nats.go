// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Okiri Contributors

// Package dispatch delivers issued verification codes to an outbound channel.
package dispatch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/okiri/okiri/internal/auth"
)

// DefaultSubject is the subject codes are published on when none is configured.
const DefaultSubject = "okiri.auth.codes"

// CodeMessage is the JSON payload published for each issued code. A mailer or
// SMS worker subscribed to the subject performs the actual delivery.
type CodeMessage struct {
	ID       string    `json:"id"`
	Email    string    `json:"email"`
	Code     string    `json:"code"`
	IssuedAt time.Time `json:"issued_at"`
}

// publisher is satisfied by nats.JetStreamContext.
type publisher interface {
	PublishMsg(m *nats.Msg, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// NATSDispatcher publishes issued codes to a JetStream subject. Each message
// carries a ULID in the Nats-Msg-Id header so the stream drops duplicates.
type NATSDispatcher struct {
	conn    *nats.Conn
	js      publisher
	subject string
	now     func() time.Time
}

// Connect dials url and returns a dispatcher publishing on subject.
// An empty subject uses DefaultSubject.
func Connect(url, subject string, opts ...nats.Option) (*NATSDispatcher, error) {
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, oops.Code("DISPATCH_CONNECT_FAILED").With("url", url).Wrap(err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, oops.Code("DISPATCH_CONNECT_FAILED").With("operation", "jetstream context").Wrap(err)
	}

	d := newNATSDispatcher(js, subject)
	d.conn = nc
	return d, nil
}

func newNATSDispatcher(js publisher, subject string) *NATSDispatcher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSDispatcher{
		js:      js,
		subject: subject,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Dispatch publishes the code and waits for the stream acknowledgement.
func (d *NATSDispatcher) Dispatch(ctx context.Context, email, code string) error {
	msg := CodeMessage{
		ID:       ulid.Make().String(),
		Email:    email,
		Code:     code,
		IssuedAt: d.now(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return oops.Code("DISPATCH_ENCODE_FAILED").Wrap(err)
	}

	m := nats.NewMsg(d.subject)
	m.Header.Set(nats.MsgIdHdr, msg.ID)
	m.Data = data

	if _, err := d.js.PublishMsg(m, nats.Context(ctx)); err != nil {
		return oops.Code("DISPATCH_PUBLISH_FAILED").
			With("subject", d.subject).
			With("email", email).
			Wrap(err)
	}
	return nil
}

// Close drains the connection. It is a no-op for dispatchers built without Connect.
func (d *NATSDispatcher) Close() error {
	if d == nil || d.conn == nil {
		return nil
	}
	if err := d.conn.Drain(); err != nil {
		d.conn.Close()
		return oops.Code("DISPATCH_CLOSE_FAILED").Wrap(err)
	}
	return nil
}

var _ auth.CodeDispatcher = (*NATSDispatcher)(nil)
