package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// VoteChangesChannel is the NOTIFY channel carrying a video id per vote
// mutation.
const VoteChangesChannel = "vote_changes"

// Listener opens LISTEN subscriptions on their own connections. A live
// subscription holds its connection for its whole lifetime, so it is never
// taken from the shared pool.
type Listener struct {
	databaseURL string
}

func NewListener(databaseURL string) *Listener {
	return &Listener{databaseURL: databaseURL}
}

// Subscribe connects and issues LISTEN on channel.
func (l *Listener) Subscribe(ctx context.Context, channel string) (*Subscription, error) {
	conn, err := pgx.Connect(ctx, l.databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect listener: %w", err)
	}

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize()); err != nil {
		_ = conn.Close(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("listen %s: %w", channel, err)
	}
	return &Subscription{conn: conn}, nil
}

// Subscription is one dedicated LISTEN connection.
type Subscription struct {
	conn *pgx.Conn
}

// Next blocks until a notification arrives and returns its payload.
func (s *Subscription) Next(ctx context.Context) (string, error) {
	n, err := s.conn.WaitForNotification(ctx)
	if err != nil {
		return "", err
	}
	return n.Payload, nil
}

func (s *Subscription) Close(ctx context.Context) error {
	return s.conn.Close(ctx)
}
