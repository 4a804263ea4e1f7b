// Package supabase implements the record, storage, and session ports
// against a Supabase project. All table and RPC calls go through a shared
// circuit breaker so a failing collaborator degrades fast instead of
// hanging every store.
package supabase

import (
	"context"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	supa "github.com/supabase-community/supabase-go"
	"go.uber.org/zap"

	pkgerrors "memorymap/pkg/errors"
)

// Client wraps the Supabase SDK with a circuit breaker and error mapping
type Client struct {
	sdk     *supa.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewClient connects to the Supabase project at the given URL
func NewClient(url, anonKey string, logger *zap.Logger) (*Client, error) {
	sdk, err := supa.NewClient(url, anonKey, nil)
	if err != nil {
		return nil, pkgerrors.NewInternalError("failed to create supabase client").WithCause(err)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "supabase",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Client{sdk: sdk, breaker: breaker, logger: logger}, nil
}

// execute runs a query through the breaker. The SDK does not thread a
// context into individual requests, so cancellation is checked up front.
func (c *Client) execute(ctx context.Context, op string, fn func() ([]byte, error)) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, pkgerrors.NewTransportError(op, err)
	}

	data, err := c.breaker.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return nil, mapError(op, err)
	}
	return data.([]byte), nil
}

// rpc calls a database function through the breaker. The SDK reports RPC
// transport failures as an empty result string.
func (c *Client) rpc(ctx context.Context, name string, body interface{}) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", pkgerrors.NewTransportError(name, err)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		res := c.sdk.Rpc(name, "", body)
		if res == "" {
			return nil, pkgerrors.NewTransportError(name, nil)
		}
		return res, nil
	})
	if err != nil {
		return "", mapError(name, err)
	}
	return result.(string), nil
}

// mapError classifies collaborator failures. Unique-constraint violations
// become conflicts; everything else is a transport error.
func mapError(op string, err error) error {
	if pkgerrors.IsAppError(err) {
		return err
	}
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return pkgerrors.NewTransportError(op, err)
	}
	msg := err.Error()
	if strings.Contains(msg, "23505") || strings.Contains(msg, "duplicate key") {
		return pkgerrors.NewConflictError("record already exists")
	}
	return pkgerrors.NewTransportError(op, err)
}
