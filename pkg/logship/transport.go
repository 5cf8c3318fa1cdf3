package logship

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Transport is the slice of the remote messaging API the engine consumes.
// Implementations are thin protocol adapters with the chat/topic routing
// fixed at construction; retry policy lives in the delivery cycle, not here.
type Transport interface {
	SendMessage(ctx context.Context, text string) (messageID int, err error)
	EditMessage(ctx context.Context, messageID int, text string) error
	SendDocument(ctx context.Context, name string, content []byte, caption string) (messageID int, err error)
}

// FloodError reports flood control from the remote service: the call was
// rejected and must not be repeated before Wait has elapsed.
type FloodError struct {
	Wait time.Duration
}

func (e *FloodError) Error() string {
	return fmt.Sprintf("flood control: retry after %s", e.Wait)
}

// RetryAfter returns the wait the remote service demanded.
func (e *FloodError) RetryAfter() time.Duration { return e.Wait }

// TransportError is any non-flood failure response from the remote API.
type TransportError struct {
	Code        int
	Description string
}

func (e *TransportError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("transport error: code=%d", e.Code)
	}
	return fmt.Sprintf("transport error: %s (code=%d)", e.Description, e.Code)
}

// Permanent reports whether retrying the exact same call is pointless
// (bad request, auth failure, missing message). Flood control is not
// permanent and is reported as FloodError, never through here.
func (e *TransportError) Permanent() bool {
	return e.Code >= 400 && e.Code < 500 && e.Code != 429
}

func isFlood(err error) (time.Duration, bool) {
	var fe *FloodError
	if errors.As(err, &fe) {
		return fe.Wait, true
	}
	return 0, false
}

func isPermanent(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Permanent()
}
