package bridge

import "errors"

// Error classes of the drain loop's per-message branch, adapted from the
// teacher's recoverable-now/recoverable-later/terminal split. The drain
// loop checks these conditions inline and records a reason string; it
// does not return or compare against these values.
var (
	// ErrTransientDownstream covers network errors, timeouts, and non-2xx
	// validator/commit responses. The message is left un-acked so its
	// lease expires and it is redelivered.
	ErrTransientDownstream = errors.New("bridge: transient downstream failure")

	// ErrRetryExhausted means read_ct has exceeded the pool's max_retries
	// without a successful commit. Routes to the DLQ.
	ErrRetryExhausted = errors.New("bridge: retry budget exhausted")

	// ErrMalformedPayload means the payload failed basic shape validation
	// before any webhook call was attempted. Routes to the DLQ.
	ErrMalformedPayload = errors.New("bridge: malformed payload")

	// ErrPoolInactive means the pool's config has is_active=false. Routes
	// to the DLQ rather than leaving the message to retry forever.
	ErrPoolInactive = errors.New("bridge: pool inactive")
)
