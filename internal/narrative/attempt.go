package narrative

import (
	"context"
	"errors"
	"net"

	"github.com/sashabaranov/go-openai"

	"github.com/ZanzyTHEbar/batchmind/internal/resilience"
)

// FailureKind classifies why a text generation attempt did not produce text
type FailureKind string

const (
	FailureNone        FailureKind = ""
	FailureTimeout     FailureKind = "timeout"
	FailureNetwork     FailureKind = "network"
	FailureRejected    FailureKind = "rejected"
	FailureMalformed   FailureKind = "malformed"
	FailureUnavailable FailureKind = "unavailable"
)

// ErrMalformedResponse is returned by clients for empty or unusable replies
var ErrMalformedResponse = errors.New("malformed text generation response")

// Attempt is the resolved outcome of one text generation call
type Attempt struct {
	Text    string
	Failure FailureKind
	Err     error
}

func (a Attempt) OK() bool { return a.Failure == FailureNone }

func succeeded(text string) Attempt { return Attempt{Text: text} }

func failed(err error) Attempt { return Attempt{Failure: Classify(err), Err: err} }

// Classify maps a client error to a FailureKind
func Classify(err error) FailureKind {
	var (
		apiErr *openai.APIError
		reqErr *openai.RequestError
		netErr net.Error
	)

	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return FailureTimeout
	case errors.Is(err, resilience.ErrCircuitOpen):
		return FailureUnavailable
	case errors.Is(err, ErrMalformedResponse):
		return FailureMalformed
	case errors.As(err, &apiErr):
		return FailureRejected
	case errors.As(err, &reqErr):
		return FailureRejected
	case errors.As(err, &netErr) && netErr.Timeout():
		return FailureTimeout
	default:
		return FailureNetwork
	}
}
