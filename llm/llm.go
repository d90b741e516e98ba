package llm

import (
	"context"

	"github.com/sweetpotato0/ragrouter/message"
)

// Client defines the interface for inference backends. Implementations live
// under contrib/provider and must honour context deadlines: a timed-out call
// returns the context error so callers can treat it as a backend failure.
type Client interface {
	// Generate produces an assistant message for the given conversation.
	Generate(ctx context.Context, messages []*message.Message) (*message.Message, error)

	// SetTemperature updates the temperature setting for generation
	SetTemperature(temp float64)

	// SetMaxTokens updates the maximum tokens limit for generation
	SetMaxTokens(max int64)

	// SetModel updates the model to use for generation
	SetModel(model string)
}
