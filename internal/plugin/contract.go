package plugin

import "context"

// Plugin is the capability-set the engine depends on, shared by every
// plugin type. Any of Initialize, ParseArguments, Execute, or Cleanup may
// fail (spec §4.3).
type Plugin interface {
	Info() Descriptor
	Initialize(ctx context.Context) error
	ParseArguments(ctx context.Context, args []string, cfg *Config) error
	Execute(ctx context.Context, args []string) error
	Cleanup(ctx context.Context) error
}

// Processing is the additional capability a plugin advertises dynamically
// by reporting Info().Type == TypeProcessing: it owns a receive loop over a
// Log consumer once activated (spec §4.3 step 4).
type Processing interface {
	Plugin
	StartConsuming(ctx context.Context, consumer *ConsumerHandle) error
	StopConsuming(ctx context.Context) error
}

// ConsumerHandle is the concrete handle passed to StartConsuming. It wraps
// *queue.Consumer without this package importing queue's concrete Message
// type into the plugin contract, keeping the seam narrow.
type ConsumerHandle struct {
	Label    string
	ReadOne  func() (payload string, messageType string, ok bool, err error)
	ReadN    func(n int) (payloads []string, err error)
}
