// Package commands registers the conversion command handlers with a host's
// command registry or dispatcher.
package commands

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-command/dispatcher"

	internalcommands "github.com/goliatone/go-ghostzola/internal/commands"
	convertcmd "github.com/goliatone/go-ghostzola/internal/commands/convert"
	"github.com/goliatone/go-ghostzola/internal/converter"
	"github.com/goliatone/go-ghostzola/pkg/interfaces"
)

// CommandRegistry records command handlers so hosts can expose them via CLI.
type CommandRegistry interface {
	RegisterCommand(handler any) error
}

// CommandDispatcher subscribes command handlers to a dispatcher implementation.
type CommandDispatcher interface {
	RegisterCommand(handler any) (CommandSubscription, error)
}

// CommandSubscription allows hosts to tear down dispatcher subscriptions.
type CommandSubscription interface {
	Unsubscribe()
}

// RegistrationOptions configures how handlers are registered during construction.
type RegistrationOptions struct {
	Registry       CommandRegistry
	Dispatcher     CommandDispatcher
	LoggerProvider interfaces.LoggerProvider
}

// RegistrationResult captures the constructed command handlers and any dispatcher subscriptions.
type RegistrationResult struct {
	Handlers      []any
	Subscriptions []CommandSubscription
}

// Unsubscribe tears down every dispatcher subscription.
func (r *RegistrationResult) Unsubscribe() {
	if r == nil {
		return
	}
	for _, sub := range r.Subscriptions {
		sub.Unsubscribe()
	}
	r.Subscriptions = nil
}

// RegisterConvertCommands builds the conversion handlers bound to service and
// optionally registers them with registry and dispatcher integrations.
func RegisterConvertCommands(service converter.Service, opts RegistrationOptions) (*RegistrationResult, error) {
	if service == nil {
		return &RegistrationResult{}, errors.New("conversion service is required")
	}

	result := &RegistrationResult{
		Handlers:      make([]any, 0, 2),
		Subscriptions: make([]CommandSubscription, 0, 2),
	}

	var errs error

	register := func(handler any) {
		result.Handlers = append(result.Handlers, handler)

		if opts.Registry != nil {
			if err := opts.Registry.RegisterCommand(handler); err != nil {
				errs = errors.Join(errs, err)
			}
		}

		if opts.Dispatcher != nil {
			subscription, err := opts.Dispatcher.RegisterCommand(handler)
			if err != nil {
				errs = errors.Join(errs, err)
			} else if subscription != nil {
				result.Subscriptions = append(result.Subscriptions, subscription)
			}
		}
	}

	logger := internalcommands.CommandLogger(opts.LoggerProvider, "convert")
	register(convertcmd.NewConvertArchiveHandler(service, logger))
	register(convertcmd.NewListPrefixesHandler(service, logger))

	return result, errs
}

// GlobalDispatcher subscribes conversion handlers to the go-command
// process-wide dispatcher.
type GlobalDispatcher struct{}

// RegisterCommand implements CommandDispatcher.
func (GlobalDispatcher) RegisterCommand(handler any) (CommandSubscription, error) {
	switch h := handler.(type) {
	case *convertcmd.ConvertArchiveHandler:
		return dispatcher.SubscribeCommand(h), nil
	case *convertcmd.ListPrefixesHandler:
		return dispatcher.SubscribeCommand(h), nil
	default:
		return nil, fmt.Errorf("commands: unsupported handler %T", handler)
	}
}
