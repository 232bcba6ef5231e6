package commands

import (
	"context"
	"errors"
	"maps"
	"time"

	command "github.com/goliatone/go-command"

	"github.com/goliatone/go-ghostzola/internal/logging"
	"github.com/goliatone/go-ghostzola/pkg/interfaces"
)

const defaultHandlerTimeout = 30 * time.Second

// HandlerOption configures a Handler instance.
type HandlerOption[T command.Message] func(*Handler[T])

// Handler wraps command execution with shared concerns (validation, context, logging, error tagging).
type Handler[T command.Message] struct {
	exec      command.CommandFunc[T]
	logger    interfaces.Logger
	timeout   time.Duration
	operation string
	fields    func(T) map[string]any
	telemetry Telemetry[T]
	now       func() time.Time
}

// NewHandler creates a handler that satisfies go-command's Commander interface.
func NewHandler[T command.Message](fn command.CommandFunc[T], opts ...HandlerOption[T]) *Handler[T] {
	if fn == nil {
		panic("commands: handler function cannot be nil")
	}
	h := &Handler[T]{
		exec:    fn,
		logger:  logging.NoOp(),
		timeout: defaultHandlerTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Execute conforms to command.Commander[T].Execute and applies validation, context management,
// logging, and error categorisation before delegating to the wrapped function.
func (h *Handler[T]) Execute(ctx context.Context, msg T) error {
	if err := command.ValidateMessage(msg); err != nil {
		return wrapValidationError(err)
	}

	ctx = ensureContext(ctx)
	ctx, cancel := h.withTimeout(ctx)
	defer cancel()

	fields := map[string]any{
		"command": command.GetMessageType(msg),
	}
	if h.operation != "" {
		fields["operation"] = h.operation
	}
	if h.fields != nil {
		maps.Copy(fields, h.fields(msg))
	}
	logger := logging.WithFields(h.logger, fields)

	start := h.now()
	if err := ctx.Err(); err != nil {
		wrapped := wrapContextError(err)
		h.report(ctx, msg, logger, fields, start, wrapped, TelemetryStatusContextError)
		return wrapped
	}

	logger.Debug("command.execute.start")
	if err := h.exec(ctx, msg); err != nil {
		status := TelemetryStatusFailed
		if isContextError(err) {
			status = TelemetryStatusContextError
		}
		wrapped := wrapExecuteError(err)
		h.report(ctx, msg, logger, fields, start, wrapped, status)
		return wrapped
	}

	if err := ctx.Err(); err != nil {
		wrapped := wrapContextError(err)
		h.report(ctx, msg, logger, fields, start, wrapped, TelemetryStatusContextError)
		return wrapped
	}

	h.report(ctx, msg, logger, fields, start, nil, TelemetryStatusSuccess)
	return nil
}

func (h *Handler[T]) report(ctx context.Context, msg T, logger interfaces.Logger, fields map[string]any, start time.Time, err error, status TelemetryStatus) {
	if h.telemetry == nil {
		switch status {
		case TelemetryStatusSuccess:
			logger.Info("command.execute.success")
		case TelemetryStatusContextError:
			logger.Error("command.execute.context_error", "error", err)
		default:
			logger.Error("command.execute.failed", "error", err)
		}
		return
	}
	h.telemetry(ctx, msg, TelemetryInfo{
		Command:   command.GetMessageType(msg),
		Operation: h.operation,
		Fields:    fields,
		Duration:  h.now().Sub(start),
		Error:     err,
		Status:    status,
		Logger:    logger,
	})
}

// WithTimeout overrides the default execution timeout. Zero or negative disables it.
func WithTimeout[T command.Message](timeout time.Duration) HandlerOption[T] {
	return func(h *Handler[T]) {
		if timeout <= 0 {
			h.timeout = 0
			return
		}
		h.timeout = timeout
	}
}

// WithLogger injects the logger used during execution. Defaults to a no-op logger.
func WithLogger[T command.Message](logger interfaces.Logger) HandlerOption[T] {
	return func(h *Handler[T]) {
		if logger == nil {
			h.logger = logging.NoOp()
			return
		}
		h.logger = logger
	}
}

// WithOperation sets a human-friendly operation name emitted with every log entry.
func WithOperation[T command.Message](operation string) HandlerOption[T] {
	return func(h *Handler[T]) {
		h.operation = operation
	}
}

// WithMessageFields adds message-derived fields to every log entry.
func WithMessageFields[T command.Message](fn func(T) map[string]any) HandlerOption[T] {
	return func(h *Handler[T]) {
		h.fields = fn
	}
}

// WithTelemetry reports execution outcomes to fn instead of the inline logs.
func WithTelemetry[T command.Message](fn Telemetry[T]) HandlerOption[T] {
	return func(h *Handler[T]) {
		h.telemetry = fn
	}
}

func (h *Handler[T]) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, h.timeout)
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
