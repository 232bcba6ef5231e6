package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-ghostzola/internal/errs"
)

type testMessage struct{}

func (testMessage) Type() string { return "ghostzola.test.message" }

func (testMessage) Validate() error { return nil }

type invalidMessage struct{}

func (invalidMessage) Type() string { return "ghostzola.test.invalid" }

func (invalidMessage) Validate() error {
	return validationError()
}

func validationError() error {
	return errors.New("invalid")
}

func TestHandlerExecuteSuccess(t *testing.T) {
	called := false
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		called = true
		return nil
	})

	if err := h.Execute(context.Background(), testMessage{}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !called {
		t.Fatal("expected handler to be invoked")
	}
}

func TestHandlerValidationShortCircuitsExecution(t *testing.T) {
	called := false
	h := NewHandler[invalidMessage](func(ctx context.Context, msg invalidMessage) error {
		called = true
		return nil
	})

	err := h.Execute(context.Background(), invalidMessage{})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryValidation) {
		t.Fatalf("expected validation category, got %v", err)
	}
	if called {
		t.Fatal("expected handler not to run when validation fails")
	}
}

func TestHandlerContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		called = true
		return nil
	})

	err := h.Execute(ctx, testMessage{})
	if err == nil {
		t.Fatal("expected context cancellation error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category, got %v", err)
	}
	if called {
		t.Fatal("expected handler not to run when context is cancelled")
	}
}

func TestHandlerWrapsExecutionError(t *testing.T) {
	execErr := errors.New("boom")
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		return execErr
	})

	err := h.Execute(context.Background(), testMessage{})
	if err == nil {
		t.Fatal("expected wrapped execution error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category, got %v", err)
	}
	if !goerrors.HasCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category to propagate, got %v", err)
	}
}

func TestHandlerHonoursTimeoutOption(t *testing.T) {
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(20 * time.Millisecond):
			return nil
		}
	}, WithTimeout[testMessage](10*time.Millisecond))

	err := h.Execute(context.Background(), testMessage{})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category for timeout, got %v", err)
	}
}

func TestHandlerPreservesTaxonomyErrors(t *testing.T) {
	execErr := errs.New(errs.ErrBlogNotFound, "no ghost database found in archive", nil, nil)
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		return execErr
	})

	err := h.Execute(context.Background(), testMessage{})
	if !errors.Is(err, errs.ErrBlogNotFound) {
		t.Fatalf("expected taxonomy error to pass through, got %v", err)
	}
	if !goerrors.IsCategory(err, goerrors.CategoryNotFound) {
		t.Fatalf("expected not found category, got %v", err)
	}
}

func TestHandlerTelemetryReceivesOutcome(t *testing.T) {
	var infos []TelemetryInfo
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		return nil
	},
		WithOperation[testMessage]("test.run"),
		WithMessageFields(func(testMessage) map[string]any {
			return map[string]any{"archive": "blog.tar"}
		}),
		WithTelemetry(func(_ context.Context, _ testMessage, info TelemetryInfo) {
			infos = append(infos, info)
		}),
	)

	if err := h.Execute(context.Background(), testMessage{}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("expected one telemetry call, got %d", len(infos))
	}
	info := infos[0]
	if info.Status != TelemetryStatusSuccess || info.Operation != "test.run" || info.Command != "ghostzola.test.message" {
		t.Fatalf("unexpected telemetry %+v", info)
	}
	if info.Fields["archive"] != "blog.tar" || info.Fields["operation"] != "test.run" {
		t.Fatalf("unexpected fields %v", info.Fields)
	}
}

func TestHandlerTelemetryMarksContextErrors(t *testing.T) {
	var status TelemetryStatus
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		return context.Canceled
	}, WithTelemetry(func(_ context.Context, _ testMessage, info TelemetryInfo) {
		status = info.Status
	}))

	err := h.Execute(context.Background(), testMessage{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if status != TelemetryStatusContextError {
		t.Fatalf("status = %q", status)
	}
}
