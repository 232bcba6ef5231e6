package commands_test

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"

	convertcmd "github.com/goliatone/go-ghostzola/internal/commands/convert"
	"github.com/goliatone/go-ghostzola/internal/converter"
)

type flakyConverter struct {
	failures int
	attempts int
}

func (f *flakyConverter) Convert(_ context.Context, req converter.ConvertRequest) (*converter.Report, error) {
	f.attempts++
	if f.attempts <= f.failures {
		return nil, errors.New("archive temporarily unavailable")
	}
	return &converter.Report{Posts: 1}, nil
}

func (f *flakyConverter) ListPrefixes(context.Context, string) ([]string, error) {
	return nil, nil
}

func TestDispatcherRetriesConversionUntilSuccess(t *testing.T) {
	svc := &flakyConverter{failures: 1}
	handler := convertcmd.NewConvertArchiveHandler(svc, nil)

	sub := dispatcher.SubscribeCommand(handler, runner.WithMaxRetries(1))
	t.Cleanup(sub.Unsubscribe)

	var posts int
	err := dispatcher.Dispatch(context.Background(), convertcmd.ConvertArchiveCommand{
		ArchivePath: "blog.tar",
		ExtractPath: "content",
		ResultCallback: func(env convertcmd.ResultEnvelope) {
			posts = env.Report.Posts
		},
	})
	if err != nil {
		t.Fatalf("dispatch: expected success after retry, got %v", err)
	}
	if svc.attempts != 2 {
		t.Fatalf("expected 2 attempts (initial + retry), got %d", svc.attempts)
	}
	if posts != 1 {
		t.Fatalf("expected the retried report, got %d posts", posts)
	}
}

func TestDispatcherRetryExhaustionPropagatesError(t *testing.T) {
	svc := &flakyConverter{failures: 10}
	handler := convertcmd.NewListPrefixesHandler(&prefixFailer{}, nil)
	convert := convertcmd.NewConvertArchiveHandler(svc, nil)

	convertSub := dispatcher.SubscribeCommand(convert, runner.WithMaxRetries(2))
	t.Cleanup(convertSub.Unsubscribe)
	listSub := dispatcher.SubscribeCommand(handler)
	t.Cleanup(listSub.Unsubscribe)

	err := dispatcher.Dispatch(context.Background(), convertcmd.ConvertArchiveCommand{
		ArchivePath: "blog.tar",
		ExtractPath: "content",
	})
	if err == nil {
		t.Fatal("expected dispatcher to return error after exhausting retries")
	}
	if svc.attempts != 3 {
		t.Fatalf("expected 3 attempts (initial + 2 retries), got %d", svc.attempts)
	}

	if err := dispatcher.Dispatch(context.Background(), convertcmd.ListPrefixesCommand{ArchivePath: "blog.tar"}); err == nil {
		t.Fatal("expected listing error to propagate")
	}
}

type prefixFailer struct{}

func (prefixFailer) Convert(context.Context, converter.ConvertRequest) (*converter.Report, error) {
	return nil, errors.New("unused")
}

func (prefixFailer) ListPrefixes(context.Context, string) ([]string, error) {
	return nil, errors.New("cannot open archive")
}
