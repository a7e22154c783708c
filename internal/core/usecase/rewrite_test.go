package usecase

import (
	"context"
	"errors"
	"testing"
)

type rewriterFake struct {
	calls  int
	result string
	err    error
}

func (f *rewriterFake) Rewrite(context.Context, string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.result, nil
}

func TestRewriteCachesResult(t *testing.T) {
	rewriter := &rewriterFake{result: "professional form"}
	svc := NewQueryRewriteService(rewriter, 10, nil, nil)

	first := svc.Rewrite(context.Background(), "casual question")
	second := svc.Rewrite(context.Background(), "casual question")

	if first != "professional form" || second != "professional form" {
		t.Fatalf("unexpected rewrites: %q, %q", first, second)
	}
	if rewriter.calls != 1 {
		t.Fatalf("expected one rewrite call for repeated query, got %d", rewriter.calls)
	}
}

func TestRewriteFallsBackToOriginalOnError(t *testing.T) {
	rewriter := &rewriterFake{err: errors.New("service unavailable")}
	svc := NewQueryRewriteService(rewriter, 10, nil, nil)

	got := svc.Rewrite(context.Background(), "raw query")
	if got != "raw query" {
		t.Fatalf("expected passthrough on rewrite failure, got %q", got)
	}

	// The passthrough result is cached: the flapping service is not retried.
	svc.Rewrite(context.Background(), "raw query")
	if rewriter.calls != 1 {
		t.Fatalf("expected single rewrite attempt, got %d", rewriter.calls)
	}
}

func TestRewriteDistinctQueriesMissIndependently(t *testing.T) {
	rewriter := &rewriterFake{result: "rewritten"}
	svc := NewQueryRewriteService(rewriter, 2, nil, nil)

	svc.Rewrite(context.Background(), "q1")
	svc.Rewrite(context.Background(), "q2")
	svc.Rewrite(context.Background(), "q3") // evicts q1

	svc.Rewrite(context.Background(), "q1")
	if rewriter.calls != 4 {
		t.Fatalf("expected evicted query to trigger a fresh rewrite, got %d calls", rewriter.calls)
	}
}
