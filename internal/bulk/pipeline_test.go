package bulk

import (
	"context"
	"testing"

	"github.com/CauaCamp0s/Discord-Messaging-Service/internal/messaging"
	"github.com/CauaCamp0s/Discord-Messaging-Service/pkg/logx"
)

// fakeSender fails references listed in fail and records every request.
type fakeSender struct {
	fail map[string]error
	got  []messaging.Request
}

func (f *fakeSender) Dispatch(_ context.Context, req messaging.Request) (messaging.Result, error) {
	f.got = append(f.got, req)
	ref := req.UserID
	if ref == "" {
		ref = req.DisplayName
	}
	if err, ok := f.fail[ref]; ok {
		return messaging.Result{}, err
	}
	return messaging.Result{DisplayName: ref, UserID: ref, Text: req.Text}, nil
}

func notFound(ref string) error {
	return &messaging.Error{Kind: messaging.KindNotFound, Detail: "user " + ref + " not found"}
}

func TestRunAllSucceed(t *testing.T) {
	t.Parallel()
	s := &fakeSender{}
	p := New(Config{}, s, logx.Nop())

	rep := p.Run(context.Background(), []string{"alice", "bob"}, "hi")
	if rep.Total != 2 || rep.Succeeded != 2 || rep.Failed != 0 || len(rep.Failures) != 0 {
		t.Fatalf("report = %+v", rep)
	}
}

func TestRunFailureDoesNotAbort(t *testing.T) {
	t.Parallel()
	s := &fakeSender{fail: map[string]error{"ghost": notFound("ghost")}}
	p := New(Config{}, s, logx.Nop())

	rep := p.Run(context.Background(), []string{"alice", "123456789012345678", "ghost"}, "hi")

	if rep.Total != 3 || rep.Succeeded != 2 || rep.Failed != 1 {
		t.Fatalf("report = %+v", rep)
	}
	if len(rep.Failures) != 1 || rep.Failures[0].Reference != "ghost" {
		t.Fatalf("failures = %+v", rep.Failures)
	}
	if rep.Failures[0].Detail != "user ghost not found" {
		t.Fatalf("detail = %q", rep.Failures[0].Detail)
	}
	// Every row was attempted despite the failure.
	if len(s.got) != 3 {
		t.Fatalf("attempted %d rows, want 3", len(s.got))
	}
}

func TestRunFailuresKeepRowOrder(t *testing.T) {
	t.Parallel()
	s := &fakeSender{fail: map[string]error{
		"ghost1": notFound("ghost1"),
		"ghost2": notFound("ghost2"),
	}}
	p := New(Config{}, s, logx.Nop())

	rep := p.Run(context.Background(), []string{"ghost2", "alice", "ghost1"}, "hi")
	if len(rep.Failures) != 2 {
		t.Fatalf("failures = %+v", rep.Failures)
	}
	if rep.Failures[0].Reference != "ghost2" || rep.Failures[1].Reference != "ghost1" {
		t.Fatalf("failure order = %+v", rep.Failures)
	}
}

func TestRunClassifiesReferences(t *testing.T) {
	t.Parallel()
	s := &fakeSender{}
	p := New(Config{}, s, logx.Nop())

	p.Run(context.Background(), []string{"alice", "123456789012345678"}, "hi")

	if len(s.got) != 2 {
		t.Fatalf("attempted %d rows", len(s.got))
	}
	if s.got[0].DisplayName != "alice" || s.got[0].UserID != "" {
		t.Fatalf("row 0 request = %+v", s.got[0])
	}
	if s.got[1].UserID != "123456789012345678" || s.got[1].DisplayName != "" {
		t.Fatalf("row 1 request = %+v", s.got[1])
	}
}

func TestRunSharesText(t *testing.T) {
	t.Parallel()
	s := &fakeSender{}
	p := New(Config{}, s, logx.Nop())

	p.Run(context.Background(), []string{"a", "b"}, "same for everyone")
	for i, req := range s.got {
		if req.Text != "same for everyone" {
			t.Fatalf("row %d text = %q", i, req.Text)
		}
	}
}

func TestRunCancellationPartialReport(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())

	s := &fakeSender{}
	p := New(Config{}, s, logx.Nop())

	// Cancel after the second dispatch via a wrapping sender.
	n := 0
	counting := senderFunc(func(c context.Context, req messaging.Request) (messaging.Result, error) {
		n++
		if n == 2 {
			cancel()
		}
		return s.Dispatch(c, req)
	})
	p.sender = counting

	rep := p.Run(ctx, []string{"a", "b", "c", "d"}, "hi")

	// Total reflects all parsed rows; counts only the attempted ones.
	if rep.Total != 4 {
		t.Fatalf("total = %d, want 4", rep.Total)
	}
	if got := rep.Succeeded + rep.Failed; got != 2 {
		t.Fatalf("attempted = %d, want 2", got)
	}
}

type senderFunc func(ctx context.Context, req messaging.Request) (messaging.Result, error)

func (f senderFunc) Dispatch(ctx context.Context, req messaging.Request) (messaging.Result, error) {
	return f(ctx, req)
}
