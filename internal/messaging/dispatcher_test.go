package messaging

import (
	"context"
	"errors"
	"testing"

	"github.com/CauaCamp0s/Discord-Messaging-Service/internal/transport"
	"github.com/CauaCamp0s/Discord-Messaging-Service/pkg/logx"
)

func readyGate() *Gate {
	g := NewGate()
	g.Connecting()
	g.Ready()
	return g
}

func newTestDispatcher(tr *fakeSession, g *Gate) *Dispatcher {
	return NewDispatcher(g, NewResolver(tr, logx.Nop()), tr, logx.Nop())
}

func TestDispatchValidation(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(&fakeSession{}, readyGate())

	tests := []struct {
		name string
		req  Request
	}{
		{"no recipient", Request{Text: "hi"}},
		{"two recipients", Request{UserID: "123456789012345678", DisplayName: "alice", Text: "hi"}},
		{"empty text", Request{UserID: "123456789012345678"}},
		{"blank text", Request{UserID: "123456789012345678", Text: "  "}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Dispatch(context.Background(), tt.req)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("err = %v, want ErrInvalidRequest", err)
			}
		})
	}
}

func TestDispatchGateFaultPropagates(t *testing.T) {
	t.Parallel()
	g := NewGate()
	g.Fault(errors.New("no session"))
	d := newTestDispatcher(&fakeSession{}, g)

	_, err := d.Dispatch(context.Background(), Request{UserID: "123456789012345678", Text: "hi"})
	if KindOf(err) != KindConnectionFault {
		t.Fatalf("kind = %s, want %s", KindOf(err), KindConnectionFault)
	}
}

func TestDispatchDMByID(t *testing.T) {
	t.Parallel()
	tr := &fakeSession{
		fetchUser: func(id string) (transport.User, error) {
			return transport.User{ID: id, Username: "alice"}, nil
		},
	}
	d := newTestDispatcher(tr, readyGate())

	res, err := d.Dispatch(context.Background(), Request{UserID: "123456789012345678", Text: "hello"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	// The caller supplied only the id; the result must fill in both.
	if res.DisplayName != "alice" || res.UserID != "123456789012345678" {
		t.Fatalf("result %+v missing resolved identity", res)
	}
	if len(tr.sent) != 1 || tr.sent[0].channelID != "dm-123456789012345678" || tr.sent[0].text != "hello" {
		t.Fatalf("unexpected sends: %+v", tr.sent)
	}
}

func TestDispatchDMByName(t *testing.T) {
	t.Parallel()
	tr := &fakeSession{
		guilds: func() ([]transport.Guild, error) {
			return []transport.Guild{{ID: "1"}}, nil
		},
		members: func(string) ([]transport.Member, error) {
			return []transport.Member{member("99", "alice")}, nil
		},
	}
	d := newTestDispatcher(tr, readyGate())

	res, err := d.Dispatch(context.Background(), Request{DisplayName: "Alice", Text: "hello"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.UserID != "99" || res.DisplayName != "alice" {
		t.Fatalf("result %+v missing resolved identity", res)
	}
}

func TestDispatchChannel(t *testing.T) {
	t.Parallel()
	tr := &fakeSession{
		fetchChannel: func(id string) (transport.Channel, error) {
			return transport.Channel{ID: id, Text: true}, nil
		},
	}
	d := newTestDispatcher(tr, readyGate())

	res, err := d.Dispatch(context.Background(), Request{ChannelID: "555555555555555555", Text: "announce"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.Text != "announce" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(tr.sent) != 1 || tr.sent[0].channelID != "555555555555555555" {
		t.Fatalf("unexpected sends: %+v", tr.sent)
	}
}

func TestDispatchNonTextChannel(t *testing.T) {
	t.Parallel()
	tr := &fakeSession{
		fetchChannel: func(id string) (transport.Channel, error) {
			return transport.Channel{ID: id, Text: false}, nil
		},
	}
	d := newTestDispatcher(tr, readyGate())

	_, err := d.Dispatch(context.Background(), Request{ChannelID: "555555555555555555", Text: "announce"})
	if KindOf(err) != KindInvalidTarget {
		t.Fatalf("kind = %s, want %s", KindOf(err), KindInvalidTarget)
	}
	// InvalidTarget must not produce a send side effect.
	if len(tr.sent) != 0 {
		t.Fatalf("message was sent to a non-text channel: %+v", tr.sent)
	}
}

func TestDispatchErrorClassification(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		sendErr error
		want    Kind
	}{
		{"dm refused", transport.ErrCannotDM, KindUnreachable},
		{"throttled", transport.ErrRateLimited, KindRateLimited},
		{"channel vanished", transport.ErrNotFound, KindNotFound},
		{"unknown", errors.New("500 from backend"), KindTransport},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			tr := &fakeSession{
				fetchUser: func(id string) (transport.User, error) {
					return transport.User{ID: id, Username: "alice"}, nil
				},
				send: func(_, _ string) error { return tt.sendErr },
			}
			d := newTestDispatcher(tr, readyGate())

			_, err := d.Dispatch(context.Background(), Request{UserID: "123456789012345678", Text: "hi"})
			if KindOf(err) != tt.want {
				t.Fatalf("kind = %s, want %s", KindOf(err), tt.want)
			}
		})
	}
}

func TestDispatchLookupUnavailablePropagates(t *testing.T) {
	t.Parallel()
	tr := &fakeSession{
		guilds: func() ([]transport.Guild, error) {
			return []transport.Guild{{ID: "1"}}, nil
		},
		members: func(string) ([]transport.Member, error) {
			return nil, transport.ErrMissingAccess
		},
	}
	d := newTestDispatcher(tr, readyGate())

	_, err := d.Dispatch(context.Background(), Request{DisplayName: "alice", Text: "hi"})
	if KindOf(err) != KindLookupUnavailable {
		t.Fatalf("kind = %s, want %s", KindOf(err), KindLookupUnavailable)
	}
}
