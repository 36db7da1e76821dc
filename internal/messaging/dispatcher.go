package messaging

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/CauaCamp0s/Discord-Messaging-Service/internal/transport"
	"github.com/CauaCamp0s/Discord-Messaging-Service/pkg/logx"
)

// ErrInvalidRequest reports a request that violates the SendRequest shape
// (no recipient, more than one recipient, or empty text).
var ErrInvalidRequest = errors.New("exactly one of display name, user id or channel id is required, plus a non-empty message")

// Request is one pending delivery. Exactly one recipient field must be set.
type Request struct {
	DisplayName string
	UserID      string
	ChannelID   string
	Text        string
}

// Result reports a successful delivery. For user targets both DisplayName
// and UserID are filled in even when the caller supplied only one of them;
// the caller side needs both for display and history.
type Result struct {
	DisplayName string
	UserID      string
	Text        string
}

// Dispatcher delivers one private or channel message per call.
//
// Dispatch is not idempotent: repeated calls send repeated messages.
// Deduplication is a caller concern.
type Dispatcher struct {
	gate     *Gate
	resolver *Resolver
	tr       transport.Session
	log      logx.Logger
}

func NewDispatcher(gate *Gate, resolver *Resolver, tr transport.Session, log logx.Logger) *Dispatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Dispatcher{gate: gate, resolver: resolver, tr: tr, log: log}
}

func (req *Request) normalize() error {
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	req.UserID = strings.TrimSpace(req.UserID)
	req.ChannelID = strings.TrimSpace(req.ChannelID)

	set := 0
	for _, v := range []string{req.DisplayName, req.UserID, req.ChannelID} {
		if v != "" {
			set++
		}
	}
	if set != 1 || strings.TrimSpace(req.Text) == "" {
		return ErrInvalidRequest
	}
	return nil
}

// Dispatch waits for the connection, resolves the target and delivers the
// text. Failures come back as *Error with a Kind from the closed taxonomy.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (Result, error) {
	if err := req.normalize(); err != nil {
		return Result{}, err
	}
	if err := d.gate.AwaitReady(ctx); err != nil {
		return Result{}, err
	}

	start := time.Now()
	if req.ChannelID != "" {
		if err := d.sendToChannel(ctx, req.ChannelID, req.Text); err != nil {
			return Result{}, err
		}
		d.log.Info("message sent to channel",
			logx.String("channel", req.ChannelID),
			logx.Duration("took", time.Since(start)))
		return Result{Text: req.Text}, nil
	}

	var (
		user transport.User
		err  error
	)
	if req.UserID != "" {
		user, err = d.resolver.ResolveID(ctx, req.UserID)
	} else {
		user, err = d.resolver.ResolveName(ctx, req.DisplayName)
	}
	if err != nil {
		return Result{}, err
	}

	if err := d.sendDM(ctx, user, req.Text); err != nil {
		return Result{}, err
	}
	d.log.Info("message sent to user",
		logx.String("user", user.Username),
		logx.String("user_id", user.ID),
		logx.Duration("took", time.Since(start)))
	return Result{DisplayName: user.Username, UserID: user.ID, Text: req.Text}, nil
}

func (d *Dispatcher) sendToChannel(ctx context.Context, channelID, text string) error {
	ch, err := d.tr.FetchChannel(ctx, channelID)
	if err != nil {
		if errors.Is(err, transport.ErrNotFound) {
			return newError(KindNotFound, err, "channel %q not found", channelID)
		}
		return classifyTransport(err, "looking up channel %q", channelID)
	}
	if !ch.Text {
		return newError(KindInvalidTarget, nil, "channel %q is not a text channel", channelID)
	}
	if err := d.tr.Send(ctx, ch.ID, text); err != nil {
		return d.classifySend(err, "channel "+channelID)
	}
	return nil
}

func (d *Dispatcher) sendDM(ctx context.Context, user transport.User, text string) error {
	ch, err := d.tr.OpenDM(ctx, user.ID)
	if err != nil {
		return d.classifySend(err, "user "+user.Username)
	}
	if err := d.tr.Send(ctx, ch.ID, text); err != nil {
		return d.classifySend(err, "user "+user.Username)
	}
	return nil
}

// classifySend maps delivery failures onto the taxonomy. The Unreachable
// detail carries remediation guidance because the condition is almost always
// a Discord privacy setting, not a bug.
func (d *Dispatcher) classifySend(err error, target string) *Error {
	switch {
	case errors.Is(err, transport.ErrCannotDM):
		return newError(KindUnreachable, err,
			"%s does not accept direct messages from the bot; share a community with the bot or have the recipient message it first", target)
	case errors.Is(err, transport.ErrRateLimited):
		return newError(KindRateLimited, err, "backend is throttling requests; retry later")
	case errors.Is(err, transport.ErrNotFound):
		return newError(KindNotFound, err, "%s not found", target)
	default:
		return newError(KindTransport, err, "sending to %s failed", target)
	}
}
