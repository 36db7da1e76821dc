// Package discord adapts a discordgo gateway session to the transport
// capability surface the messaging core consumes.
package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/CauaCamp0s/Discord-Messaging-Service/internal/transport"
	"github.com/CauaCamp0s/Discord-Messaging-Service/pkg/logx"
)

const memberPageSize = 1000

type Config struct {
	Token string

	// OnReady fires once per gateway session when the handshake completes.
	OnReady func()
	// OnFault fires when the session hits a fatal transport error.
	OnFault func(error)
}

type Adapter struct {
	cfg Config
	log logx.Logger

	session *discordgo.Session

	runMu   sync.Mutex
	running bool
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("discord token is empty")
	}
	s, err := discordgo.New("Bot " + strings.TrimSpace(cfg.Token))
	if err != nil {
		return nil, err
	}

	// GuildMembers is privileged; without it, display-name lookups degrade
	// to the "use the numeric id" error path instead of failing the login.
	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsDirectMessages

	if log.IsZero() {
		log = logx.Nop()
	}
	a := &Adapter{cfg: cfg, log: log, session: s}
	a.registerHandlers()
	return a, nil
}

func (a *Adapter) registerHandlers() {
	a.session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		tag := ""
		if r.User != nil {
			tag = r.User.Username
		}
		a.log.Info("gateway session ready", logx.String("bot", tag))
		if a.cfg.OnReady != nil {
			a.cfg.OnReady()
		}
	})
	a.session.AddHandler(func(_ *discordgo.Session, d *discordgo.Disconnect) {
		// discordgo reconnects on its own; readiness is not torn down here.
		a.log.Warn("gateway disconnected; reconnecting")
	})
}

// Start opens the gateway session. The login handshake completes
// asynchronously; OnReady signals completion.
func (a *Adapter) Start(ctx context.Context) error {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	if a.running {
		return nil
	}
	if err := a.session.Open(); err != nil {
		err = fmt.Errorf("discord login: %w", err)
		if a.cfg.OnFault != nil {
			a.cfg.OnFault(err)
		}
		return err
	}
	a.running = true
	return nil
}

func (a *Adapter) Stop(ctx context.Context) error {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	if !a.running {
		return nil
	}
	a.running = false
	return a.session.Close()
}

// ---- transport.Session ----

func (a *Adapter) FetchUser(ctx context.Context, id string) (transport.User, error) {
	u, err := a.session.User(id, discordgo.WithContext(ctx))
	if err != nil {
		return transport.User{}, classify(err)
	}
	return transport.User{ID: u.ID, Username: u.Username}, nil
}

func (a *Adapter) FetchChannel(ctx context.Context, id string) (transport.Channel, error) {
	ch, err := a.session.Channel(id, discordgo.WithContext(ctx))
	if err != nil {
		return transport.Channel{}, classify(err)
	}
	return transport.Channel{ID: ch.ID, Text: textCapable(ch.Type)}, nil
}

func (a *Adapter) OpenDM(ctx context.Context, userID string) (transport.Channel, error) {
	ch, err := a.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return transport.Channel{}, classify(err)
	}
	return transport.Channel{ID: ch.ID, Text: true}, nil
}

func (a *Adapter) Send(ctx context.Context, channelID, text string) error {
	_, err := a.session.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx))
	if err != nil {
		return classify(err)
	}
	return nil
}

// Guilds reads the gateway state cache, which the Guilds intent keeps
// populated for the lifetime of the session.
func (a *Adapter) Guilds(ctx context.Context) ([]transport.Guild, error) {
	st := a.session.State
	st.RLock()
	out := make([]transport.Guild, 0, len(st.Guilds))
	for _, g := range st.Guilds {
		out = append(out, transport.Guild{ID: g.ID, Name: g.Name})
	}
	st.RUnlock()
	return out, nil
}

func (a *Adapter) Members(ctx context.Context, guildID string) ([]transport.Member, error) {
	var (
		out   []transport.Member
		after string
	)
	for {
		page, err := a.session.GuildMembers(guildID, after, memberPageSize, discordgo.WithContext(ctx))
		if err != nil {
			return nil, classify(err)
		}
		for _, m := range page {
			if m.User == nil {
				continue
			}
			out = append(out, transport.Member{User: transport.User{ID: m.User.ID, Username: m.User.Username}})
		}
		if len(page) < memberPageSize {
			return out, nil
		}
		after = page[len(page)-1].User.ID
	}
}

// classify maps discordgo errors onto the transport sentinels, keeping the
// original error in the chain for diagnostics.
func classify(err error) error {
	var rl *discordgo.RateLimitError
	if errors.As(err, &rl) {
		return fmt.Errorf("%w: %v", transport.ErrRateLimited, err)
	}

	var rest *discordgo.RESTError
	if errors.As(err, &rest) {
		if rest.Message != nil {
			switch rest.Message.Code {
			case discordgo.ErrCodeUnknownUser,
				discordgo.ErrCodeUnknownChannel,
				discordgo.ErrCodeUnknownMember:
				return fmt.Errorf("%w: %v", transport.ErrNotFound, err)
			case discordgo.ErrCodeCannotSendMessagesToThisUser:
				return fmt.Errorf("%w: %v", transport.ErrCannotDM, err)
			case discordgo.ErrCodeMissingAccess, discordgo.ErrCodeMissingPermissions:
				return fmt.Errorf("%w: %v", transport.ErrMissingAccess, err)
			}
		}
		if rest.Response != nil {
			switch rest.Response.StatusCode {
			case http.StatusNotFound:
				return fmt.Errorf("%w: %v", transport.ErrNotFound, err)
			case http.StatusForbidden:
				return fmt.Errorf("%w: %v", transport.ErrMissingAccess, err)
			case http.StatusTooManyRequests:
				return fmt.Errorf("%w: %v", transport.ErrRateLimited, err)
			}
		}
	}
	return err
}

func textCapable(t discordgo.ChannelType) bool {
	switch t {
	case discordgo.ChannelTypeGuildText,
		discordgo.ChannelTypeDM,
		discordgo.ChannelTypeGroupDM,
		discordgo.ChannelTypeGuildNews,
		discordgo.ChannelTypeGuildNewsThread,
		discordgo.ChannelTypeGuildPublicThread,
		discordgo.ChannelTypeGuildPrivateThread:
		return true
	}
	return false
}
