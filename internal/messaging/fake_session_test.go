package messaging

import (
	"context"

	"github.com/CauaCamp0s/Discord-Messaging-Service/internal/transport"
)

// fakeSession implements transport.Session with per-call hooks. Nil hooks
// fail the lookup with transport.ErrNotFound so tests only wire what they use.
type fakeSession struct {
	fetchUser    func(id string) (transport.User, error)
	fetchChannel func(id string) (transport.Channel, error)
	openDM       func(userID string) (transport.Channel, error)
	send         func(channelID, text string) error
	guilds       func() ([]transport.Guild, error)
	members      func(guildID string) ([]transport.Member, error)

	sent []sentMessage
}

type sentMessage struct {
	channelID string
	text      string
}

func (f *fakeSession) FetchUser(_ context.Context, id string) (transport.User, error) {
	if f.fetchUser == nil {
		return transport.User{}, transport.ErrNotFound
	}
	return f.fetchUser(id)
}

func (f *fakeSession) FetchChannel(_ context.Context, id string) (transport.Channel, error) {
	if f.fetchChannel == nil {
		return transport.Channel{}, transport.ErrNotFound
	}
	return f.fetchChannel(id)
}

func (f *fakeSession) OpenDM(_ context.Context, userID string) (transport.Channel, error) {
	if f.openDM == nil {
		return transport.Channel{ID: "dm-" + userID, Text: true}, nil
	}
	return f.openDM(userID)
}

func (f *fakeSession) Send(_ context.Context, channelID, text string) error {
	if f.send != nil {
		if err := f.send(channelID, text); err != nil {
			return err
		}
	}
	f.sent = append(f.sent, sentMessage{channelID: channelID, text: text})
	return nil
}

func (f *fakeSession) Guilds(_ context.Context) ([]transport.Guild, error) {
	if f.guilds == nil {
		return nil, nil
	}
	return f.guilds()
}

func (f *fakeSession) Members(_ context.Context, guildID string) ([]transport.Member, error) {
	if f.members == nil {
		return nil, nil
	}
	return f.members(guildID)
}

func member(id, name string) transport.Member {
	return transport.Member{User: transport.User{ID: id, Username: name}}
}
