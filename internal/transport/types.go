package transport

import (
	"context"
	"errors"
)

// User is a messaging-backend account.
type User struct {
	ID       string
	Username string
}

// Channel is a delivery target. Text reports whether the channel can
// receive plain text messages (guild text channel, news channel, DM, thread).
type Channel struct {
	ID   string
	Text bool
}

// Guild is a community the bot participates in.
type Guild struct {
	ID   string
	Name string
}

// Member is a user's membership in a guild.
type Member struct {
	User User
}

// Sentinel errors adapters must map backend failures onto.
// Check with errors.Is(); anything else is an unclassified backend failure.
var (
	// ErrNotFound: the user or channel does not exist (or is invisible to the bot).
	ErrNotFound = errors.New("transport: not found")

	// ErrCannotDM: the user exists but refuses direct messages from the bot
	// (no shared guild and no prior contact, or an explicit block).
	ErrCannotDM = errors.New("transport: cannot send direct message to user")

	// ErrRateLimited: the backend is throttling the bot.
	ErrRateLimited = errors.New("transport: rate limited")

	// ErrMissingAccess: the call needs a privileged grant the bot does not
	// have (e.g. the server-members intent for member listing).
	ErrMissingAccess = errors.New("transport: missing privileged access")
)

// Session is the capability surface the messaging core needs from the
// backend connection. A single session is shared process-wide; readiness
// is tracked outside this interface.
type Session interface {
	// FetchUser looks up a user by numeric identifier.
	FetchUser(ctx context.Context, id string) (User, error)

	// FetchChannel looks up a channel by numeric identifier.
	FetchChannel(ctx context.Context, id string) (Channel, error)

	// OpenDM opens (or reuses) a direct-message channel with a user.
	OpenDM(ctx context.Context, userID string) (Channel, error)

	// Send delivers text to a channel.
	Send(ctx context.Context, channelID, text string) error

	// Guilds lists the communities the bot participates in.
	Guilds(ctx context.Context) ([]Guild, error)

	// Members lists all members of a guild. May fail with ErrMissingAccess
	// when the privileged member-listing grant is absent.
	Members(ctx context.Context, guildID string) ([]Member, error)
}
