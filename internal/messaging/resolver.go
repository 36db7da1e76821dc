package messaging

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"

	"github.com/CauaCamp0s/Discord-Messaging-Service/internal/transport"
	"github.com/CauaCamp0s/Discord-Messaging-Service/pkg/logx"
)

// Snowflake identifiers are 17-19 decimal digits.
var idPattern = regexp.MustCompile(`^\d{17,19}$`)

// RefKind classifies a raw recipient reference.
type RefKind int

const (
	RefIdentifier RefKind = iota
	RefDisplayName
)

// Classify trims a reference and reports whether it is a numeric identifier
// or a display name.
func Classify(ref string) RefKind {
	if idPattern.MatchString(strings.TrimSpace(ref)) {
		return RefIdentifier
	}
	return RefDisplayName
}

// Resolver turns recipient references into concrete users.
//
// Identifier references are a single user fetch. Display names are searched
// across every guild the bot participates in, case-insensitively; guilds are
// scanned in ID order so a name present in several guilds resolves the same
// way on every run, and the first match wins.
type Resolver struct {
	tr  transport.Session
	log logx.Logger
}

func NewResolver(tr transport.Session, log logx.Logger) *Resolver {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Resolver{tr: tr, log: log}
}

// ResolveID fetches the user behind a numeric identifier.
func (r *Resolver) ResolveID(ctx context.Context, id string) (transport.User, error) {
	id = strings.TrimSpace(id)
	u, err := r.tr.FetchUser(ctx, id)
	if err != nil {
		if errors.Is(err, transport.ErrNotFound) {
			return transport.User{}, newError(KindNotFound, err, "user with id %q not found", id)
		}
		return transport.User{}, classifyTransport(err, "looking up user id %q", id)
	}
	return u, nil
}

// ResolveName finds a user by display name via a guild-by-guild member scan.
//
// The scan requires the privileged member-listing grant; when the backend
// denies it everywhere, the failure is KindLookupUnavailable (not
// KindNotFound) so callers can suggest switching to the identifier form.
func (r *Resolver) ResolveName(ctx context.Context, name string) (transport.User, error) {
	needle := strings.ToLower(strings.TrimSpace(name))

	guilds, err := r.tr.Guilds(ctx)
	if err != nil {
		return transport.User{}, classifyTransport(err, "listing communities")
	}
	sort.Slice(guilds, func(i, j int) bool { return guilds[i].ID < guilds[j].ID })

	denied := false
	for _, g := range guilds {
		members, err := r.tr.Members(ctx, g.ID)
		if err != nil {
			if errors.Is(err, transport.ErrMissingAccess) {
				r.log.Warn("cannot list members; server-members grant missing",
					logx.String("guild", g.Name))
				denied = true
				continue
			}
			return transport.User{}, classifyTransport(err, "listing members of %q", g.Name)
		}
		for _, m := range members {
			if strings.ToLower(m.User.Username) == needle {
				return m.User, nil
			}
		}
	}

	if denied {
		return transport.User{}, newError(KindLookupUnavailable, nil,
			"display-name lookup requires the server-members privileged grant on the bot; enable it or address the recipient by numeric id")
	}
	return transport.User{}, newError(KindNotFound, nil, "user %q not found in any known community", strings.TrimSpace(name))
}

// Resolve classifies ref and dispatches to the matching lookup.
func (r *Resolver) Resolve(ctx context.Context, ref string) (transport.User, error) {
	if Classify(ref) == RefIdentifier {
		return r.ResolveID(ctx, ref)
	}
	return r.ResolveName(ctx, ref)
}

// classifyTransport folds remaining transport sentinels into the taxonomy.
func classifyTransport(err error, format string, args ...any) *Error {
	switch {
	case errors.Is(err, transport.ErrRateLimited):
		return newError(KindRateLimited, err, "backend is throttling requests; retry later")
	case errors.Is(err, transport.ErrMissingAccess):
		return newError(KindLookupUnavailable, err,
			"display-name lookup requires the server-members privileged grant on the bot; enable it or address the recipient by numeric id")
	default:
		return newError(KindTransport, err, format, args...)
	}
}
