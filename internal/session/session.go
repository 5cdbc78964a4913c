package session

import (
	"errors"
	"time"

	"github.com/Illuminatus66/byqr/internal/model"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrValidation         = errors.New("validation failed")
	ErrNoSession          = errors.New("not signed in")
	ErrAlreadySignedIn    = errors.New("already signed in")
	ErrBusy               = errors.New("another session operation is in flight")
	ErrSessionEnded       = errors.New("session ended while the request was in flight")
)

const DefaultTTL = 24 * time.Hour

type State int

const (
	Anonymous State = iota
	Authenticating
	Authenticated
	Expired
	LoggedOut
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case Expired:
		return "expired"
	case LoggedOut:
		return "logged_out"
	default:
		return "unknown"
	}
}

// Session is the authenticated identity. Profile is set iff Token is.
type Session struct {
	Token    string
	Profile  *model.Profile
	IssuedAt time.Time
	CartNo   string
}

func (s Session) UserID() string {
	if s.Profile == nil {
		return ""
	}
	return s.Profile.ID
}

func (s *Session) clone() Session {
	out := *s
	if s.Profile != nil {
		p := *s.Profile
		p.Addresses = append([]string(nil), s.Profile.Addresses...)
		out.Profile = &p
	}
	return out
}

// Status is the (value, loading, error) view of the manager.
type Status struct {
	State   State
	Session *Session
	Loading bool
	Err     error
	// LastEnd is Expired or LoggedOut after a cascading clear, Anonymous otherwise.
	LastEnd State
}

// record is the durable {token, user} profile entry.
type record struct {
	Token  string        `json:"token"`
	User   model.Profile `json:"user"`
	CartNo string        `json:"cart_no"`
}
