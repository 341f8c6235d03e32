package session

import "context"

// Accessor exposes the current user session to the protocol layer. The
// hosting layer owns session establishment; validation only needs the id.
type Accessor interface {
	// SessionID returns the session id for the authenticated subject, or
	// "" when the caller is anonymous.
	SessionID(ctx context.Context) (string, error)
}

type static struct {
	id string
}

var _ Accessor = static{}

// NewStaticAccessor returns an Accessor that always reports the given
// session id. An empty id models an anonymous caller.
func NewStaticAccessor(id string) Accessor {
	return static{id: id}
}

func (s static) SessionID(_ context.Context) (string, error) {
	return s.id, nil
}
