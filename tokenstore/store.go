package tokenstore

import (
	"context"
	"errors"

	"github.com/MrEthical07/goAuthClient/session"
)

// ErrUnavailable wraps backend failures (I/O errors, Redis down).
var ErrUnavailable = errors.New("token store unavailable")

// Record is the durable token triple. Empty strings and a nil User mean
// absent.
type Record struct {
	AccessToken  string
	RefreshToken string
	User         *session.User
}

// Empty reports whether no field is present.
func (r Record) Empty() bool {
	return r.AccessToken == "" && r.RefreshToken == "" && r.User == nil
}

// Complete reports whether both tokens and the user are present.
func (r Record) Complete() bool {
	return r.AccessToken != "" && r.RefreshToken != "" && r.User != nil
}

// Clone returns a copy that shares nothing with r.
func (r Record) Clone() Record {
	r.User = r.User.Clone()
	return r
}

// Store is the durable key-value contract used by the session manager.
type Store interface {
	Get(ctx context.Context) (Record, error)
	Set(ctx context.Context, rec Record) error
	Clear(ctx context.Context) error
}

// Expiring is implemented by stores whose record can disappear without a
// Clear, such as Redis keys written with a TTL.
type Expiring interface {
	Expires() bool
}
