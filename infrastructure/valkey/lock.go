package valkey

import (
	"context"
	"time"

	"github.com/google/uuid"
	valkeylib "github.com/valkey-io/valkey-go"
)

// releaseScript deletes the lock only when it still holds our token.
var releaseScript = valkeylib.NewLuaScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Lock is a held SET NX EX lock.
type Lock struct {
	client *Client
	key    string
	token  string
}

// TryLock acquires name for ttl. It returns (nil, nil) when another node holds it.
func (c *Client) TryLock(ctx context.Context, name string, ttl time.Duration) (*Lock, error) {
	key := c.Key("lock", name)
	token := uuid.NewString()

	cmd := c.inner.B().Set().Key(key).Value(token).Nx().Ex(ttl).Build()
	if err := c.inner.Do(ctx, cmd).Error(); err != nil {
		if IsNil(err) {
			return nil, nil
		}
		return nil, err
	}
	return &Lock{client: c, key: key, token: token}, nil
}

func (l *Lock) Release(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return releaseScript.Exec(ctx, l.client.inner, []string{l.key}, []string{l.token}).Error()
}
