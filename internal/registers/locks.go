package registers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

var (
	ErrTerminalLocked = fmt.Errorf("terminal locked by another session: %w", httpx.ErrConflict)
	ErrNotHolder      = fmt.Errorf("terminal lock not held by caller: %w", httpx.ErrConflict)
)

// Lock values are "<token>|<acquired unix ms>", so the holder's start time
// survives renewals and can be reported to a rejected caller.
const lockSeparator = "|"

var renewScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if v and string.sub(v, 1, string.len(ARGV[1]) + 1) == ARGV[1] .. '|' then
	return redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return 0
`)

var releaseScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if v and string.sub(v, 1, string.len(ARGV[1]) + 1) == ARGV[1] .. '|' then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

type Lock struct {
	Terminal   string    `json:"terminal"`
	Token      string    `json:"token,omitempty"`
	AcquiredAt time.Time `json:"adquirido_en"`
	ExpiresAt  time.Time `json:"expira_en,omitempty"`
}

// LockedError carries the current holder's acquisition time.
type LockedError struct {
	Terminal   string
	AcquiredAt time.Time
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("terminal %s in use since %s", e.Terminal, e.AcquiredAt.Format(time.RFC3339))
}

func (e *LockedError) Unwrap() error { return ErrTerminalLocked }

// TerminalLocks grants one live session per terminal using expiring redis keys.
type TerminalLocks struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

func NewTerminalLocks(client *redis.Client, ttl time.Duration) *TerminalLocks {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &TerminalLocks{client: client, ttl: ttl, now: time.Now}
}

func (l *TerminalLocks) Acquire(ctx context.Context, terminal string) (*Lock, error) {
	key := shared.TerminalLockKey(terminal)
	now := l.now()
	token := uuid.NewString()
	value := token + lockSeparator + strconv.FormatInt(now.UnixMilli(), 10)

	ok, err := l.client.SetNX(ctx, key, value, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire terminal lock: %w", err)
	}
	if !ok {
		held, err := l.client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			// expired between SETNX and GET
			return l.Acquire(ctx, terminal)
		}
		if err != nil {
			return nil, fmt.Errorf("read terminal lock: %w", err)
		}
		return nil, &LockedError{Terminal: terminal, AcquiredAt: parseAcquired(held)}
	}
	return &Lock{Terminal: terminal, Token: token, AcquiredAt: now, ExpiresAt: now.Add(l.ttl)}, nil
}

// Renew extends the lock for another TTL when token still holds it.
func (l *TerminalLocks) Renew(ctx context.Context, terminal, token string) (*Lock, error) {
	n, err := renewScript.Run(ctx, l.client, []string{shared.TerminalLockKey(terminal)}, token, l.ttl.Milliseconds()).Int()
	if err != nil {
		return nil, fmt.Errorf("renew terminal lock: %w", err)
	}
	if n == 0 {
		return nil, ErrNotHolder
	}
	lock := &Lock{Terminal: terminal, Token: token, ExpiresAt: l.now().Add(l.ttl)}
	if held, err := l.client.Get(ctx, shared.TerminalLockKey(terminal)).Result(); err == nil {
		lock.AcquiredAt = parseAcquired(held)
	}
	return lock, nil
}

func (l *TerminalLocks) Release(ctx context.Context, terminal, token string) error {
	n, err := releaseScript.Run(ctx, l.client, []string{shared.TerminalLockKey(terminal)}, token).Int()
	if err != nil {
		return fmt.Errorf("release terminal lock: %w", err)
	}
	if n == 0 {
		return ErrNotHolder
	}
	return nil
}

func parseAcquired(value string) time.Time {
	_, ms, ok := strings.Cut(value, lockSeparator)
	if !ok {
		return time.Time{}
	}
	n, err := strconv.ParseInt(ms, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(n)
}
