package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SubmissionLocker serialises transitions and sagas on one submission. The
// returned unlock func is safe to call more than once. Every implementation
// waits up to its configured duration before returning ErrSubmissionBusy; a
// zero or negative wait means DefaultLockWait.
type SubmissionLocker interface {
	Lock(ctx context.Context, submissionID int) (unlock func(), err error)
}

// DefaultLockWait matches the lock.wait_timeout default.
const DefaultLockWait = 5 * time.Second

func lockWait(wait time.Duration) time.Duration {
	if wait <= 0 {
		return DefaultLockWait
	}
	return wait
}

const lockNamePrefix = "permit_submission_"

func lockName(submissionID int) string {
	return fmt.Sprintf("%s%d", lockNamePrefix, submissionID)
}

// persistentContext keeps request values but survives cancellation so locks are
// released after a client disconnects.
func persistentContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(ctx)
}

// LocalLocker is an in-process keyed mutex for single-instance deployments.
type LocalLocker struct {
	wait  time.Duration
	mu    sync.Mutex
	locks map[int]*localLock
}

type localLock struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker(wait time.Duration) *LocalLocker {
	return &LocalLocker{wait: lockWait(wait), locks: make(map[int]*localLock)}
}

func (l *LocalLocker) Lock(ctx context.Context, submissionID int) (func(), error) {
	l.mu.Lock()
	entry, ok := l.locks[submissionID]
	if !ok {
		entry = &localLock{ch: make(chan struct{}, 1)}
		l.locks[submissionID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	waitCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	select {
	case entry.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-entry.ch
				l.release(submissionID, entry)
			})
		}, nil
	case <-waitCtx.Done():
		l.release(submissionID, entry)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: submission %d", ErrSubmissionBusy, submissionID)
	}
}

func (l *LocalLocker) release(submissionID int, entry *localLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, submissionID)
	}
}

// MySQLLocker uses GET_LOCK named locks. A named lock belongs to the session that
// took it, so each lock pins a pooled connection until released.
type MySQLLocker struct {
	db     *gorm.DB
	wait   time.Duration
	logger *zap.Logger
}

func NewMySQLLocker(db *gorm.DB, wait time.Duration, logger *zap.Logger) *MySQLLocker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MySQLLocker{db: db, wait: lockWait(wait), logger: logger}
}

func (l *MySQLLocker) Lock(ctx context.Context, submissionID int) (func(), error) {
	sqlDB, err := l.db.DB()
	if err != nil {
		return nil, fmt.Errorf("lock submission %d: %w", submissionID, err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("lock submission %d: %w", submissionID, err)
	}

	name := lockName(submissionID)
	seconds := int(math.Ceil(l.wait.Seconds()))
	var acquired sql.NullInt64
	if err := conn.QueryRowContext(ctx, "SELECT GET_LOCK(?, ?)", name, seconds).Scan(&acquired); err != nil {
		conn.Close()
		return nil, fmt.Errorf("lock submission %d: %w", submissionID, err)
	}
	if !acquired.Valid || acquired.Int64 != 1 {
		conn.Close()
		return nil, fmt.Errorf("%w: submission %d", ErrSubmissionBusy, submissionID)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			defer conn.Close()
			var released sql.NullInt64
			if err := conn.QueryRowContext(persistentContext(ctx), "SELECT RELEASE_LOCK(?)", name).Scan(&released); err != nil {
				l.logger.Warn("failed to release submission lock", zap.String("lock", name), zap.Error(err))
			}
		})
	}, nil
}

var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker holds a SET NX key with a TTL so a crashed holder cannot block a
// submission forever.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
	logger *zap.Logger
}

func NewRedisLocker(client *redis.Client, ttl, wait time.Duration, logger *zap.Logger) *RedisLocker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{client: client, ttl: ttl, wait: lockWait(wait), retry: 50 * time.Millisecond, logger: logger}
}

func (l *RedisLocker) Lock(ctx context.Context, submissionID int) (func(), error) {
	key := lockName(submissionID)
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("lock submission %d: %w", submissionID, err)
		}
		if ok {
			break
		}
		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("%w: submission %d", ErrSubmissionBusy, submissionID)
		}
		timer := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			err := releaseLockScript.Run(persistentContext(ctx), l.client, []string{key}, token).Err()
			if err != nil && !errors.Is(err, redis.Nil) {
				l.logger.Warn("failed to release submission lock", zap.String("lock", key), zap.Error(err))
			}
		})
	}, nil
}
