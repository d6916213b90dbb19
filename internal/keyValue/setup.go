package keyValue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Change is published after every committed Set.
type Change struct {
	Key     string `json:"key"`
	Value   string `json:"value"`
	Version int64  `json:"version"`
	Origin  string `json:"origin"`
}

// Store keeps one value per key in the sql database and broadcasts
// changes through the local pub/sub when self contained, redis otherwise.
type Store struct {
	sugar         *zap.SugaredLogger
	db            *sql.DB
	redisClient   *redis.Client
	selfContained bool
	upsert        string
	local         *LocalPubSub
}

func New(sugar *zap.SugaredLogger, db *sql.DB, redisClient *redis.Client, selfContained bool) *Store {
	return &Store{
		sugar:         sugar,
		db:            db,
		redisClient:   redisClient,
		selfContained: selfContained,
		upsert:        upsertQuery(db),
		local:         NewLocalPubSub(sugar),
	}
}

func channelName(key string) string {
	return fmt.Sprintf("kv:%s", key)
}

// Get returns an empty value and version 0 when the key was never written.
func (s *Store) Get(ctx context.Context, key string) (string, int64, error) {
	s.sugar.Debugf("Getting value of key [%s]", key)

	var value string
	var version int64
	err := s.db.QueryRowContext(ctx, "SELECT value, version FROM kv_store WHERE name = ?", key).Scan(&value, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return "", 0, nil
	} else if err != nil {
		return "", 0, err
	}

	return value, version, nil
}

// Set stores value under key and returns the new version.
func (s *Store) Set(ctx context.Context, key string, value string, origin string) (int64, error) {
	s.sugar.Debugf("Setting value of key [%s] from origin [%s]", key, origin)

	version, err := s.write(ctx, key, value)
	if err != nil {
		return 0, err
	}

	change := Change{Key: key, Value: value, Version: version, Origin: origin}
	err = s.publish(ctx, change)
	if err != nil {
		// the write itself is durable, other contexts will catch up on their next load
		s.sugar.Error(err)
	}

	return version, nil
}

const (
	sqliteUpsert = `INSERT INTO kv_store (name, value, version) VALUES (?, ?, 1)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value, version = kv_store.version + 1`
	mysqlUpsert = `INSERT INTO kv_store (name, value, version) VALUES (?, ?, 1)
		ON DUPLICATE KEY UPDATE value = VALUES(value), version = version + 1`
)

// upsertQuery picks the upsert syntax of the driver behind db.
func upsertQuery(db *sql.DB) string {
	if _, ok := db.Driver().(*mysql.MySQLDriver); ok {
		return mysqlUpsert
	}
	return sqliteUpsert
}

// write inserts or bumps the row in one statement, so two first writes of
// the same key can not both try to insert it.
func (s *Store) write(ctx context.Context, key string, value string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.upsert, key, value)
	if err != nil {
		return 0, err
	}

	var version int64
	err = tx.QueryRowContext(ctx, "SELECT version FROM kv_store WHERE name = ?", key).Scan(&version)
	if err != nil {
		return 0, err
	}

	return version, tx.Commit()
}

func (s *Store) publish(ctx context.Context, change Change) error {
	channel := channelName(change.Key)

	if s.selfContained {
		s.local.Publish(channel, change)
		return nil
	}

	jsonBytes, err := json.Marshal(change)
	if err != nil {
		return err
	}

	return s.redisClient.Publish(ctx, channel, jsonBytes).Err()
}

// Subscription delivers changes of a single key until closed.
type Subscription struct {
	C      <-chan Change
	cancel context.CancelFunc
	done   chan struct{}
}

func (sub *Subscription) Close() {
	sub.cancel()
	<-sub.done
}

// Subscribe delivers every change of key, including the subscriber's own
// writes. Callers filter by origin and version.
func (s *Store) Subscribe(ctx context.Context, key string) (*Subscription, error) {
	channel := channelName(key)
	subCtx, cancel := context.WithCancel(ctx)
	out := make(chan Change, subscriberBuffer)
	done := make(chan struct{})

	if s.selfContained {
		id := s.local.Subscribe(channel, out)
		go func() {
			defer close(done)
			<-subCtx.Done()
			s.local.Unsubscribe(channel, id)
			close(out)
		}()

		return &Subscription{C: out, cancel: cancel, done: done}, nil
	}

	pubsub := s.redisClient.Subscribe(subCtx, channel)

	// wait for the confirmation so no publish after this call is missed
	_, err := pubsub.Receive(subCtx)
	if err != nil {
		cancel()
		pubsub.Close()
		return nil, err
	}

	go func() {
		defer close(done)
		defer close(out)
		defer pubsub.Close()

		msgCh := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-msgCh:
				if !ok {
					return
				}

				var change Change
				err := json.Unmarshal([]byte(msg.Payload), &change)
				if err != nil {
					s.sugar.Warnf("Dropping malformed change on %s: %v", channel, err)
					continue
				}

				select {
				case out <- change:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{C: out, cancel: cancel, done: done}, nil
}
