package stores

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	tokenRecordVersionV1 = 1

	// Used and expired records stay answerable (for status checks) until the
	// Redis TTL reclaims them, mirroring the window between opportunistic
	// sweeps of the in-memory store.
	expiredRetention = 24 * time.Hour
)

// RedisTokenStore shares reset tokens across process instances. Consume uses
// an optimistic WATCH transaction so concurrent redemptions of the same token
// still produce exactly one winner.
type RedisTokenStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRedisTokenStore(redisClient redis.UniversalClient, prefix string, now func() time.Time) *RedisTokenStore {
	if prefix == "" {
		prefix = "agr"
	}
	if now == nil {
		now = time.Now
	}
	return &RedisTokenStore{
		redis:  redisClient,
		prefix: prefix,
		now:    now,
	}
}

func (s *RedisTokenStore) key(token string) string {
	return s.prefix + ":t:" + token
}

func (s *RedisTokenStore) Save(ctx context.Context, record ResetToken) error {
	encoded, err := encodeTokenRecord(&record)
	if err != nil {
		return err
	}

	ttl := record.ExpiresAt.Sub(s.now()) + expiredRetention
	if err := s.redis.Set(ctx, s.key(record.Token), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisTokenStore) Get(ctx context.Context, token string) (ResetToken, error) {
	data, err := s.redis.Get(ctx, s.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ResetToken{}, ErrTokenNotFound
		}
		return ResetToken{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	record, err := decodeTokenRecord(data)
	if err != nil {
		return ResetToken{}, err
	}
	record.Token = token
	return *record, nil
}

func (s *RedisTokenStore) Consume(ctx context.Context, token string) (ResetToken, error) {
	const maxRetries = 4
	key := s.key(token)

	for i := 0; i < maxRetries; i++ {
		var consumed ResetToken

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodeTokenRecord(data)
			if err != nil {
				return err
			}
			if record.Used {
				return ErrTokenUsed
			}
			if s.now().After(record.ExpiresAt) {
				return ErrTokenExpired
			}

			record.Used = true
			updated, err := encodeTokenRecord(record)
			if err != nil {
				return err
			}

			ttl := record.ExpiresAt.Sub(s.now()) + expiredRetention
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, ttl)
				return nil
			})
			if err != nil {
				return err
			}

			record.Token = token
			consumed = *record
			return nil
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil):
				return ResetToken{}, ErrTokenNotFound
			case errors.Is(err, ErrTokenUsed), errors.Is(err, ErrTokenExpired):
				return ResetToken{}, err
			default:
				return ResetToken{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
		}

		return consumed, nil
	}

	// The key was contended on every attempt; some other redeemer won.
	return ResetToken{}, ErrTokenUsed
}

// Sweep is a no-op for the Redis store: TTLs reclaim used and expired
// records without a scan.
func (s *RedisTokenStore) Sweep(context.Context) (int, error) {
	return 0, nil
}

func encodeTokenRecord(record *ResetToken) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(tokenRecordVersionV1)
	if record.Used {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}

	if err := binary.Write(&buf, binary.BigEndian, record.CreatedAt.UnixMilli()); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt.UnixMilli()); err != nil {
		return nil, err
	}

	if len(record.Email) > 65535 {
		return nil, errors.New("token record email too long")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.Email))); err != nil {
		return nil, err
	}
	buf.WriteString(record.Email)

	return buf.Bytes(), nil
}

func decodeTokenRecord(data []byte) (*ResetToken, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != tokenRecordVersionV1 {
		return nil, errors.New("invalid token record version")
	}

	used, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	record := &ResetToken{Used: used == 1}

	var createdAt, expiresAt int64
	if err := binary.Read(reader, binary.BigEndian, &createdAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &expiresAt); err != nil {
		return nil, err
	}
	record.CreatedAt = time.UnixMilli(createdAt)
	record.ExpiresAt = time.UnixMilli(expiresAt)

	var emailLen uint16
	if err := binary.Read(reader, binary.BigEndian, &emailLen); err != nil {
		return nil, err
	}
	email := make([]byte, emailLen)
	if _, err := io.ReadFull(reader, email); err != nil {
		return nil, err
	}
	record.Email = string(email)

	return record, nil
}
