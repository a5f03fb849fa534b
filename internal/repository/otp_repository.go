package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// OTPRepo keeps pending one-time codes in Redis. Codes expire on their
// own via TTL; only the SHA-256 hash is stored.
type OTPRepo struct {
	rdb *redis.Client
	ttl time.Duration
}

// ErrOTPInvalid covers missing, expired and mismatched codes alike so
// the handler leaks nothing about which one it was.
var ErrOTPInvalid = errors.New("invalid or expired code")

// ErrOTPThrottled is returned when the address asked for codes too
// often.
var ErrOTPThrottled = errors.New("too many code requests")

const otpMaxAttempts = 5

func NewOTPRepo(rdb *redis.Client, ttl time.Duration) *OTPRepo {
	return &OTPRepo{rdb: rdb, ttl: ttl}
}

func otpKey(email string) string      { return fmt.Sprintf("otp:code:%s", email) }
func otpAttemptKey(email string) string { return fmt.Sprintf("otp:tries:%s", email) }

// ErrOTPUnavailable means Redis is down and code login is off.
var ErrOTPUnavailable = errors.New("otp service unavailable")

// Store saves the code hash for the address, replacing any pending
// code. The attempt counter resets with the new code.
func (r *OTPRepo) Store(ctx context.Context, email, codeHash string) error {
	if r.rdb == nil {
		return ErrOTPUnavailable
	}
	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, otpKey(email), codeHash, r.ttl)
	pipe.Del(ctx, otpAttemptKey(email))
	_, err := pipe.Exec(ctx)
	return err
}

// Consume verifies a submitted hash and deletes the code on success.
// Each miss burns an attempt; after otpMaxAttempts the code is gone.
func (r *OTPRepo) Consume(ctx context.Context, email, codeHash string) error {
	if r.rdb == nil {
		return ErrOTPUnavailable
	}
	stored, err := r.rdb.Get(ctx, otpKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return ErrOTPInvalid
	}
	if err != nil {
		return err
	}
	if stored != codeHash {
		tries, err := r.rdb.Incr(ctx, otpAttemptKey(email)).Result()
		if err == nil {
			r.rdb.Expire(ctx, otpAttemptKey(email), r.ttl)
			if tries >= otpMaxAttempts {
				r.rdb.Del(ctx, otpKey(email), otpAttemptKey(email))
			}
		}
		return ErrOTPInvalid
	}
	r.rdb.Del(ctx, otpKey(email), otpAttemptKey(email))
	return nil
}
