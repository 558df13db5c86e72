package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestLocalTryLock(t *testing.T) {
	ctx := context.Background()
	l := NewLocal()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return base }

	release, ok, err := l.TryLock(ctx, "sweep", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected first lock to succeed, ok=%v err=%v", ok, err)
	}
	if _, ok, _ := l.TryLock(ctx, "sweep", time.Minute); ok {
		t.Fatal("expected second lock to fail while held")
	}

	l.now = func() time.Time { return base.Add(2 * time.Minute) }
	takeover, ok, _ := l.TryLock(ctx, "sweep", time.Minute)
	if !ok {
		t.Fatal("expected expired lock to be taken over")
	}

	// The stale holder must not release the new holder's lock.
	_ = release(ctx)
	if _, ok, _ := l.TryLock(ctx, "sweep", time.Minute); ok {
		t.Fatal("stale release freed a lock it no longer owns")
	}
	_ = takeover(ctx)
	if _, ok, _ := l.TryLock(ctx, "sweep", time.Minute); !ok {
		t.Fatal("expected lock to be free after release")
	}
}

func TestRedisTryLock(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	l := NewRedis(client, "pipeline:")

	release, ok, err := l.TryLock(ctx, "auto-advance", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected lock, ok=%v err=%v", ok, err)
	}
	if !mr.Exists("pipeline:auto-advance") {
		t.Fatal("expected namespaced key to exist")
	}

	other := NewRedis(client, "pipeline:")
	if _, ok, err := other.TryLock(ctx, "auto-advance", time.Minute); err != nil || ok {
		t.Fatalf("expected contention, ok=%v err=%v", ok, err)
	}

	if err := release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if mr.Exists("pipeline:auto-advance") {
		t.Fatal("expected key to be deleted on release")
	}

	_, ok, _ = other.TryLock(ctx, "auto-advance", time.Minute)
	if !ok {
		t.Fatal("expected lock to be acquirable after release")
	}

	mr.FastForward(2 * time.Minute)
	if mr.Exists("pipeline:auto-advance") {
		t.Fatal("expected key to expire after ttl")
	}
}

func TestNewRedisFromURLPingsServer(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	l, closeFn, err := NewRedisFromURL(ctx, "redis://"+mr.Addr(), "pipeline:", false)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer func() { _ = closeFn() }()
	if _, ok, err := l.TryLock(ctx, "sweep", time.Minute); err != nil || !ok {
		t.Fatalf("expected lock, ok=%v err=%v", ok, err)
	}

	addr := mr.Addr()
	mr.Close()
	if _, _, err := NewRedisFromURL(ctx, "redis://"+addr, "pipeline:", false); err == nil {
		t.Fatal("expected an unreachable server to be rejected")
	}
	if _, _, err := NewRedisFromURL(ctx, "://bad", "pipeline:", false); err == nil {
		t.Fatal("expected a malformed url to be rejected")
	}
}

func TestRedisOptionsHonorsTLSInsecure(t *testing.T) {
	plain, err := redisOptions("redis://localhost:6379", true)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if plain.TLSConfig == nil || !plain.TLSConfig.InsecureSkipVerify {
		t.Fatal("expected insecure TLS config")
	}

	secure, err := redisOptions("rediss://localhost:6380", false)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if secure.TLSConfig == nil || secure.TLSConfig.InsecureSkipVerify {
		t.Fatal("expected verified TLS for rediss")
	}
}
