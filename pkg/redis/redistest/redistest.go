// Package redistest runs an in-process Redis for tests.
package redistest

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	pkgredis "github.com/krishnaroyalclub/krc-backend/pkg/redis"
)

// Open starts a miniredis server that stops when the test ends and returns a
// client connected to it. The server handle lets tests move time forward.
func Open(t testing.TB) (*pkgredis.Client, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return pkgredis.NewFromClient(rdb), server
}
