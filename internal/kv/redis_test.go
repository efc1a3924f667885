package kv

import (
	"context"
	"os"
	"testing"
)

// Runs against a live server only when MAPTSS_TEST_REDIS_URL is set,
// e.g. redis://localhost:6379/15.
func TestRedisStore(t *testing.T) {
	url := os.Getenv("MAPTSS_TEST_REDIS_URL")
	if url == "" {
		t.Skip("MAPTSS_TEST_REDIS_URL not set")
	}
	r, err := OpenRedis(context.Background(), url)
	if err != nil {
		t.Fatalf("OpenRedis: %v", err)
	}
	defer r.Close()
	exerciseStore(t, r)
}
