package middleware

import (
	"io"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/nusaledger/nusa_ledger/internal/logging"
)

func setupTestApp(t *testing.T) (*fiber.App, *atomic.Int64) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	var calls atomic.Int64
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		// Stand-in for Authenticate: the identity arrives via a header.
		if identity := c.Get("X-Test-Identity"); identity != "" {
			c.Locals(identityKey, identity)
		}
		return c.Next()
	})
	app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	app.Post("/tokens/mint", func(c *fiber.Ctx) error {
		calls.Add(1)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"balance": calls.Load() * 1000})
	})

	return app, &calls
}

func doMint(t *testing.T, app *fiber.App, identity, key string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/tokens/mint", strings.NewReader("{}"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if identity != "" {
		req.Header.Set("X-Test-Identity", identity)
	}
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode, string(body)
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	app, _ := setupTestApp(t)

	status, _ := doMint(t, app, "bank-a", "")
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected %d got %d", fiber.StatusBadRequest, status)
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	app, calls := setupTestApp(t)

	status, body := doMint(t, app, "bank-a", "abc123")
	if status != fiber.StatusCreated {
		t.Fatalf("expected status %d got %d", fiber.StatusCreated, status)
	}

	status2, body2 := doMint(t, app, "bank-a", "abc123")
	if status2 != fiber.StatusCreated {
		t.Fatalf("expected replayed status %d got %d", fiber.StatusCreated, status2)
	}
	if body2 != body {
		t.Fatalf("expected replayed body %s got %s", body, body2)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("handler ran %d times, expected 1", got)
	}
}

func TestIdempotencyKeysScopedPerIdentity(t *testing.T) {
	app, calls := setupTestApp(t)

	doMint(t, app, "bank-a", "shared-key")
	doMint(t, app, "bank-b", "shared-key")

	if got := calls.Load(); got != 2 {
		t.Fatalf("expected the same key to be independent per identity, handler ran %d times", got)
	}
}
