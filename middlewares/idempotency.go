package middlewares

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"pos-backend/models"
	"pos-backend/repository"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// pendingTimeout is how long a key may stay uncompleted before a retry may take
// it over, e.g. after the server died mid-request.
var pendingTimeout = 2 * time.Minute

// Idempotency processes Idempotency-Key for mutating HTTP methods. The first
// completed response for a key is stored and replayed for every retry of the
// same request. A retry that arrives while the first request is still running
// gets 409; a request that fails releases its key. Run it after the JWT handler.
func Idempotency(store repository.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		method := strings.ToUpper(c.Method())
		if method != fiber.MethodPost && method != fiber.MethodPut && method != fiber.MethodPatch && method != fiber.MethodDelete {
			return c.Next()
		}

		key := strings.TrimSpace(c.Get("Idempotency-Key"))
		if key == "" {
			return c.Next()
		}
		if len(key) > 128 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Idempotency-Key too long"})
		}

		userID, _ := c.Locals("userID").(string)
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "auth context missing"})
		}

		path := c.OriginalURL() // includes query string
		reqHash := requestHash(method, path, c.Body(), userID)

		// ---- Phase 1: find or claim the record
		rec := &models.IdempotencyKey{
			Key:         key,
			RequestHash: reqHash,
			Method:      method,
			Path:        path,
			UserID:      userID,
		}
		existing, owned, err := claimKey(c, store, rec)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency lookup failed")
		}

		if existing.RequestHash != reqHash {
			return fiber.NewError(fiber.StatusConflict, "Idempotency-Key reuse with different request")
		}
		if existing.ResponseStatus != 0 && existing.ResponseBody != nil {
			// Completed before: replay without running the handler
			c.Status(existing.ResponseStatus)
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			c.Set("Idempotent-Replayed", "true")
			return c.Send(existing.ResponseBody)
		}
		if !owned {
			return fiber.NewError(fiber.StatusConflict, "request with this Idempotency-Key is still in progress")
		}

		if err := c.Next(); err != nil {
			release(c, store, key)
			return err
		}

		// ---- Phase 2: store the response (best-effort)
		status := c.Response().StatusCode()
		resp := c.Response().Body()
		if status >= fiber.StatusBadRequest || !json.Valid(resp) {
			release(c, store, key)
			return nil
		}
		blob := make([]byte, len(resp))
		copy(blob, resp)
		if err := store.CompleteIdempotencyKey(c.UserContext(), key, status, blob, time.Now().UTC()); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("idempotency: failed to store response")
		}
		return nil
	}
}

// claimKey returns the record for rec.Key, creating it when absent. owned
// reports whether this request holds the pending record and may run the
// handler. A pending record older than pendingTimeout is taken over.
func claimKey(c *fiber.Ctx, store repository.Store, rec *models.IdempotencyKey) (*models.IdempotencyKey, bool, error) {
	ctx := c.UserContext()
	existing, err := store.FindIdempotencyKey(ctx, rec.Key)
	switch {
	case err == nil:
		stale := existing.ResponseStatus == 0 && time.Since(existing.CreatedAt) > pendingTimeout
		if !stale || existing.RequestHash != rec.RequestHash {
			return existing, false, nil
		}
		log.Warn().Str("key", rec.Key).Time("created_at", existing.CreatedAt).Msg("idempotency: taking over abandoned key")
		if err := store.ReleaseIdempotencyKey(ctx, rec.Key); err != nil {
			return nil, false, err
		}
	case !errors.Is(err, repository.ErrNotFound):
		return nil, false, err
	}

	err = store.CreateIdempotencyKey(ctx, rec)
	if err == nil {
		return rec, true, nil
	}
	if errors.Is(err, repository.ErrDuplicateKey) {
		// Lost a race with a concurrent retry: read again
		existing, err = store.FindIdempotencyKey(ctx, rec.Key)
		return existing, false, err
	}
	return nil, false, err
}

func release(c *fiber.Ctx, store repository.Store, key string) {
	if err := store.ReleaseIdempotencyKey(c.UserContext(), key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("idempotency: failed to release key")
	}
}

// requestHash is sha256 over method|path|body|user.
func requestHash(method, path string, body []byte, userID string) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{'\n'})
	h.Write([]byte(path))
	h.Write([]byte{'\n'})
	h.Write(body)
	h.Write([]byte{'\n'})
	h.Write([]byte(userID))
	return hex.EncodeToString(h.Sum(nil))
}
