package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	SessionCookieName  = "fundgate.sid"
	SessionRedisPrefix = "session:"
	sessionMaxAge      = 24 * time.Hour
)

// Session loads "session:<id>" for the session cookie and exposes the stored
// user under Locals("user"). Cookies are "id" or "s:id.signature"; when secret
// is set a signed cookie must carry a valid signature. Sessions are rolling: a
// request with a live session extends its TTL.
func Session(rdb *redis.Client, secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID := parseSessionCookie(c.Cookies(SessionCookieName), secret)
		key := SessionRedisPrefix + sessionID

		var data map[string]interface{}
		if sessionID != "" {
			b, err := rdb.Get(context.Background(), key).Bytes()
			if err == nil {
				_ = json.Unmarshal(b, &data)
			} else if err != redis.Nil {
				log.Warn().Err(err).Msg("session lookup failed")
			}
		}
		if data == nil {
			data = make(map[string]interface{})
		}

		c.Locals("session_data", data)
		if u, ok := data["user"]; ok {
			c.Locals(userLocal, u)
		} else {
			c.Locals(userLocal, nil)
		}
		c.Locals("session_id", sessionID)

		err := c.Next()
		if err != nil {
			return err
		}
		if _, ok := data["user"]; ok {
			rdb.Expire(context.Background(), key, sessionMaxAge)
		}
		return nil
	}
}

func parseSessionCookie(raw, secret string) string {
	if !strings.HasPrefix(raw, "s:") {
		return raw
	}
	parts := strings.SplitN(raw[2:], ".", 2)
	if secret == "" {
		return parts[0]
	}
	if len(parts) != 2 || !hmac.Equal([]byte(parts[1]), []byte(signSessionID(parts[0], secret))) {
		return ""
	}
	return parts[0]
}

func signSessionID(id, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(id))
	return base64.RawStdEncoding.EncodeToString(mac.Sum(nil))
}

// GetSessionID returns the current session ID from context.
func GetSessionID(c *fiber.Ctx) string {
	sid, _ := c.Locals("session_id").(string)
	return sid
}
