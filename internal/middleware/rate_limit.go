package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const rateLimitPrefix = "rl:mutation:"

// AccountRateLimit caps balance-changing requests per account per minute
// using a Redis fixed window. It must be mounted on routes that carry the
// :accountId parameter. Without Redis, or with maxPerMin <= 0, it is a no-op.
func AccountRateLimit(cache *redis.Client, maxPerMin int, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cache == nil || maxPerMin <= 0 {
			return c.Next()
		}
		accountID := c.Params("accountId")
		if accountID == "" {
			return c.Next()
		}

		window := time.Now().Unix() / 60
		key := rateLimitPrefix + accountID + ":" + strconv.FormatInt(window, 10)

		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err != nil {
			// fail open on cache errors
			logger.Warn("rate limit lookup failed", slog.String("account_id", accountID), slog.Any("error", err))
			return c.Next()
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			c.Set(fiber.HeaderRetryAfter, "60")
			return fiber.NewError(http.StatusTooManyRequests, "too many operations on this account, try again later")
		}
		return c.Next()
	}
}
