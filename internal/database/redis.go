package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/internal/config"
	"github.com/redis/go-redis/v9"
)

var Redis *redis.Client
var Ctx = context.Background()

func InitRedis() {
	Redis = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       0,
	})

	_, err := Redis.Ping(Ctx).Result()
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v. Rate limiting and notification debouncing will be disabled.", err)
	} else {
		log.Println("Connected to Redis successfully")
	}
}

// CheckRateLimit counts hits for key and allows at most limit per duration.
// Also used by the notification dispatcher to debounce emails per
// sender/recipient pair.
func CheckRateLimit(key string, limit int, duration time.Duration) (bool, error) {
	fullKey := fmt.Sprintf("rate_limit:%s", key)
	count, err := Redis.Incr(Ctx, fullKey).Result()
	if err != nil {
		return false, err
	}

	if count == 1 {
		Redis.Expire(Ctx, fullKey, duration)
	}

	if count > int64(limit) {
		return false, nil
	}
	return true, nil
}
