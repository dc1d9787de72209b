package utils

import (
	"os"
	"strconv"
	"time"
)

type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTDuration time.Duration
}

func LoadAuthConfig() AuthConfig {
	secret := os.Getenv("MANGACAL_JWT_SECRET")
	if secret == "" {
		// dev default (change for production)
		secret = "dev-secret-change-me"
	}

	issuer := os.Getenv("MANGACAL_JWT_ISSUER")
	if issuer == "" {
		issuer = "mangacal"
	}

	duration := 24 * time.Hour
	if ttl := os.Getenv("MANGACAL_JWT_TTL_HOURS"); ttl != "" {
		if hours, err := strconv.Atoi(ttl); err == nil && hours > 0 {
			duration = time.Duration(hours) * time.Hour
		}
	}

	return AuthConfig{
		JWTSecret:   secret,
		JWTIssuer:   issuer,
		JWTDuration: duration,
	}
}

// EnvDisabled reports whether a provider was switched off via env, e.g.
// MANGACAL_ANILIST_DISABLED=1.
func EnvDisabled(name string) bool {
	v := os.Getenv("MANGACAL_" + name + "_DISABLED")
	return v == "1" || v == "true"
}
