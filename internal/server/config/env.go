package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// parseEnv overlays values found through lookup (os.LookupEnv in production).
//
// Recognized variables:
//
//	PORT / HTTP_ADDR, GRPC_HEALTH_ADDR, DATABASE_DSN, GOOGLE_CLIENT_ID,
//	GOOGLE_CERTS_URL, SESSION_SECRET, SESSION_TTL, APP_ENV, ALLOWED_ORIGINS,
//	S3_ROOT_USER, S3_ROOT_PASSWORD, S3_BUCKET, S3_REGION, S3_BASE_ENDPOINT,
//	S3_PUBLIC_BASE_URL, ASSET_NAMESPACE, MAX_UPLOAD_BYTES, REDIS_URL,
//	REQUEST_TIMEOUT, ITEMS_REQUIRE_AUTH, LOG_LEVEL
func parseEnv(config *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if port, ok := lookup("PORT"); ok && port != "" {
		config.HTTPAddr = ":" + strings.TrimPrefix(port, ":")
	}
	str("HTTP_ADDR", &config.HTTPAddr)
	str("GRPC_HEALTH_ADDR", &config.GRPCHealthAddr)
	str("DATABASE_DSN", &config.DatabaseDSN)
	str("GOOGLE_CLIENT_ID", &config.GoogleClientID)
	str("GOOGLE_CERTS_URL", &config.GoogleCertsURL)
	str("SESSION_SECRET", &config.SessionSecret)
	str("S3_ROOT_USER", &config.S3RootUser)
	str("S3_ROOT_PASSWORD", &config.S3RootPassword)
	str("S3_BUCKET", &config.S3Bucket)
	str("S3_REGION", &config.S3Region)
	str("S3_BASE_ENDPOINT", &config.S3BaseEndpoint)
	str("S3_PUBLIC_BASE_URL", &config.S3PublicBaseURL)
	str("ASSET_NAMESPACE", &config.AssetNamespace)
	str("REDIS_URL", &config.RedisURL)
	str("LOG_LEVEL", &config.LogLevel)

	if v, ok := lookup("APP_ENV"); ok {
		config.Production = strings.EqualFold(strings.TrimSpace(v), "production")
	}

	if v, ok := lookup("ALLOWED_ORIGINS"); ok && v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		config.AllowedOrigins = origins
	}

	if v, ok := lookup("SESSION_TTL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SESSION_TTL: %w", err)
		}
		config.SessionTTL = d
	}

	if v, ok := lookup("REQUEST_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("REQUEST_TIMEOUT: %w", err)
		}
		config.RequestTimeout = d
	}

	if v, ok := lookup("MAX_UPLOAD_BYTES"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_UPLOAD_BYTES: %w", err)
		}
		config.MaxUploadBytes = n
	}

	if v, ok := lookup("ITEMS_REQUIRE_AUTH"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ITEMS_REQUIRE_AUTH: %w", err)
		}
		config.RequireAuthForItems = b
	}

	return nil
}
