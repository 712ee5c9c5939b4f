package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/lostfound/internal/timex"
)

// JsonConfig is the on-disk shape of the optional config file. Only fields
// present in the file override the current values.
type JsonConfig struct {
	HTTPAddr            *string         `json:"http_addr"`
	GRPCHealthAddr      *string         `json:"grpc_health_addr"`
	DatabaseDSN         *string         `json:"database_dsn"`
	GoogleClientID      *string         `json:"google_client_id"`
	GoogleCertsURL      *string         `json:"google_certs_url"`
	SessionSecret       *string         `json:"session_secret"`
	SessionTTL          *timex.Duration `json:"session_ttl"`
	Production          *bool           `json:"production"`
	AllowedOrigins      []string        `json:"allowed_origins"`
	S3RootUser          *string         `json:"s3_root_user"`
	S3RootPassword      *string         `json:"s3_root_password"`
	S3Bucket            *string         `json:"s3_bucket"`
	S3Region            *string         `json:"s3_region"`
	S3BaseEndpoint      *string         `json:"s3_base_endpoint"`
	S3PublicBaseURL     *string         `json:"s3_public_base_url"`
	AssetNamespace      *string         `json:"asset_namespace"`
	MaxUploadBytes      *int64          `json:"max_upload_bytes"`
	RedisURL            *string         `json:"redis_url"`
	RequestTimeout      *timex.Duration `json:"request_timeout"`
	RequireAuthForItems *bool           `json:"require_auth_for_items"`
	LogLevel            *string         `json:"log_level"`
}

// parseJSON overlays values from the JSON file at path onto config.
// An empty path means no file was requested.
func parseJSON(config *Config, path string) error {
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return err
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GRPCHealthAddr, c.GRPCHealthAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.GoogleClientID, c.GoogleClientID)
	setString(&config.GoogleCertsURL, c.GoogleCertsURL)
	setString(&config.SessionSecret, c.SessionSecret)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3PublicBaseURL, c.S3PublicBaseURL)
	setString(&config.AssetNamespace, c.AssetNamespace)
	setString(&config.RedisURL, c.RedisURL)
	setString(&config.LogLevel, c.LogLevel)

	if c.SessionTTL != nil {
		config.SessionTTL = c.SessionTTL.Duration
	}
	if c.RequestTimeout != nil {
		config.RequestTimeout = c.RequestTimeout.Duration
	}
	if c.Production != nil {
		config.Production = *c.Production
	}
	if c.RequireAuthForItems != nil {
		config.RequireAuthForItems = *c.RequireAuthForItems
	}
	if c.MaxUploadBytes != nil {
		config.MaxUploadBytes = *c.MaxUploadBytes
	}
	if c.AllowedOrigins != nil {
		config.AllowedOrigins = c.AllowedOrigins
	}

	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
