package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	cfg := FromViper(v)

	if cfg.R2.APIEndpoint != "https://api.cloudflare.com/client/v4" {
		t.Errorf("api endpoint = %q", cfg.R2.APIEndpoint)
	}
	if cfg.R2.StorageDomain != "r2.cloudflarestorage.com" {
		t.Errorf("storage domain = %q", cfg.R2.StorageDomain)
	}
	if cfg.R2.HTTPTimeout != 30*time.Second || cfg.R2.DeleteConcurrency != 1 {
		t.Errorf("tuning = %v / %d", cfg.R2.HTTPTimeout, cfg.R2.DeleteConcurrency)
	}
	if cfg.Server.Port != "8080" || cfg.Server.AdminPort != "9090" {
		t.Errorf("ports = %q / %q", cfg.Server.Port, cfg.Server.AdminPort)
	}
	if cfg.Cache.Enabled || cfg.Audit.Enabled {
		t.Error("cache and audit must be off by default")
	}
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("R2_ACCOUNT_ID", "acc")
	v.Set("R2_API_TOKEN", "tok")
	v.Set("R2_ACCESS_KEY_ID", "AKID")
	v.Set("R2_SECRET_ACCESS_KEY", "secret")
	v.Set("HTTP_TIMEOUT_SECONDS", 0)
	v.Set("BATCH_DELETE_CONCURRENCY", -3)
	cfg := FromViper(v)

	cred := cfg.R2.Credential()
	if cred.AccountID != "acc" || cred.APIToken != "tok" || cred.AccessKeyID != "AKID" || cred.SecretAccessKey != "secret" {
		t.Errorf("credential = %+v", cred)
	}
	if cfg.R2.HTTPTimeout != 30*time.Second {
		t.Errorf("timeout = %v", cfg.R2.HTTPTimeout)
	}
	if cfg.R2.DeleteConcurrency != 1 {
		t.Errorf("concurrency = %d", cfg.R2.DeleteConcurrency)
	}
}

func TestDSN(t *testing.T) {
	db := DatabaseConfig{Host: "h", Port: "5432", User: "u", Password: "p", DBName: "d", SSLMode: "disable"}
	if got := db.DSN(); got != "host=h port=5432 user=u password=p dbname=d sslmode=disable" {
		t.Errorf("DSN = %q", got)
	}
	db.URL = "postgres://u:p@h/d"
	if got := db.DSN(); got != "postgres://u:p@h/d" {
		t.Errorf("DSN = %q", got)
	}
}
