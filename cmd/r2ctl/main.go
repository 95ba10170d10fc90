package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/andresuchdata/r2bridge/internal/cache"
	"github.com/andresuchdata/r2bridge/internal/domain"
	"github.com/andresuchdata/r2bridge/internal/r2"
	"github.com/andresuchdata/r2bridge/internal/repository"
	"github.com/andresuchdata/r2bridge/internal/repository/postgres"
	"github.com/andresuchdata/r2bridge/internal/service"
	"github.com/andresuchdata/r2bridge/internal/transport"
	"github.com/andresuchdata/r2bridge/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

type ctxKey string

const (
	serviceKey ctxKey = "service"
	dbKey      ctxKey = "db"
)

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "account-id", Usage: "R2 account ID", EnvVars: []string{"R2_ACCOUNT_ID"}},
		&cli.StringFlag{Name: "api-token", Usage: "Control-plane bearer token", EnvVars: []string{"R2_API_TOKEN"}},
		&cli.StringFlag{Name: "api-endpoint", Usage: "Control-plane base URL", EnvVars: []string{"R2_API_ENDPOINT"}},
		&cli.StringFlag{Name: "access-key-id", Usage: "Data-plane access key ID", EnvVars: []string{"R2_ACCESS_KEY_ID"}},
		&cli.StringFlag{Name: "secret-access-key", Usage: "Data-plane secret access key", EnvVars: []string{"R2_SECRET_ACCESS_KEY"}},
		&cli.StringFlag{Name: "storage-domain", Usage: "Data-plane host suffix", EnvVars: []string{"R2_STORAGE_DOMAIN"}},
		&cli.StringFlag{Name: "storage-endpoint", Usage: "Data-plane endpoint override (scheme and host)", EnvVars: []string{"R2_STORAGE_ENDPOINT"}},
		&cli.DurationFlag{Name: "timeout", Usage: "HTTP timeout per request", Value: 30 * time.Second, EnvVars: []string{"R2_HTTP_TIMEOUT"}},
		&cli.StringFlag{Name: "log-level", Usage: "Log level", Value: "warn", EnvVars: []string{"LOG_LEVEL"}},
		&cli.StringFlag{Name: "db-url", Usage: "Record every operation in this Postgres audit log", EnvVars: []string{"DATABASE_URL"}},
	}
}

func credentialFrom(c *cli.Context) domain.Credential {
	return domain.Credential{
		AccountID:       c.String("account-id"),
		APIToken:        c.String("api-token"),
		APIEndpoint:     c.String("api-endpoint"),
		AccessKeyID:     c.String("access-key-id"),
		SecretAccessKey: c.String("secret-access-key"),
	}
}

func initService(c *cli.Context) error {
	logger.SetLevel(c.String("log-level"))

	httpClient := transport.NewHTTPClient(transport.Options{Timeout: c.Duration("timeout")})
	client, err := r2.New(httpClient, r2.Options{
		StorageDomain:   c.String("storage-domain"),
		StorageEndpoint: c.String("storage-endpoint"),
	})
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	audit := repository.NewNoopAuditRepository()
	if dbURL := c.String("db-url"); dbURL != "" {
		db, err := postgres.Open(postgres.DriverPGX, dbURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		repo := postgres.NewAuditRepository(db)
		if err := repo.EnsureSchema(c.Context); err != nil {
			db.Close()
			return fmt.Errorf("failed to prepare audit schema: %w", err)
		}
		audit = repo
		c.Context = context.WithValue(c.Context, dbKey, db)
	}

	svc := service.NewStorageService(client, cache.NewNoopBucketCache(), audit)
	c.Context = context.WithValue(c.Context, serviceKey, svc)
	return nil
}

func closeService(c *cli.Context) error {
	if db, ok := c.Context.Value(dbKey).(*postgres.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func storageService(c *cli.Context) (*service.StorageService, error) {
	svc, ok := c.Context.Value(serviceKey).(*service.StorageService)
	if !ok || svc == nil {
		return nil, fmt.Errorf("storage service not initialized")
	}
	return svc, nil
}

func main() {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:   "r2ctl",
		Usage:  "Manage Cloudflare R2 buckets and objects",
		Flags:  globalFlags(),
		Before: initService,
		After:  closeService,
		Commands: []*cli.Command{
			bucketCommand(),
			objectCommand(),
			batchCommand(),
			runCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
