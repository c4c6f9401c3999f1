package clients

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	postgresInstance Postgres
	postgresOnce     sync.Once
)

type Postgres struct {
	DB *pgxpool.Pool
}

// PostgresDSNFromEnv builds a connection string from the DB_* variables.
func PostgresDSNFromEnv() string {
	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(os.Getenv("DB_USER"), os.Getenv("DB_PASSWORD")),
		Host:     fmt.Sprintf("%s:%s", os.Getenv("DB_HOST"), os.Getenv("DB_PORT")),
		Path:     "/" + os.Getenv("DB_NAME"),
		RawQuery: "sslmode=disable",
	}
	return dsn.String()
}

func NewPostgres(ctx context.Context, dsn string) (Postgres, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return Postgres{}, fmt.Errorf("[PostgresClient] failed to create postgreSQL client: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return Postgres{}, fmt.Errorf("[PostgresClient] Failed to ping PostgreSQL: %w", err)
	}

	slog.Info("[PostgresClient] Connected to PostgreSQL successfully")
	return Postgres{DB: pool}, nil
}

func GetPostgresClient(ctx context.Context, dsn string) Postgres {
	postgresOnce.Do(func() {
		pg, err := NewPostgres(ctx, dsn)
		if err != nil {
			panic(err)
		}
		postgresInstance = pg
	})

	return postgresInstance
}

func (p Postgres) Close() {
	if p.DB != nil {
		p.DB.Close()
	}
}
