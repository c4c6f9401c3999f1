package clients

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPostgresDSNFromEnv(t *testing.T) {
	t.Setenv("DB_USER", "pulse")
	t.Setenv("DB_PASSWORD", "p@ss:word")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_NAME", "pulseai")

	assert.Equal(t, "postgres://pulse:p%40ss%3Aword@db:5432/pulseai?sslmode=disable", PostgresDSNFromEnv())
}
