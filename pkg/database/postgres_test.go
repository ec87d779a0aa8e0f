package database

import (
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/ams-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "attendance", SSLMode: "disable"})
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=attendance sslmode=disable", dsn)
}

func TestViolationHelpers(t *testing.T) {
	unique := fmt.Errorf("insert batch: %w", &pq.Error{Code: "23505"})
	fk := &pq.Error{Code: "23503"}

	assert.True(t, IsUniqueViolation(unique))
	assert.False(t, IsUniqueViolation(fk))
	assert.True(t, IsForeignKeyViolation(fk))
	assert.False(t, IsForeignKeyViolation(fmt.Errorf("plain")))
}
