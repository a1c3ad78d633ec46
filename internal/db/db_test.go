package db

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sparked/internal/config"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.DatabaseConfig
		want string
	}{
		{
			name: "mysql",
			cfg:  config.DatabaseConfig{Driver: "mysql", Host: "db", Port: 3306, User: "u", Password: "p", Name: "sparked"},
			want: "u:p@tcp(db:3306)/sparked?charset=utf8mb4&parseTime=True&loc=UTC",
		},
		{
			name: "postgres",
			cfg:  config.DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, User: "u", Password: "p", Name: "sparked", SSLMode: "disable"},
			want: "host=db user=u password=p dbname=sparked port=5432 sslmode=disable",
		},
		{
			name: "explicit dsn wins",
			cfg:  config.DatabaseConfig{Driver: "mysql", DSN: "root@tcp(127.0.0.1)/x", Host: "ignored"},
			want: "root@tcp(127.0.0.1)/x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DSN(&tt.cfg))
		})
	}
}

func TestDialectorFor_UnknownDriver(t *testing.T) {
	_, err := dialectorFor(&config.DatabaseConfig{Driver: "sqlite"})
	assert.Error(t, err)
}
