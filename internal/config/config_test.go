package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "access")
	t.Setenv("REFRESH_SECRET", "refresh")
	t.Setenv("ADMIN_PHONES", " +998901234567, ,+998907654321")
	t.Setenv("LOGIN_COOLDOWN", "90")
	t.Setenv("REGISTER_COOLDOWN", "45s")

	cfg, err := Load()
	require.NoError(t, err)

	a := cfg.Auth()
	assert.Equal(t, 45*time.Second, a.Register.Cooldown)
	assert.Equal(t, 3, a.Register.MaxAttempts)
	assert.Equal(t, 90*time.Second, a.Login.Cooldown)
	assert.Equal(t, 5, a.Login.MaxAttempts)
	assert.Equal(t, 15*time.Minute, a.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, a.RefreshTTL)
	assert.Equal(t, 5*time.Minute, a.CodeTTL)
	assert.Equal(t, []string{"+998901234567", "+998907654321"}, a.AdminPhones)
}

func TestLoadRejects(t *testing.T) {
	for name, env := range map[string]map[string]string{
		"missing access secret": {"JWT_SECRET": "", "REFRESH_SECRET": "r"},
		"same secrets":          {"JWT_SECRET": "s", "REFRESH_SECRET": "s"},
		"unknown driver":        {"JWT_SECRET": "a", "REFRESH_SECRET": "r", "DB_DRIVER": "mysql"},
		"bad cost":              {"JWT_SECRET": "a", "REFRESH_SECRET": "r", "BCRYPT_COST": "99"},
	} {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
