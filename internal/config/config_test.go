package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate checks required fields, defaults and format validations.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Missing DSN.
	cfg := new(Config)
	require.ErrorIs(t, Validate(cfg), errInventoryDSNRequired)

	// Defaults filled.
	cfg = &Config{Inventory: InventoryConfig{DSN: "postgres://localhost/inventory"}}
	require.NoError(t, Validate(cfg))
	require.Equal(t, DefaultReconcileInterval, cfg.ReconcileInterval)
	require.Equal(t, PanelBackendFile, cfg.Panel.Backend)
	require.Equal(t, DefaultPanelKey, cfg.Panel.Key)
	require.Equal(t, DefaultProServerTag, cfg.ProServer.Tag)
	require.Equal(t, DefaultNotifyTimeout, cfg.ProServer.Timeout)
	require.Equal(t, DefaultCORSOrigins(), cfg.CORSOrigins)

	// Bad socket.
	cfg = &Config{
		HTTPAddress: "bad:address",
		Inventory:   InventoryConfig{DSN: "x"},
	}
	require.Error(t, Validate(cfg))

	// Redis backend without address.
	cfg = &Config{
		Inventory: InventoryConfig{DSN: "x"},
		Panel:     PanelConfig{Backend: PanelBackendRedis},
	}
	require.ErrorIs(t, Validate(cfg), errRedisAddressRequired)

	// Unknown backend.
	cfg = &Config{
		Inventory: InventoryConfig{DSN: "x"},
		Panel:     PanelConfig{Backend: "etcd"},
	}
	require.ErrorIs(t, Validate(cfg), errUnknownPanelBackend)

	// Repeat shorter than a minute.
	cfg = &Config{
		Inventory:      InventoryConfig{DSN: "x"},
		NotArmedRepeat: 30 * time.Second,
	}
	require.ErrorIs(t, Validate(cfg), errRepeatTooShort)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")

	cfg := &Config{
		HTTPAddress:       "127.0.0.1:8000",
		ReconcileInterval: 30 * time.Second,
		Inventory:         InventoryConfig{DSN: "host=db user=arming sslmode=disable"},
		Panel: PanelConfig{
			Backend:      PanelBackendRedis,
			RedisAddress: "127.0.0.1:6379",
		},
		ProServer: ProServerConfig{Address: "127.0.0.1:7777"},
	}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.HTTPAddress, loaded.HTTPAddress)
	require.Equal(t, 30*time.Second, loaded.ReconcileInterval)
	require.Equal(t, cfg.Inventory.DSN, loaded.Inventory.DSN)
	require.Equal(t, PanelBackendRedis, loaded.Panel.Backend)
	require.Equal(t, "127.0.0.1:7777", loaded.ProServer.Address)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(DefaultFilePermissions), info.Mode().Perm())
}

// TestLoadAppliesEnvironment verifies PROSERVER_IP/PROSERVER_PORT overrides.
func TestLoadAppliesEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, Save(path, &Config{
		Inventory: InventoryConfig{DSN: "x"},
		ProServer: ProServerConfig{Address: "10.0.0.1:7777"},
	}))

	t.Setenv(EnvProServerIP, "127.0.0.2")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.2:7777", loaded.ProServer.Address)

	t.Setenv(EnvProServerPort, "9999")

	loaded, err = Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.2:9999", loaded.ProServer.Address)
}
