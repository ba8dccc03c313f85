package discovery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/arena-server/internal/config"
)

func TestBuildRegistration(t *testing.T) {
	reg, err := buildRegistration(config.ConsulConfig{
		ServiceName:   "arena-server",
		AdvertiseHost: "arena-1",
		CheckInterval: 10 * time.Second,
	}, "0.0.0.0:8080")
	require.NoError(t, err)

	assert.Equal(t, "arena-server-arena-1-8080", reg.ID)
	assert.Equal(t, "arena-server", reg.Name)
	assert.Equal(t, "arena-1", reg.Address)
	assert.Equal(t, 8080, reg.Port)
	require.NotNil(t, reg.Check)
	assert.Equal(t, "http://arena-1:8080/healthz", reg.Check.HTTP)
	assert.Equal(t, "10s", reg.Check.Interval)
}

func TestBuildRegistration_ExplicitID(t *testing.T) {
	reg, err := buildRegistration(config.ConsulConfig{ServiceName: "arena", ServiceID: "arena-a", AdvertiseHost: "h"}, ":9000")
	require.NoError(t, err)
	assert.Equal(t, "arena-a", reg.ID)
	assert.Equal(t, 9000, reg.Port)
}

func TestBuildRegistration_BadAddress(t *testing.T) {
	_, err := buildRegistration(config.ConsulConfig{ServiceName: "arena"}, "no-port")
	assert.Error(t, err)

	_, err = buildRegistration(config.ConsulConfig{ServiceName: "arena"}, "host:http")
	assert.Error(t, err)
}
