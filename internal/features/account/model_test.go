package account

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvailable(t *testing.T) {
	tests := []struct {
		name    string
		account LinkedInAccount
		want    bool
	}{
		{"connected", LinkedInAccount{Status: StatusConnected}, true},
		{"paused", LinkedInAccount{Status: StatusConnected, Paused: true}, false},
		{"disconnected", LinkedInAccount{Status: StatusDisconnected}, false},
		{"error", LinkedInAccount{Status: StatusError}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.account.Available())
		})
	}
}

func TestLocation(t *testing.T) {
	fallback := time.FixedZone("fallback", 3600)

	var missing *LinkedInAccount
	assert.Equal(t, fallback, missing.Location(fallback))
	assert.Equal(t, fallback, (&LinkedInAccount{}).Location(fallback))
	assert.Equal(t, fallback, (&LinkedInAccount{Timezone: "Nowhere/Town"}).Location(fallback))
	assert.Equal(t, "Asia/Kolkata", (&LinkedInAccount{Timezone: "Asia/Kolkata"}).Location(fallback).String())
}

func TestLocationCachesZones(t *testing.T) {
	a := &LinkedInAccount{Timezone: "Europe/Berlin"}
	first := a.Location(time.UTC)
	require.NotNil(t, first)
	assert.Same(t, first, a.Location(time.UTC))
	assert.Same(t, first, (&LinkedInAccount{Timezone: "Europe/Berlin"}).Location(time.UTC))

	bad := &LinkedInAccount{Timezone: "Nowhere/Town"}
	assert.Equal(t, time.UTC, bad.Location(time.UTC))
	assert.Equal(t, time.Local, bad.Location(time.Local))
}
