package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListenPort(t *testing.T) {
	tests := []struct {
		name     string
		flagPort int
		endpoint string
		want     int
	}{
		{"flag wins", 9000, "http://localhost:8101", 9000},
		{"endpoint port", 0, "http://localhost:8102", 8102},
		{"endpoint without port", 0, "http://bank-a.internal", defaultPort},
		{"no endpoint", 0, "", defaultPort},
		{"unparseable endpoint", 0, "://bad", defaultPort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, listenPort(tt.flagPort, tt.endpoint))
		})
	}
}
