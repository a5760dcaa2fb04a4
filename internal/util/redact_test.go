package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactSecrets(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "plain", in: " connection reset by peer ", want: "connection reset by peer"},
		{name: "bearer", in: "401: Authorization: Bearer abc.def.ghi rejected", want: "401: Authorization: Bearer <redacted> rejected"},
		{name: "header kv", in: "request failed x-api-key: sk-ant-api03-abcdefghij", want: "request failed <redacted_kv>"},
		{name: "query kv", in: "GET /v1beta/models?key=1&api_key=secret123", want: "GET /v1beta/models?key=1&<redacted_kv>"},
		{name: "anthropic literal", in: "invalid key sk-ant-api03-abcdefghijkl", want: "invalid key <redacted_key>"},
		{name: "google literal", in: "API key AIzaSyA1234567890abcdefghijklmnopqrstu not valid", want: "API key <redacted_key> not valid"},
		{name: "quota text survives", in: "Error code: 429 - insufficient_quota", want: "Error code: 429 - insufficient_quota"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RedactSecrets(tt.in))
		})
	}
}
