package httputil

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Foxglovery/BA-google-sheet-magic/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"app error", errors.BadRequest("product is required"), http.StatusBadRequest, "BAD_REQUEST"},
		{"wrapped app error", fmt.Errorf("edit: %w", errors.Unavailable("sheet busy")), http.StatusServiceUnavailable, "UNAVAILABLE"},
		{"deadline", fmt.Errorf("lock: %w", context.DeadlineExceeded), http.StatusServiceUnavailable, "UNAVAILABLE"},
		{"plain error", fmt.Errorf("disk on fire"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			Error(rr, tt.err)

			assert.Equal(t, tt.status, rr.Code)
			var body Response
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.code, body.Error.Code)
			assert.NotContains(t, rr.Body.String(), "disk on fire")
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Sheet string `json:"sheet"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"sheet":"Orders & Retail"}`))
	require.NoError(t, DecodeJSON(req, &v))
	assert.Equal(t, "Orders & Retail", v.Sheet)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"sheet":"x","colour":"red"}`))
	assert.True(t, errors.Is(DecodeJSON(req, &v), errors.ErrBadRequest))
}
