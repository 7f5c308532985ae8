package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinecriticas/store/internal/service"
)

func TestOrderFailureStatus(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", &service.OrderError{Kind: service.KindValidation, Code: service.CodeNoItems}, http.StatusBadRequest, service.CodeNoItems},
		{"not found", &service.OrderError{Kind: service.KindNotFound, Code: service.CodeProductNotFound, ProductID: 4}, http.StatusBadRequest, service.CodeProductNotFound},
		{"conflict", &service.OrderError{Kind: service.KindConflict, Code: service.CodeInsufficientStock, ProductID: 4}, http.StatusBadRequest, service.CodeInsufficientStock},
		{"payment", &service.OrderError{Kind: service.KindPayment, Code: service.CodePaymentFailed}, http.StatusInternalServerError, service.CodePaymentFailed},
		{"internal", fmt.Errorf("wrapped: %w", &service.OrderError{Kind: service.KindInternal, Code: service.CodeInternal, Err: errors.New("db gone")}), http.StatusInternalServerError, service.CodeInternal},
		{"untyped", errors.New("boom"), http.StatusInternalServerError, service.CodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := echo.New().NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)
			require.NoError(t, orderFailure(c, tc.err))
			assert.Equal(t, tc.status, rec.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tc.code, body["code"])
			assert.NotContains(t, body["error"], "db gone")
		})
	}
}

func TestGetUserIDRequiresAuth(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	_, err := getUserID(c)
	assert.Error(t, err)

	c.Set("user_id", uint64(7))
	id, err := getUserID(c)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), id)
}
