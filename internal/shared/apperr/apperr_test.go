package apperr

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{NotFound("session %s", "s-1"), http.StatusNotFound},
		{Conflict("user %s already riding", "7"), http.StatusConflict},
		{InvalidTransition("COMPLETED", "PAUSED"), http.StatusConflict},
		{Validation("latitude out of range"), http.StatusBadRequest},
		{Store("insert session", errors.New("connection reset")), http.StatusInternalServerError},
		{fiber.NewError(http.StatusUnauthorized, "missing bearer token"), http.StatusUnauthorized},
		{fmt.Errorf("record location: %w", NotFound("session")), http.StatusNotFound},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Status(tc.err), "%v", tc.err)
	}
}

func TestStoreKeepsKinds(t *testing.T) {
	nf := NotFound("hazard %s", "h-1")
	assert.Same(t, nf, Store("get hazard", nf))
	assert.Nil(t, Store("noop", nil))

	raw := errors.New("boom")
	err := Store("insert", raw)
	var se *StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "insert", se.Op)
	assert.ErrorIs(t, err, raw)
	assert.Same(t, err, Store("outer", err))
	assert.False(t, Classified(err))
}

func TestErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/missing", func(c *fiber.Ctx) error {
		return NotFound("session %s", "abc")
	})
	app.Get("/http", func(c *fiber.Ctx) error {
		return HTTP(Conflict("already active"))
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"error":"not found: session abc"}`, string(body))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/http", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(NotFound("x")))
	assert.True(t, IsNotFound(fmt.Errorf("wrapped: %w", NotFound("x"))))
	assert.False(t, IsNotFound(Conflict("x")))
	assert.False(t, IsNotFound(nil))
}
