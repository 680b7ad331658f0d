package utils

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func performRequest(t *testing.T, handler fiber.Handler) (*http.Response, APIResponse) {
	t.Helper()

	app := fiber.New()
	app.Get("/", handler)

	req, err := http.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, err)

	resp, err := app.Test(req)
	require.NoError(t, err)

	var payload APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return resp, payload
}

func TestSendSuccess(t *testing.T) {
	resp, payload := performRequest(t, func(c *fiber.Ctx) error {
		return SendSuccess(c, "graded", map[string]int{"score": 15})
	})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, payload.Success)
	require.Equal(t, "graded", payload.Message)
	require.NotNil(t, payload.Data)
}

func TestSendSuccessDefaultMessage(t *testing.T) {
	_, payload := performRequest(t, func(c *fiber.Ctx) error {
		return SendSuccess(c, "", nil)
	})

	require.Equal(t, "success", payload.Message)
}

func TestSendError(t *testing.T) {
	resp, payload := performRequest(t, func(c *fiber.Ctx) error {
		return SendError(c, fiber.StatusConflict, "duplicate submission")
	})

	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.False(t, payload.Success)
	require.Equal(t, "duplicate submission", payload.Message)
}
