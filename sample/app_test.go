package sample

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func do(t *testing.T, method, target, body string) (int, map[string]any) {
	t.Helper()
	status, raw := doRaw(t, method, target, body)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return status, out
}

func doRaw(t *testing.T, method, target, body string) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	resp, err := New().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func TestRoot(t *testing.T) {
	status, body := do(t, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Welcome to the sample application!", body["message"])
}

func TestRandomNumber(t *testing.T) {
	for range 20 {
		status, body := do(t, http.MethodGet, "/random-number?min=10&max=20", "")
		require.Equal(t, http.StatusOK, status)
		n := body["random_number"].(float64)
		assert.GreaterOrEqual(t, n, 10.0)
		assert.LessOrEqual(t, n, 20.0)
	}

	status, body := do(t, http.MethodGet, "/random-number?min=5&max=5", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 5.0, body["random_number"])

	status, body = do(t, http.MethodGet, "/random-number?min=20&max=10", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Min cannot be greater than Max", body["detail"])
}

func TestItems(t *testing.T) {
	status, body := do(t, http.MethodPost, "/items/", `{"name":"Test Item","price":10.0}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]any{"name": "Test Item", "description": nil, "price": 10.0, "tax": nil}, body["item"])

	status, body = do(t, http.MethodPut, "/items/1", `{"name":"Updated Item","description":"An updated item","price":15.0,"tax":2.0}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1.0, body["item_id"])
	assert.Equal(t, map[string]any{"name": "Updated Item", "description": "An updated item", "price": 15.0, "tax": 2.0}, body["item"])

	status, body = do(t, http.MethodDelete, "/items/1", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Item with id 1 has been deleted", body["message"])

	status, _ = do(t, http.MethodPut, "/items/abc", `{"name":"x","price":1}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, http.MethodPost, "/items/", `{"price":1}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestReadUsers(t *testing.T) {
	status, raw := doRaw(t, http.MethodGet, "/users/", "")
	require.Equal(t, http.StatusOK, status)
	var users []User
	require.NoError(t, json.Unmarshal(raw, &users))
	assert.Len(t, users, 10)
	assert.Equal(t, "user1", users[0].Username)

	status, raw = doRaw(t, http.MethodGet, "/users/?skip=5&limit=2", "")
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(raw, &users))
	require.Len(t, users, 2)
	assert.Equal(t, "user6", users[0].Username)

	status, raw = doRaw(t, http.MethodGet, "/users/?skip=99&limit=10", "")
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(raw, &users))
	assert.Len(t, users, 1)

	status, raw = doRaw(t, http.MethodGet, "/users/?skip=500", "")
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(raw, &users))
	assert.Empty(t, users)
}

func TestUsers(t *testing.T) {
	status, body := do(t, http.MethodPost, "/users/", `{"username":"testuser","email":"test@example.com","password":"password"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]any{"username": "testuser", "email": "test@example.com", "full_name": nil, "password": "password"}, body["user"])

	status, body = do(t, http.MethodPut, "/users/testuser", `{"username":"updateduser","email":"updated@example.com","full_name":"Updated User","password":"newpassword"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "testuser", body["username"])
	assert.Equal(t, "Updated User", body["user"].(map[string]any)["full_name"])

	status, _ = do(t, http.MethodPost, "/users/", `{"username":"nobody"}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestDateDifference(t *testing.T) {
	status, body := do(t, http.MethodGet, "/date-difference/?date1=2023-01-01&date2=2023-01-10", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 9.0, body["date_difference"])

	status, body = do(t, http.MethodGet, "/date-difference/?date1=2023-10-10&date2=2023-10-01", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 9.0, body["date_difference"])

	status, _ = do(t, http.MethodGet, "/date-difference/?date1=yesterday&date2=2023-10-01", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestFactorial(t *testing.T) {
	status, body := do(t, http.MethodGet, "/factorial/5", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 120.0, body["factorial"])

	status, body = do(t, http.MethodGet, "/factorial/0", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1.0, body["factorial"])

	status, raw := doRaw(t, http.MethodGet, "/factorial/25", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"factorial":15511210043330985984000000}`, string(raw))

	status, body = do(t, http.MethodGet, "/factorial/-5", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Cannot calculate factorial of a negative number", body["detail"])

	status, _ = do(t, http.MethodGet, "/factorial/1001", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestPrimeFactors(t *testing.T) {
	cases := map[string][]any{
		"28": {2.0, 2.0, 7.0},
		"1":  {},
		"97": {97.0},
	}
	for n, want := range cases {
		status, body := do(t, http.MethodGet, "/prime-factors/"+n, "")
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, want, body["prime_factors"], n)
	}

	status, body := do(t, http.MethodGet, "/prime-factors/0", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Number must be greater than 0", body["detail"])
}

func TestStringUtilities(t *testing.T) {
	status, body := do(t, http.MethodGet, "/reverse/?text=h%C3%A9llo", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "olléh", body["reversed"])

	status, body = do(t, http.MethodGet, "/palindrome/?text=A%20man%2C%20a%20plan%2C%20a%20canal%3A%20Panama", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["is_palindrome"])

	status, body = do(t, http.MethodGet, "/palindrome/?text=testgen", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["is_palindrome"])
}
