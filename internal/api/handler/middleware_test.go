package handler

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"casino/internal/datastore"
	"casino/internal/testutil"

	"github.com/go-redis/redis_rate/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveAdmin(apiKey string, header string) *httptest.ResponseRecorder {
	e := echo.New()
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "reached:"+resolveActor(c))
	}, AuthnAdmin(apiKey))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(headerAPIKey, header)
	}
	req.Header.Set(headerActor, "mod-1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAuthnAdmin(t *testing.T) {
	rec := serveAdmin("secret", "secret")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "reached:mod-1", rec.Body.String())

	for _, header := range []string{"", "wrong"} {
		rec := serveAdmin("secret", header)
		assert.NotContains(t, rec.Body.String(), "reached")
	}

	// an unset key never opens the api
	rec = serveAdmin("", "")
	assert.NotContains(t, rec.Body.String(), "reached")
}

func TestParseTransactionFilter(t *testing.T) {
	e := echo.New()
	parse := func(query string) (datastore.TransactionFilter, error) {
		req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
		return parseTransactionFilter(e.NewContext(req, httptest.NewRecorder()))
	}

	filter, err := parse("user_id=u1&source=game:*&reverted=only&since=2024-03-01T00:00:00Z&min_abs=-50&limit=20")
	require.NoError(t, err)
	assert.Equal(t, "u1", filter.UserID)
	assert.Equal(t, "game:*", filter.Source)
	assert.Equal(t, datastore.RevertedOnly, filter.Reverted)
	require.NotNil(t, filter.Since)
	assert.Equal(t, 2024, filter.Since.Year())
	assert.Nil(t, filter.Until)
	assert.Equal(t, int64(-50), filter.MinAbs)
	assert.Equal(t, 20, filter.Limit)

	for _, query := range []string{"reverted=maybe", "since=yesterday", "min_abs=x", "limit=ten"} {
		_, err := parse(query)
		assert.Error(t, err, query)
	}
}

func TestThrottleAdmin(t *testing.T) {
	if !testutil.EnableIntegrationTest() || os.Getenv("REDIS_URL") == "" {
		t.Skip("set RUN_INTEGRATION_TEST and REDIS_URL to run against redis")
	}

	opts, err := redis.ParseURL(os.Getenv("REDIS_URL"))
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { client.Close() })

	e := echo.New()
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "reached")
	}, ThrottleAdmin(redis_rate.NewLimiter(client), 2))

	actor := uuid.NewString()
	serve := func(actor string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(headerActor, actor)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		assert.Equal(t, "reached", serve(actor).Body.String(), "call %d", i)
	}
	rec := serve(actor)
	assert.NotContains(t, rec.Body.String(), "reached")
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// the budget is per actor
	assert.Equal(t, "reached", serve(uuid.NewString()).Body.String())
}
