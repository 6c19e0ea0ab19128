package main

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pidmodels "rdmrecords/internal/pids/models"
	"rdmrecords/internal/platform/config"
	"rdmrecords/internal/platform/logger"
	"rdmrecords/internal/platform/middleware"
	"rdmrecords/internal/records/handler"
	"rdmrecords/pkg/testutil"
)

func testConfig() config.Config {
	return config.Config{
		Server: config.Server{JWTSigningKey: "test-key", JWTIssuer: "rdm"},
		PIDs: config.PIDsConfig{
			DOIPrefix:        "10.1234",
			DOIIDPrefix:      "rdm",
			OAIHost:          "repo.test",
			LandingBase:      "https://repo.test",
			BreakerThreshold: 3,
			BreakerCooldown:  time.Second,
		},
	}
}

func newTestApp(t *testing.T) *app {
	t.Helper()
	reg := prometheus.NewRegistry()
	a, err := buildApp(context.Background(), testConfig(), logger.Discard(), reg, reg)
	require.NoError(t, err)
	t.Cleanup(a.close)
	return a
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	token, err := middleware.NewHS256Validator("test-key", "rdm").Issue(userID, "test", time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestSingleProcessLifecycle(t *testing.T) {
	a := newTestApp(t)
	require.NotNil(t, a.dispatcher, "no database means in-process dispatch")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = a.dispatcher.Run(ctx) }()

	router := newRouter(a)
	auth := bearer(t, "u1")

	testutil.Given(t, "an authenticated caller", func(t *testing.T) {
		var draft *handler.DraftResponse

		testutil.When(t, "creating a draft", func(t *testing.T) {
			req := testutil.NewJSONRequest(t, http.MethodPost, "/records", map[string]any{
				"metadata": map[string]any{"title": "Soil samples"},
			})
			req.Header.Set("Authorization", auth)
			rr := testutil.DoRequest(router, req)

			testutil.Then(t, "the draft is stored without identifiers", func(t *testing.T) {
				testutil.AssertStatus(t, rr, http.StatusCreated)
				draft = testutil.UnmarshalResponse[handler.DraftResponse](t, rr)
				assert.Empty(t, draft.PIDs)
				assert.NotEmpty(t, rr.Header().Get(middleware.RequestIDHeader))
			})
		})

		testutil.When(t, "publishing it", func(t *testing.T) {
			require.NotNil(t, draft)
			req := testutil.NewRequestWithBody(t, http.MethodPost, "/records/"+draft.ID+"/draft/actions/publish", "")
			req.Header.Set("Authorization", auth)
			rr := testutil.DoRequest(router, req)

			testutil.Then(t, "the record has reserved identifiers that the dispatcher registers", func(t *testing.T) {
				testutil.AssertStatus(t, rr, http.StatusAccepted)
				record := testutil.UnmarshalResponse[handler.RecordResponse](t, rr)
				assert.Equal(t, pidmodels.StatusReserved, record.PIDs["doi"].Status)

				assert.Eventually(t, func() bool {
					stored, err := a.service.GetRecord(context.Background(), draft.ID)
					return err == nil &&
						stored.PIDs["doi"].Status == pidmodels.StatusRegistered &&
						stored.PIDs["oai"].Status == pidmodels.StatusRegistered
				}, 2*time.Second, 10*time.Millisecond)
			})
		})
	})

	testutil.Given(t, "an anonymous caller", func(t *testing.T) {
		testutil.When(t, "creating a draft", func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewRequestWithBody(t, http.MethodPost, "/records", "{}"))

			testutil.Then(t, "the request is rejected", func(t *testing.T) {
				testutil.AssertStatus(t, rr, http.StatusUnauthorized)
			})
		})
	})
}

func TestOperationalEndpoints(t *testing.T) {
	router := newRouter(newTestApp(t))

	rr := testutil.DoRequest(router, testutil.NewRequestWithBody(t, http.MethodGet, "/healthz", ""))
	testutil.AssertStatus(t, rr, http.StatusOK)
	rr = testutil.DoRequest(router, testutil.NewRequestWithBody(t, http.MethodGet, "/readyz", ""))
	testutil.AssertStatus(t, rr, http.StatusOK)

	_ = testutil.DoRequest(router, testutil.NewRequestWithBody(t, http.MethodGet, "/records/missing", ""))
	rr = testutil.DoRequest(router, testutil.NewRequestWithBody(t, http.MethodGet, "/metrics", ""))
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Contains(t, rr.Body.String(), "rdm_http_requests_total")
}

func TestWorkerCommandsNeedBackends(t *testing.T) {
	a := newTestApp(t)
	assert.Error(t, a.requireOutbox("relay"))
}
