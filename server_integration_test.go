package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"testing"

	"bootcamps/pkg/geocode"

	"github.com/gin-gonic/gin"
	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubGeocoder struct{}

func (stubGeocoder) Geocode(_ context.Context, address string) (*geocode.Result, error) {
	return &geocode.Result{
		Latitude:         42.3471,
		Longitude:        -71.0826,
		FormattedAddress: address,
		City:             "Boston",
		State:            "MA",
		Zipcode:          "02118",
		Country:          "US",
	}, nil
}

func setupTestServer(t *testing.T) *gin.Engine {
	// integration tests are opt-in. Set DB_DSN_TEST=1 and DB_DSN to run them.
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	gin.SetMode(gin.TestMode)
	var err error
	cfg, err = loadConfig()
	require.NoError(t, err)
	cfg.UploadBase = t.TempDir()
	cfg.AutoMigrate = true
	logger = zap.NewNop()
	registerValidators()
	initDB()
	initServices()
	mail = &fakeMailer{}
	geocoder = stubGeocoder{}
	return newRouter()
}

func createdID(t *testing.T, body map[string]any) uint {
	t.Helper()
	data, ok := body["data"].(map[string]any)
	require.True(t, ok, "no data in %v", body)
	id, ok := data["id"].(float64)
	require.True(t, ok, "no id in %v", data)
	return uint(id)
}

func TestFullFlow(t *testing.T) {
	r := setupTestServer(t)
	suffix := strings.ToLower(ksuid.New().String())
	e := &testEnv{r: r}

	publisher := e.signup(t, "pub-"+suffix+"@example.com", "publisher")
	reviewer := e.signup(t, "rev-"+suffix+"@example.com", "")

	// 1. publisher creates a bootcamp
	name := "Camp " + suffix
	resp := performRequest(r, http.MethodPost, "/api/bootcamps", map[string]any{
		"name":        name,
		"description": "Full stack web development",
		"website":     "https://Devworks.example.com",
		"address":     "233 Bay State Rd Boston MA 02215",
		"careers":     []string{"Web Development", "UI/UX"},
		"housing":     true,
	}, publisher)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	campID := createdID(t, decode(t, resp))

	// a second bootcamp by the same publisher is refused
	resp = performRequest(r, http.MethodPost, "/api/bootcamps", map[string]any{
		"name": name + "x", "description": "again", "address": "Boston", "careers": []string{"Other"},
	}, publisher)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	// 2. courses drive averageCost
	for _, tuition := range []float64{10000, 12500} {
		resp = performRequest(r, http.MethodPost, fmt.Sprintf("/api/bootcamps/%d/courses", campID), map[string]any{
			"title": "Course", "description": "d", "weeks": 8, "tuition": tuition, "minimumSkill": "beginner",
		}, publisher)
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	}
	resp = performRequest(r, http.MethodGet, fmt.Sprintf("/api/bootcamps/%d", campID), nil, "")
	require.Equal(t, http.StatusOK, resp.Code)
	camp := decode(t, resp)["data"].(map[string]any)
	assert.Equal(t, 11250.0, camp["averageCost"])
	assert.Equal(t, "https://devworks.example.com", camp["website"])

	// 3. reviews: one per user per bootcamp, publishers cannot review
	reviewPath := fmt.Sprintf("/api/bootcamps/%d/reviews", campID)
	review := map[string]any{"title": "Great", "review": "Learned a lot", "rating": 8}
	resp = performRequest(r, http.MethodPost, reviewPath, review, reviewer)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	reviewID := createdID(t, decode(t, resp))
	resp = performRequest(r, http.MethodPost, reviewPath, review, reviewer)
	assert.Equal(t, http.StatusConflict, resp.Code)
	resp = performRequest(r, http.MethodPost, reviewPath, review, publisher)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	// 4. query plans on the list endpoints
	resp = performRequest(r, http.MethodGet, "/api/bootcamps?housing=true&averageCost[gte]=11000&fields=name,averageCost&sort=-createdAt&limit=5", nil, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	list := decode(t, resp)
	assert.GreaterOrEqual(t, list["results"], 1.0)
	first := list["data"].([]any)[0].(map[string]any)
	assert.Contains(t, first, "name")
	assert.NotContains(t, first, "description")

	resp = performRequest(r, http.MethodGet, "/api/bootcamps/radius/02118/10/mi", nil, "")
	assert.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	// 5. only the owner or an admin may write
	resp = performRequest(r, http.MethodPatch, fmt.Sprintf("/api/reviews/%d", reviewID), map[string]any{"rating": 2}, publisher)
	assert.Equal(t, http.StatusForbidden, resp.Code)
	resp = performRequest(r, http.MethodPatch, fmt.Sprintf("/api/reviews/%d", reviewID), map[string]any{"rating": 4}, reviewer)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	// 6. deleting the bootcamp takes its courses and reviews with it
	resp = performRequest(r, http.MethodDelete, fmt.Sprintf("/api/bootcamps/%d", campID), nil, publisher)
	require.Equal(t, http.StatusNoContent, resp.Code, resp.Body.String())
	resp = performRequest(r, http.MethodGet, fmt.Sprintf("/api/reviews/%d", reviewID), nil, "")
	assert.Equal(t, http.StatusNotFound, resp.Code)

	// 7. accounts can be removed by their owners
	for _, tok := range []string{publisher, reviewer} {
		resp = performRequest(r, http.MethodDelete, "/api/users/me", nil, tok)
		assert.Equal(t, http.StatusNoContent, resp.Code)
	}
}

func TestMigrateCommand(t *testing.T) {
	setupTestServer(t)
	migrateSchema()
}
