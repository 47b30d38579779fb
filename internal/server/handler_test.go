package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/limaJavier/coursecomb/config"
	"github.com/limaJavier/coursecomb/pkg/combinator"
	"github.com/limaJavier/coursecomb/pkg/model"
	"github.com/limaJavier/coursecomb/pkg/share"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Addr:         ":0",
			QueryTimeout: time.Second,
			CORS:         config.CORSConfig{AllowOrigins: []string{"http://localhost:3000"}},
		},
		Filter: config.FilterConfig{MaxCodes: 10, ForbiddenCodes: []string{"HL471"}, ForbiddenInfixes: []string{"900"}},
	}
}

func testSections(t *testing.T) []model.Section {
	t.Helper()
	rows := []struct {
		id        uint64
		code      string
		number    uint64
		timePlace string
	}{
		{0, "A", 1, "Mon09:00-10:30(R1)"},
		{1, "A", 2, "Mon10:30-12:00(R1)"},
		{2, "B", 1, "Mon09:30-10:00(R2)"},
		{3, "C", 1, "Tue09:00-12:00(R3)"},
	}
	sections := make([]model.Section, 0, len(rows))
	for _, row := range rows {
		section, err := model.NewSection(row.id, row.code, row.number, "Course "+row.code, "Kim", 3, row.timePlace)
		require.NoError(t, err)
		sections = append(sections, section)
	}
	return sections
}

func setupTestServer(t *testing.T, cfg *config.Config) (*gin.Engine, share.Store) {
	t.Helper()
	sections := testSections(t)
	comb, err := combinator.NewCombinator(sections, true)
	require.NoError(t, err)
	store := share.NewMemoryStore(share.DefaultKeyLength, 0)
	return New(cfg, sections, comb, store, zap.NewNop()).Router(), store
}

func perform(router *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, Response) {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var response Response
	_ = json.Unmarshal(w.Body.Bytes(), &response)
	return w, response
}

func TestCombine(t *testing.T) {
	router, _ := setupTestServer(t, testConfig())

	t.Run("Success", func(t *testing.T) {
		w, response := perform(router, http.MethodPost, "/comb", gin.H{"req": []string{"A"}, "sel": []string{"B"}})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, statusSuccess, response.Status)
		assert.Equal(t, [][]uint64{{0}, {1}, {1, 2}}, response.Comb)
	})

	t.Run("Fixed as pairs and objects", func(t *testing.T) {
		body := `{"fix": [["A", 1], {"code": "C", "position": 0}], "req": ["B"]}`
		req := httptest.NewRequest(http.MethodPost, "/comb", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		var response Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, [][]uint64{{1, 3, 2}}, response.Comb)
	})

	t.Run("Ranked", func(t *testing.T) {
		w, response := perform(router, http.MethodPost, "/comb", gin.H{"req": []string{"A"}, "sel": []string{"B", "C"}, "rank": 1})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, response.Comb, 1)
	})

	t.Run("No solution", func(t *testing.T) {
		w, response := perform(router, http.MethodPost, "/comb", gin.H{"fix": [][]any{{"A", 0}}, "req": []string{"B"}})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, statusFail, response.Status)
		assert.Equal(t, msgNoCombination, response.Message)
		assert.Nil(t, response.Comb)
	})

	t.Run("Unknown code", func(t *testing.T) {
		w, response := perform(router, http.MethodPost, "/comb", gin.H{"req": []string{"Z"}})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, statusFail, response.Status)
		assert.Contains(t, response.Message, "unknown required code")
	})

	t.Run("Rejected by filter", func(t *testing.T) {
		w, response := perform(router, http.MethodPost, "/comb", gin.H{"req": []string{"BS900"}})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, response.Message, "not allowed")
	})

	t.Run("Malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/comb", strings.NewReader(`{"fix": [["A"]]}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

// slowCombinator outlives any query timeout
type slowCombinator struct {
	combinator.Combinator
}

func (slowCombinator) Combine(fixed []combinator.Fixed, required, selected []string) ([][]uint64, error) {
	time.Sleep(200 * time.Millisecond)
	return nil, errors.New("unreachable")
}

func (slowCombinator) Slots() int { return 0 }

func TestCombineTimeout(t *testing.T) {
	// Arrange
	cfg := testConfig()
	cfg.Server.QueryTimeout = 10 * time.Millisecond
	router := New(cfg, testSections(t), slowCombinator{}, share.NewMemoryStore(0, 0), zap.NewNop()).Router()

	// Act
	w, response := perform(router, http.MethodPost, "/comb", gin.H{"req": []string{"A"}})

	// Assert
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, msgTimeout, response.Message)
}

func TestShare(t *testing.T) {
	router, store := setupTestServer(t, testConfig())

	t.Run("Round trip", func(t *testing.T) {
		w, saved := perform(router, http.MethodPost, "/share", gin.H{"comb": []uint64{1, 2}})
		require.Equal(t, http.StatusOK, w.Code)
		require.Len(t, saved.Key, share.DefaultKeyLength)

		w, loaded := perform(router, http.MethodGet, "/share/"+saved.Key, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, [][]uint64{{1, 2}}, loaded.Comb)

		ids, err := store.Load(context.Background(), saved.Key)
		require.NoError(t, err)
		assert.Equal(t, []uint64{1, 2}, ids)
	})

	t.Run("Empty combination", func(t *testing.T) {
		w, _ := perform(router, http.MethodPost, "/share", gin.H{"comb": []uint64{}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Unknown section", func(t *testing.T) {
		w, response := perform(router, http.MethodPost, "/share", gin.H{"comb": []uint64{1, 42}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, response.Message, "42")
	})

	t.Run("Unknown key", func(t *testing.T) {
		w, response := perform(router, http.MethodGet, "/share/nothing", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, statusFail, response.Status)
	})
}

func TestCatalog(t *testing.T) {
	router, _ := setupTestServer(t, testConfig())

	w, response := perform(router, http.MethodGet, "/catalog", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, response.Sections, 4)
	assert.Equal(t, "A", response.Sections[0].Code)
	assert.Equal(t, []string{"R1"}, response.Sections[0].Rooms)
	assert.Equal(t, "Mon09:00-10:30(R1)", response.Sections[0].TimePlace)
}

func TestExport(t *testing.T) {
	router, _ := setupTestServer(t, testConfig())

	t.Run("Calendar", func(t *testing.T) {
		w, _ := perform(router, http.MethodGet, "/export/ics?ids=1,3&start=2024-03-04&weeks=4", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/calendar")
		assert.Contains(t, w.Body.String(), "BEGIN:VCALENDAR")
		assert.Contains(t, w.Body.String(), "COUNT=4")
	})

	t.Run("Workbook", func(t *testing.T) {
		w, _ := perform(router, http.MethodGet, "/export/xlsx?ids=1", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "PK", w.Body.String()[:2])
	})

	t.Run("Bad requests", func(t *testing.T) {
		for _, path := range []string{
			"/export/pdf?ids=1",
			"/export/ics",
			"/export/ics?ids=1,x",
			"/export/xlsx?ids=99",
			"/export/ics?ids=1&start=yesterday",
			"/export/ics?ids=1&weeks=0",
		} {
			w, response := perform(router, http.MethodGet, path, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code, path)
			assert.Equal(t, statusFail, response.Status, path)
		}
	})
}

func TestMiddleware(t *testing.T) {
	router, _ := setupTestServer(t, testConfig())

	t.Run("Request id is generated", func(t *testing.T) {
		w, _ := perform(router, http.MethodGet, "/health", nil)
		assert.Len(t, w.Header().Get(requestIDHeader), 36)
	})

	t.Run("Request id is propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(requestIDHeader, "trace-1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, "trace-1", w.Header().Get(requestIDHeader))
	})

	t.Run("CORS preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/comb", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("Unknown origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "http://elsewhere")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}
