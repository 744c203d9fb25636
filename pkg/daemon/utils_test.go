package daemon

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
)

func TestGinLoggerPicksLevelByStatus(t *testing.T) {
	logger, hook := logrustest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ginLogger(logger))
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	router.GET("/broken", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	tests := []struct {
		path  string
		code  int
		level logrus.Level
	}{
		{"/ok", http.StatusOK, logrus.DebugLevel},
		{"/missing", http.StatusNotFound, logrus.WarnLevel},
		{"/broken", http.StatusInternalServerError, logrus.ErrorLevel},
	}
	for _, tt := range tests {
		hook.Reset()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if w.Code != tt.code {
			t.Errorf("GET %s = %d, want %d", tt.path, w.Code, tt.code)
		}

		entries := hook.AllEntries()
		if len(entries) != 1 {
			t.Fatalf("GET %s produced %d log entries, want 1", tt.path, len(entries))
		}
		if entries[0].Level != tt.level {
			t.Errorf("GET %s logged at %s, want %s", tt.path, entries[0].Level, tt.level)
		}
		if entries[0].Data["path"] != tt.path {
			t.Errorf("log entry path = %v, want %s", entries[0].Data["path"], tt.path)
		}
	}
}
