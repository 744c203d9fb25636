package daemon

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Guanran928/upower-notify/pkg/config"
	"github.com/Guanran928/upower-notify/pkg/events"
	"github.com/Guanran928/upower-notify/pkg/version"
)

func setupRoutes(mon *Monitor, conf *config.Config, hub *events.Hub) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logrus.StandardLogger()))
	router.GET("/status", getStatus(mon))
	router.GET("/config", getConfig(conf))
	router.GET("/version", getVersion)
	router.GET("/events", streamEvents(hub))

	return router
}

func getStatus(mon *Monitor) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, ok := mon.Status()
		if !ok {
			c.IndentedJSON(http.StatusServiceUnavailable, "battery status not known yet")
			return
		}
		c.IndentedJSON(http.StatusOK, st)
	}
}

func getConfig(conf *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.IndentedJSON(http.StatusOK, conf)
	}
}

func getVersion(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, version.Version)
}

// streamEvents pushes status and transition events to the client as SSE
// until it disconnects.
func streamEvents(hub *events.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ch := hub.Subscribe()
		defer hub.Unsubscribe(ch)

		clientGone := c.Request.Context().Done()
		c.Stream(func(_ io.Writer) bool {
			select {
			case <-clientGone:
				return false
			case ev, ok := <-ch:
				if !ok {
					return false
				}
				c.SSEvent(ev.Name, string(ev.Data))
				return true
			}
		})
	}
}
