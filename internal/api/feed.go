package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/revisor/internal/middleware"
	"github.com/persistorai/revisor/internal/ws"
)

// feedHandler upgrades to a WebSocket that streams committed changes. With
// scoped set, only events for the :id document are delivered. CORS origins
// double as allowed WebSocket origin patterns.
func feedHandler(appCtx context.Context, log *logrus.Logger, hub *ws.Hub, origins []string, scoped bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		documentID := ""
		if scoped {
			ids := pathIDs(c, "id")
			if ids == nil {
				return
			}
			documentID = ids[0]
		}

		if err := hub.Serve(appCtx, c.Writer, c.Request, documentID, origins); err != nil {
			middleware.Logger(c, log).WithError(err).Warn("feed.accept_failed")
		}
	}
}
