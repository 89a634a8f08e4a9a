// Package api exposes the engines over HTTP.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"terraconquest/errs"
	"terraconquest/game/allocation"
	"terraconquest/game/conquest"
	"terraconquest/game/zonecontrol"
	"terraconquest/socket"
	"terraconquest/store"
)

// Server wires the engines into the HTTP surface.
type Server struct {
	store    store.Store
	ledger   *zonecontrol.Ledger
	alloc    *allocation.Engine
	conquest *conquest.Engine
	hub      *socket.Hub
}

func NewServer(st store.Store, ledger *zonecontrol.Ledger, alloc *allocation.Engine, cq *conquest.Engine, hub *socket.Hub) *Server {
	return &Server{store: st, ledger: ledger, alloc: alloc, conquest: cq, hub: hub}
}

// SetupRouter builds the route table.
func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	api := r.Group("/api")
	{
		api.POST("/activities", s.createActivity)
		api.POST("/activities/:id/allocations", s.allocateCompetitions)

		api.GET("/zones", s.zonesInArea)
		api.GET("/zones/stats", s.areaStats)

		risk := api.Group("/risk")
		{
			risk.GET("/map", s.worldMap)
			risk.GET("/territory/:id", s.territoryDetail)
			risk.POST("/move", s.executeMove)
			risk.GET("/preview", s.previewAttack)
			risk.GET("/battles", s.activeBattles)
			risk.GET("/battles/:id", s.battleDetail)
			risk.GET("/history/conquests", s.conquestHistory)
			risk.GET("/borders/hot", s.hotBorders)
			risk.GET("/user/:id/impact", s.userImpact)
			risk.GET("/user/:id/suggestions", s.suggestions)
		}
	}

	if s.hub != nil {
		r.GET("/ws", gin.WrapF(s.hub.HandleHTTP))
	}

	return r
}

// fail maps the error taxonomy onto HTTP status codes.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errs.IsValidation(err), errs.IsDecode(err), errs.IsOverAllocation(err):
		status = http.StatusBadRequest
	case errs.IsNotFound(err):
		status = http.StatusNotFound
	case errs.IsConflict(err):
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
