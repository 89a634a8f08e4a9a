package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"terraconquest/game/allocation"
	"terraconquest/game/conquest"
	"terraconquest/game/hexgrid"
	"terraconquest/models"
)

type activityRequest struct {
	UserID        uuid.UUID  `json:"user_id" binding:"required"`
	TeamID        *uuid.UUID `json:"team_id"`
	ActivityType  string     `json:"activity_type"`
	DistanceKm    float64    `json:"distance_km" binding:"required"`
	Polyline      *string    `json:"polyline"`
	StartLat      *float64   `json:"start_lat"`
	StartLng      *float64   `json:"start_lng"`
	IsGymActivity bool       `json:"is_gym_activity"`
	AssignedZones []string   `json:"assigned_zones"`
	Source        string     `json:"source"`
	RecordedAt    *time.Time `json:"recorded_at"`
}

func (s *Server) createActivity(c *gin.Context) {
	var req activityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	activity := &models.Activity{
		UserID:        req.UserID,
		TeamID:        req.TeamID,
		ActivityType:  req.ActivityType,
		DistanceKm:    req.DistanceKm,
		Polyline:      req.Polyline,
		StartLat:      req.StartLat,
		StartLng:      req.StartLng,
		IsGymActivity: req.IsGymActivity,
		AssignedZones: req.AssignedZones,
		Source:        req.Source,
		RecordedAt:    time.Now().UTC(),
	}
	if req.RecordedAt != nil {
		activity.RecordedAt = req.RecordedAt.UTC()
	}

	if err := s.alloc.Validate(activity); err != nil {
		fail(c, err)
		return
	}
	activity.PointsEarned = s.alloc.BasePoints(activity)

	if err := s.store.CreateActivity(activity); err != nil {
		fail(c, err)
		return
	}

	zones, err := s.alloc.AllocateActivity(activity)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"activity":       activity,
		"affected_zones": zones,
	})
}

func (s *Server) allocateCompetitions(c *gin.Context) {
	activityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid activity id"})
		return
	}

	var body struct {
		Allocations []allocation.CompetitionRequest `json:"allocations" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	activity, err := s.store.ActivityByID(activityID)
	if err != nil {
		fail(c, err)
		return
	}

	outcome, err := s.alloc.AllocateCompetitions(activity, body.Allocations)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func (s *Server) zonesInArea(c *gin.Context) {
	lat, lng, radius, ok := areaParams(c)
	if !ok {
		return
	}
	zones, err := s.ledger.ZonesInArea(lat, lng, radius)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"zones": zones, "count": len(zones)})
}

func (s *Server) areaStats(c *gin.Context) {
	lat, lng, radius, ok := areaParams(c)
	if !ok {
		return
	}
	stats, err := s.ledger.AreaStats(lat, lng, radius)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) worldMap(c *gin.Context) {
	zoom := c.DefaultQuery("zoom", "world")
	views, err := s.conquest.WorldMap(zoom)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"zoom": zoom, "territories": views})
}

func (s *Server) territoryDetail(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid territory id"})
		return
	}
	detail, err := s.conquest.TerritoryDetail(id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (s *Server) executeMove(c *gin.Context) {
	var req conquest.MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	outcome, err := s.conquest.ExecuteMove(req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func (s *Server) previewAttack(c *gin.Context) {
	territoryID, err := uuid.Parse(c.Query("territory_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid territory_id"})
		return
	}
	units, err := strconv.Atoi(c.Query("units"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid units"})
		return
	}
	preview, err := s.conquest.PreviewAttack(territoryID, units)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

func (s *Server) activeBattles(c *gin.Context) {
	battles, err := s.conquest.ActiveBattles(intQuery(c, "limit", 0))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"battles": battles, "count": len(battles)})
}

func (s *Server) battleDetail(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid battle id"})
		return
	}
	detail, err := s.conquest.BattleDetail(id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (s *Server) conquestHistory(c *gin.Context) {
	var territoryID *uuid.UUID
	if raw := c.Query("territory_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid territory_id"})
			return
		}
		territoryID = &id
	}
	history, err := s.conquest.History(territoryID, intQuery(c, "limit", 0))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conquests": history, "count": len(history)})
}

func (s *Server) hotBorders(c *gin.Context) {
	borders, err := s.conquest.HotBorders(intQuery(c, "limit", 0))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"borders": borders, "count": len(borders)})
}

func (s *Server) userImpact(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	impact, err := s.conquest.UserImpact(id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, impact)
}

// suggestions takes the user's team via query because team membership lives
// outside this service.
func (s *Server) suggestions(c *gin.Context) {
	teamID, err := uuid.Parse(c.Query("team_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid team_id"})
		return
	}
	items, err := s.conquest.StrategicSuggestions(teamID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": items, "count": len(items)})
}

func areaParams(c *gin.Context) (lat, lng, radius float64, ok bool) {
	var err error
	if lat, err = strconv.ParseFloat(c.Query("lat"), 64); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lat"})
		return 0, 0, 0, false
	}
	if lng, err = strconv.ParseFloat(c.Query("lng"), 64); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lng"})
		return 0, 0, 0, false
	}
	radius, err = strconv.ParseFloat(c.DefaultQuery("radius_km", "2"), 64)
	if err != nil || radius <= 0 || radius > hexgrid.MaxRadiusKm {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid radius_km"})
		return 0, 0, 0, false
	}
	return lat, lng, radius, true
}

func intQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
