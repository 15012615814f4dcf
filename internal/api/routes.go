package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bettensor-sim/reputation-engine/internal/obsmetrics"
	"github.com/bettensor-sim/reputation-engine/internal/scoring"
	"github.com/bettensor-sim/reputation-engine/pkg/models"
)

var errOutOfRange = errors.New("uid out of range")

// SetupRouter wires the read-only operator/dashboard endpoints plus the
// manual-tick and reset admin actions, gated behind AuthMiddleware and
// RateLimiter the same way the teacher gates its forensics endpoints.
func SetupRouter(engine *scoring.Engine, hub *Hub, rl *RateLimiter) *gin.Engine {
	r := gin.Default()

	r.GET("/ws", hub.Subscribe)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	v1.Use(rl.Middleware())
	{
		v1.GET("/health", healthHandler(engine))
		v1.GET("/weights", weightsHandler(engine))
		v1.GET("/tiers", tiersHandler(engine))
		v1.GET("/miners/:uid", minerHandler(engine))
		v1.GET("/miners/:uid/history", minerHistoryHandler(engine))

		admin := v1.Group("")
		admin.Use(AuthMiddleware())
		admin.POST("/tick", manualTickHandler(engine))
		admin.POST("/miners/:uid/reset", resetMinerHandler(engine))
	}

	return r
}

func healthHandler(engine *scoring.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":     "ok",
			"currentDay": engine.Store.CurrentDay,
			"miners":     engine.Store.M,
			"window":     engine.Store.D,
		})
	}
}

func weightsHandler(engine *scoring.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		day := engine.Store.CurrentDay
		tierCol := engine.Store.GetTierCol(day)
		composite := make([]float64, engine.Store.M)
		for uid := 0; uid < engine.Store.M; uid++ {
			composite[uid] = engine.Store.GetComposite(uid, day, 0)
		}
		c.JSON(http.StatusOK, gin.H{
			"day":       day,
			"composite": composite,
			"tiers":     tierCol,
		})
	}
}

func tiersHandler(engine *scoring.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		day := engine.Store.CurrentDay
		tierCol := engine.Store.GetTierCol(day)
		counts := make(map[string]int)
		names := map[models.Tier]string{
			models.TierEmpty: "empty", models.TierInvalid: "invalid",
			models.TierT1: "t1", models.TierT2: "t2", models.TierT3: "t3",
			models.TierT4: "t4", models.TierT5: "t5",
		}
		for _, t := range tierCol {
			counts[names[t]]++
		}
		c.JSON(http.StatusOK, gin.H{"day": day, "tiers": tierCol, "counts": counts})
	}
}

func minerHandler(engine *scoring.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, err := parseUID(c, engine.Store.M)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		day := engine.Store.CurrentDay
		c.JSON(http.StatusOK, gin.H{
			"uid":       uid,
			"tier":      engine.Store.GetTier(int(uid), day),
			"composite": engine.Store.GetComposite(int(uid), day, 0),
			"clv":       engine.Store.Get(engine.Store.CLV, int(uid), day),
			"roi":       engine.Store.Get(engine.Store.ROI, int(uid), day),
			"sortino":   engine.Store.Get(engine.Store.Sortino, int(uid), day),
			"entropy":   engine.Store.Get(engine.Store.Entropy, int(uid), day),
			"wagered":   engine.Store.Get(engine.Store.AmountWagered, int(uid), day),
		})
	}
}

func minerHistoryHandler(engine *scoring.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, err := parseUID(c, engine.Store.M)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		metric := c.DefaultQuery("metric", "composite")
		days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))

		series, err := engine.History(uid, metric, days)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"uid": uid, "metric": metric, "history": series})
	}
}

func manualTickHandler(engine *scoring.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in models.TickInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		out, err := engine.Tick(in)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

func resetMinerHandler(engine *scoring.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, err := parseUID(c, engine.Store.M)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := engine.ResetMiner(uid); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		obsmetrics.IncMinersReset()
		c.JSON(http.StatusOK, gin.H{"uid": uid, "status": "reset"})
	}
}

func parseUID(c *gin.Context, m int) (models.UID, error) {
	n, err := strconv.Atoi(c.Param("uid"))
	if err != nil {
		return 0, err
	}
	if n < 0 || n >= m {
		return 0, errOutOfRange
	}
	return models.UID(n), nil
}
