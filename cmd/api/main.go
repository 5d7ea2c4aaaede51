package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/HalimKing/Teacher-to-class-ms-sub001/internal/attendance"
	"github.com/HalimKing/Teacher-to-class-ms-sub001/internal/auth"
	"github.com/HalimKing/Teacher-to-class-ms-sub001/internal/config"
	"github.com/HalimKing/Teacher-to-class-ms-sub001/internal/directory"
	"github.com/HalimKing/Teacher-to-class-ms-sub001/internal/geo"
	"github.com/HalimKing/Teacher-to-class-ms-sub001/internal/httpmiddleware"
	"github.com/HalimKing/Teacher-to-class-ms-sub001/internal/metrics"
	"github.com/HalimKing/Teacher-to-class-ms-sub001/internal/queue"
	"github.com/HalimKing/Teacher-to-class-ms-sub001/internal/store"
	"github.com/HalimKing/Teacher-to-class-ms-sub001/internal/timetable"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := runHTTP(cfg, logger); err != nil {
		logger.Fatal("http server failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" || env == "prod" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func runHTTP(cfg config.App, logger *zap.Logger) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "attendance:events")
	}

	dir := directory.NewRepository(db.Client)
	registry := timetable.NewRepository(db.Client)
	ledger := attendance.NewRepository(db.Client)

	scheduling := timetable.NewService(registry, dir, logger)
	att := attendance.NewService(ledger, registry, dir, cfg.LatenessGrace, logger)

	loc := cfg.Location()
	nowFn := func() time.Time { return time.Now().In(loc) }

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Healthy(c.Request.Context())
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	r.POST("/v1/auth/token", func(c *gin.Context) {
		var req struct {
			StaffID string `json:"staff_id" binding:"required"`
			Role    string `json:"role" binding:"required,oneof=teacher admin"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		token, exp, err := auth.Issue(req.StaffID, req.Role, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL)
		if err != nil {
			fail(c, http.StatusInternalServerError, "token issue failed")
			return
		}
		ok(c, http.StatusCreated, gin.H{"access_token": token, "expires_at": exp.Unix()})
	})

	authed := r.Group("/v1", auth.StaffAuth(cfg.JWTSigningKey, cfg.JWTIssuer))

	// Scheduling surface: every write goes through the conflict detector.
	admin := authed.Group("", auth.RequireRole(auth.RoleAdmin))

	admin.POST("/timetables/conflict-check", func(c *gin.Context) {
		cand, err := bindCandidate(c)
		if err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		res, err := scheduling.CheckConflict(c.Request.Context(), cand)
		if err != nil {
			respondErr(c, logger, err)
			return
		}
		metrics.ConflictChecks.WithLabelValues(string(res.Kind)).Inc()
		ok(c, http.StatusOK, res)
	})

	admin.POST("/timetables", func(c *gin.Context) {
		cand, err := bindCandidate(c)
		if err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		entry, err := scheduling.Create(c.Request.Context(), cand)
		if err != nil {
			respondErr(c, logger, err)
			return
		}
		ok(c, http.StatusCreated, entry)
	})

	admin.PUT("/timetables/:id", func(c *gin.Context) {
		cand, err := bindCandidate(c)
		if err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		entry, err := scheduling.Update(c.Request.Context(), c.Param("id"), cand)
		if err != nil {
			respondErr(c, logger, err)
			return
		}
		ok(c, http.StatusOK, entry)
	})

	admin.DELETE("/timetables/:id", func(c *gin.Context) {
		if err := scheduling.Delete(c.Request.Context(), c.Param("id")); err != nil {
			respondErr(c, logger, err)
			return
		}
		ok(c, http.StatusOK, nil)
	})

	authed.GET("/timetables", func(c *gin.Context) {
		f := timetable.Filter{
			AcademicYearID: c.Query("academic_year_id"),
			ClassroomID:    c.Query("classroom_id"),
			TeacherID:      c.Query("teacher_id"),
			Limit:          intQuery(c, "limit"),
			Offset:         intQuery(c, "offset"),
		}
		if day := c.Query("day"); day != "" {
			d, err := timetable.ParseWeekday(day)
			if err != nil {
				fail(c, http.StatusBadRequest, err.Error())
				return
			}
			f.Day = d
		}
		entries, err := scheduling.List(c.Request.Context(), f)
		if err != nil {
			respondErr(c, logger, err)
			return
		}
		ok(c, http.StatusOK, gin.H{"entries": entries})
	})

	// Attendance surface: teacher identity always comes from the token.
	authed.POST("/attendance/check-in", auth.RequireRole(auth.RoleTeacher), func(c *gin.Context) {
		var req struct {
			TimetableID string  `json:"timetable_id" binding:"required"`
			CourseID    string  `json:"course_id" binding:"required"`
			Date        string  `json:"date" binding:"required"`
			Lat         float64 `json:"lat"`
			Lng         float64 `json:"lng"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			metrics.CheckIns.WithLabelValues("validation").Inc()
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		claims := auth.FromContext(c)
		sess, err := att.CheckIn(c.Request.Context(), attendance.CheckInRequest{
			TeacherID:   claims.Subject,
			TimetableID: req.TimetableID,
			CourseID:    req.CourseID,
			Date:        req.Date,
			Now:         nowFn(),
			Point:       geo.Coord{Lat: req.Lat, Lng: req.Lng},
		})
		if err != nil {
			metrics.CheckIns.WithLabelValues(outcomeLabel(err)).Inc()
			respondErr(c, logger, err)
			return
		}
		metrics.CheckIns.WithLabelValues("ok").Inc()
		if err := q.Publish(c.Request.Context(), queue.Message{
			Type: queue.TypeCheckIn, SessionID: sess.ID, TeacherID: sess.TeacherID, Date: sess.Date,
		}); err != nil {
			logger.Warn("queue publish failed", zap.Error(err))
		}
		ok(c, http.StatusCreated, sess)
	})

	authed.POST("/attendance/:id/check-out", auth.RequireRole(auth.RoleTeacher), func(c *gin.Context) {
		var req struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			metrics.CheckOuts.WithLabelValues("validation").Inc()
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		claims := auth.FromContext(c)
		sess, err := att.CheckOut(c.Request.Context(), attendance.CheckOutRequest{
			SessionID: c.Param("id"),
			TeacherID: claims.Subject,
			Now:       nowFn(),
			Point:     geo.Coord{Lat: req.Lat, Lng: req.Lng},
		})
		if err != nil {
			metrics.CheckOuts.WithLabelValues(outcomeLabel(err)).Inc()
			respondErr(c, logger, err)
			return
		}
		metrics.CheckOuts.WithLabelValues("ok").Inc()
		if err := q.Publish(c.Request.Context(), queue.Message{
			Type: queue.TypeCheckOut, SessionID: sess.ID, TeacherID: sess.TeacherID, Date: sess.Date,
		}); err != nil {
			logger.Warn("queue publish failed", zap.Error(err))
		}
		ok(c, http.StatusOK, sess)
	})

	authed.GET("/attendance", func(c *gin.Context) {
		f := attendance.Filter{
			TeacherID:   c.Query("teacher_id"),
			TimetableID: c.Query("timetable_id"),
			Date:        c.Query("date"),
			Status:      attendance.Status(c.Query("status")),
			Limit:       intQuery(c, "limit"),
			Offset:      intQuery(c, "offset"),
		}
		// Teachers only see their own records.
		claims := auth.FromContext(c)
		if claims.Role == auth.RoleTeacher {
			f.TeacherID = claims.Subject
		}
		sessions, err := att.List(c.Request.Context(), f)
		if err != nil {
			respondErr(c, logger, err)
			return
		}
		ok(c, http.StatusOK, gin.H{"sessions": sessions})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server forced shutdown", zap.Error(err))
	}

	logger.Info("server exited")
	return nil
}

// bindCandidate parses the shared timetable request body.
func bindCandidate(c *gin.Context) (timetable.Candidate, error) {
	var req struct {
		AcademicYearID string `json:"academic_year_id" binding:"required"`
		CourseID       string `json:"course_id" binding:"required"`
		ClassroomID    string `json:"classroom_id" binding:"required"`
		Day            string `json:"day" binding:"required"`
		StartTime      string `json:"start_time" binding:"required"`
		EndTime        string `json:"end_time" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		return timetable.Candidate{}, err
	}
	day, err := timetable.ParseWeekday(req.Day)
	if err != nil {
		return timetable.Candidate{}, err
	}
	start, err := timetable.ParseTimeOfDay(req.StartTime)
	if err != nil {
		return timetable.Candidate{}, err
	}
	end, err := timetable.ParseTimeOfDay(req.EndTime)
	if err != nil {
		return timetable.Candidate{}, err
	}
	return timetable.Candidate{
		AcademicYearID: req.AcademicYearID,
		CourseID:       req.CourseID,
		ClassroomID:    req.ClassroomID,
		Interval:       timetable.Interval{Day: day, Start: start, End: end},
	}, nil
}

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}

// respondErr maps domain errors to the envelope. Internal failures are
// logged and surfaced as a generic message, never echoed raw.
func respondErr(c *gin.Context, logger *zap.Logger, err error) {
	var conflict *timetable.ConflictError
	if errors.As(err, &conflict) {
		c.JSON(http.StatusConflict, gin.H{
			"success":  false,
			"message":  conflict.Error(),
			"conflict": conflict.Result,
		})
		return
	}

	switch {
	case errors.Is(err, timetable.ErrEntryNotFound),
		errors.Is(err, attendance.ErrTimetableNotFound),
		errors.Is(err, attendance.ErrSessionNotFound):
		fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, attendance.ErrNotSessionOwner):
		fail(c, http.StatusForbidden, err.Error())
	case errors.Is(err, attendance.ErrActiveSession),
		errors.Is(err, attendance.ErrAlreadyCheckedOut),
		errors.Is(err, attendance.ErrDuplicateSession):
		fail(c, http.StatusConflict, err.Error())
	case errors.Is(err, attendance.ErrClassNotStarted),
		errors.Is(err, attendance.ErrClassNotEnded):
		fail(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, attendance.ErrCourseMismatch),
		errors.Is(err, attendance.ErrUnknownClassroom),
		errors.Is(err, timetable.ErrUnknownCourse),
		errors.Is(err, timetable.ErrUnknownClassroom),
		errors.Is(err, timetable.ErrInactiveClassroom),
		errors.Is(err, timetable.ErrInvalidInterval):
		fail(c, http.StatusBadRequest, err.Error())
	default:
		logger.Error("request failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "internal error")
	}
}

// outcomeLabel buckets errors for the counters.
func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, attendance.ErrClassNotStarted),
		errors.Is(err, attendance.ErrClassNotEnded):
		return "timing"
	case errors.Is(err, attendance.ErrActiveSession),
		errors.Is(err, attendance.ErrAlreadyCheckedOut),
		errors.Is(err, attendance.ErrDuplicateSession),
		errors.Is(err, attendance.ErrSessionNotFound),
		errors.Is(err, attendance.ErrNotSessionOwner):
		return "state"
	case errors.Is(err, attendance.ErrCourseMismatch),
		errors.Is(err, attendance.ErrTimetableNotFound),
		errors.Is(err, attendance.ErrUnknownClassroom):
		return "validation"
	}
	return "error"
}

func intQuery(c *gin.Context, key string) int {
	if v := c.Query(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return 0
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
