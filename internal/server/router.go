// Package server exposes the daemon's RPC surface over HTTP: a REST
// control surface, per-category websocket streams, and the Prometheus
// endpoint. Handlers talk to a single *engine.Engine handle.
package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/Adam-Cosner/monitord/internal/engine"
	"github.com/Adam-Cosner/monitord/internal/metrics"
	"github.com/Adam-Cosner/monitord/internal/model"
	"github.com/gin-gonic/gin"
)

// Router provides the mountable HTTP handler set.
// Endpoints under basePath:
//
//	GET    /snapshot                 one-shot composite (or ?category=cpu)
//	GET    /subscriptions            list active subscriptions
//	DELETE /subscriptions/:id        unsubscribe (idempotent)
//	POST   /processes/:pid/signal    body {"signal":"SIGTERM"|"SIGKILL"}
//	GET    /stream/:category         websocket snapshot stream
//
// plus /healthz and /metrics at the root.
type Router struct {
	eng      *engine.Engine
	basePath string
	log      *slog.Logger
}

// NewRouter constructs a Router. basePath may be empty or start with '/'.
func NewRouter(eng *engine.Engine, basePath string, log *slog.Logger) *Router {
	return &Router{eng: eng, basePath: sanitizeBase(basePath), log: log}
}

// Handler returns an http.Handler powered by gin that can be mounted in
// any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	g.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, okResp{OK: true}) })
	g.GET("/metrics", gin.WrapH(metrics.Handler()))

	group := g.Group(r.basePath)
	group.GET("/snapshot", r.handleSnapshot)
	group.GET("/subscriptions", r.handleList)
	group.DELETE("/subscriptions/:id", r.handleUnsubscribe)
	group.POST("/processes/:pid/signal", r.handleSignal)
	group.GET("/stream/:category", r.handleStream)
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
func NewServer(addr, basePath string, eng *engine.Engine, log *slog.Logger) *http.Server {
	r := NewRouter(eng, basePath, log)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server failed", "addr", addr, "error", err)
		}
	}()
	return server
}

type errorResp struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

func statusCodeOf(code string) int {
	switch code {
	case engine.StatusSuccess:
		return http.StatusOK
	case engine.StatusResourceNotAvailable:
		return http.StatusTooManyRequests
	case engine.StatusInternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

func writeErr(c *gin.Context, err error) {
	code := engine.Code(err)
	c.JSON(statusCodeOf(code), errorResp{Status: code, Error: err.Error()})
}

func (r *Router) handleSnapshot(c *gin.Context) {
	if q := c.Query("category"); q != "" {
		cat, err := model.ParseCategory(q)
		if err != nil || cat == model.CategoryAll {
			c.JSON(http.StatusBadRequest, errorResp{Status: engine.StatusInvalidType, Error: "unknown category: " + q})
			return
		}
		snap, err := r.eng.Snapshot(c.Request.Context(), cat)
		if err != nil {
			writeErr(c, err)
			return
		}
		c.JSON(http.StatusOK, snap)
		return
	}
	c.JSON(http.StatusOK, r.eng.GetSystemSnapshot(c.Request.Context()))
}

func (r *Router) handleList(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"subscriptions": r.eng.List()})
}

func (r *Router) handleUnsubscribe(c *gin.Context) {
	r.eng.Unsubscribe(c.Param("id"))
	c.JSON(http.StatusOK, okResp{OK: true})
}

type signalReq struct {
	Signal string `json:"signal"`
}

func (r *Router) handleSignal(c *gin.Context) {
	pid, err := strconv.ParseInt(c.Param("pid"), 10, 32)
	if err != nil || pid <= 0 {
		c.JSON(http.StatusBadRequest, errorResp{Status: engine.StatusInvalidType, Error: "invalid pid"})
		return
	}
	var req signalReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResp{Status: engine.StatusInvalidType, Error: "invalid JSON: " + err.Error()})
		return
	}
	var sig syscall.Signal
	switch strings.ToUpper(req.Signal) {
	case "SIGTERM", "TERM":
		sig = syscall.SIGTERM
	case "SIGKILL", "KILL":
		sig = syscall.SIGKILL
	default:
		c.JSON(http.StatusBadRequest, errorResp{Status: engine.StatusInvalidType, Error: "signal must be SIGTERM or SIGKILL"})
		return
	}
	if err := r.eng.TermProcess(int32(pid), sig); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, okResp{OK: true})
}

func sanitizeBase(bp string) string {
	bp = strings.TrimSpace(bp)
	if bp == "" || bp == "/" {
		return ""
	}
	if !strings.HasPrefix(bp, "/") {
		bp = "/" + bp
	}
	return strings.TrimRight(bp, "/")
}
