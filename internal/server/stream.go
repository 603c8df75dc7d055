package server

import (
	"net/http"
	"strconv"

	"github.com/Adam-Cosner/monitord/internal/engine"
	"github.com/Adam-Cosner/monitord/internal/model"
	"github.com/Adam-Cosner/monitord/internal/subscription"
	"github.com/Adam-Cosner/monitord/internal/transport"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// streamSinkDepth bounds the per-connection buffer between the delivery
// worker and the websocket writer. A full buffer means the client is slow
// and ticks are dropped, per the coalescing backpressure policy.
const streamSinkDepth = 16

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 8192,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// controlMsg is the in-band JSON frame a streaming client may send.
type controlMsg struct {
	Op         string               `json:"op"` // "modify" | "unsubscribe"
	IntervalMs uint32               `json:"interval_ms,omitempty"`
	Filter     *subscription.Filter `json:"filter,omitempty"`
}

// handleStream upgrades to a websocket and streams snapshots for the
// requested category (or "all") until the client disconnects. The
// subscription interval and filter come from query parameters and can be
// reshaped mid-stream with control frames.
func (r *Router) handleStream(c *gin.Context) {
	cat, err := model.ParseCategory(c.Param("category"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResp{Status: engine.StatusInvalidType, Error: err.Error()})
		return
	}
	intervalMs := parseUint32(c.Query("interval_ms"))
	filter := filterFromQuery(c)

	sink := transport.NewChanSink(streamSinkDepth)
	ids, err := r.eng.Subscribe(engine.SubscribeRequest{
		Category:   cat,
		IntervalMs: intervalMs,
		Filter:     filter,
		Sink:       sink,
	})
	if err != nil {
		writeErr(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		for _, id := range ids {
			r.eng.Unsubscribe(id)
		}
		return
	}

	r.log.Debug("stream opened", "category", cat, "subscriptions", ids, "remote", conn.RemoteAddr())
	defer func() {
		for _, id := range ids {
			r.eng.Unsubscribe(id)
		}
		_ = conn.Close()
		r.log.Debug("stream closed", "category", cat, "remote", conn.RemoteAddr())
	}()

	// Reader: control frames and disconnect detection.
	ctrl := make(chan controlMsg)
	readerDone := make(chan struct{})
	writerDone := make(chan struct{})
	defer close(writerDone)
	go func() {
		defer close(readerDone)
		for {
			var msg controlMsg
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			select {
			case ctrl <- msg:
			case <-writerDone:
				return
			}
		}
	}()

	// Writer: one goroutine owns all writes to the connection.
	for {
		select {
		case snap, ok := <-sink.C():
			if !ok {
				return
			}
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
		case msg := <-ctrl:
			switch msg.Op {
			case "modify":
				r.applyModify(ids, msg)
			case "unsubscribe":
				return
			}
		case <-readerDone:
			return
		}
	}
}

// applyModify reshapes the connection's subscriptions: the interval
// applies to every id, the filter only to ids of its tagged category.
func (r *Router) applyModify(ids []string, msg controlMsg) {
	for _, id := range ids {
		sub := r.subFor(id)
		if sub == nil {
			continue
		}
		interval := msg.IntervalMs
		if interval == 0 {
			interval = sub.IntervalMs
		}
		var f *subscription.Filter
		if msg.Filter != nil && msg.Filter.Validate(sub.Category) == nil {
			f = msg.Filter
		} else {
			f = sub.Filter
		}
		if err := r.eng.Modify(id, interval, f); err != nil {
			r.log.Warn("stream modify rejected", "subscription", id, "error", err)
		}
	}
}

func (r *Router) subFor(id string) *subscription.Status {
	for _, st := range r.eng.List() {
		if st.ID == id {
			return &st
		}
	}
	return nil
}

// filterFromQuery assembles a filter from the stream query parameters.
// Returns nil when no filter parameter is present.
func filterFromQuery(c *gin.Context) *subscription.Filter {
	if pf := processFilterFromQuery(c); pf != nil {
		return &subscription.Filter{Process: pf}
	}
	if names, vendors := c.QueryArray("gpu_names"), c.QueryArray("gpu_vendors"); len(names) > 0 || len(vendors) > 0 || c.Query("include_processes") != "" {
		return &subscription.Filter{GPU: &subscription.GPUFilter{
			Names:            names,
			Vendors:          vendors,
			IncludeProcesses: c.DefaultQuery("include_processes", "true") == "true",
		}}
	}
	if ifaces := c.QueryArray("interfaces"); len(ifaces) > 0 {
		return &subscription.Filter{Network: &subscription.NetworkFilter{Interfaces: ifaces}}
	}
	if devs, mounts := c.QueryArray("devices"), c.QueryArray("mount_points"); len(devs) > 0 || len(mounts) > 0 {
		return &subscription.Filter{Storage: &subscription.StorageFilter{Devices: devs, MountPoints: mounts}}
	}
	return nil
}

func processFilterFromQuery(c *gin.Context) *subscription.ProcessFilter {
	pf := &subscription.ProcessFilter{
		Names:       c.QueryArray("names"),
		Usernames:   c.QueryArray("usernames"),
		TopByCPU:    parseUint32(c.Query("top_by_cpu")),
		TopByMemory: parseUint32(c.Query("top_by_memory")),
		TopByDisk:   parseUint32(c.Query("top_by_disk")),
	}
	for _, s := range c.QueryArray("pids") {
		if pid := parseUint32(s); pid > 0 {
			pf.PIDs = append(pf.PIDs, pid)
		}
	}
	if len(pf.PIDs) == 0 && len(pf.Names) == 0 && len(pf.Usernames) == 0 &&
		pf.TopByCPU == 0 && pf.TopByMemory == 0 && pf.TopByDisk == 0 {
		return nil
	}
	return pf
}

func parseUint32(s string) uint32 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0
	}
	return uint32(n)
}
