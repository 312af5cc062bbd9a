package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/fundguard/fundguard/internal/database"
	"github.com/fundguard/fundguard/internal/reliability"
	"github.com/fundguard/fundguard/internal/scheduler"
)

// PriceFeedStatus reports the state of the market-data connection.
type PriceFeedStatus interface {
	IsConnected() bool
	IsStale() bool
}

// SystemHandlers handles system monitoring and operations endpoints.
type SystemHandlers struct {
	log         zerolog.Logger
	startupTime time.Time
	db          *database.DB
	priceFeed   PriceFeedStatus              // nil when no feed is configured
	backups     *reliability.BackupService   // nil when backups are disabled
	sched       *scheduler.Scheduler

	// Jobs for manual triggering, set after registration in main.go
	sweepJob       scheduler.Job
	backupJob      scheduler.Job
	maintenanceJob scheduler.Job
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(
	db *database.DB,
	priceFeed PriceFeedStatus,
	backups *reliability.BackupService,
	sched *scheduler.Scheduler,
	log zerolog.Logger,
) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("component", "system_handlers").Logger(),
		startupTime: time.Now(),
		db:          db,
		priceFeed:   priceFeed,
		backups:     backups,
		sched:       sched,
	}
}

// SetJobs registers job references for manual triggering.
// Called after jobs are registered in main.go.
func (h *SystemHandlers) SetJobs(sweep, backup, maintenance scheduler.Job) {
	h.sweepJob = sweep
	h.backupJob = backup
	h.maintenanceJob = maintenance
}

// RegisterRoutes registers system routes
func (h *SystemHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/system", func(r chi.Router) {
		r.Get("/status", h.HandleSystemStatus)
		r.Get("/database/stats", h.HandleDatabaseStats)
		r.Get("/backups", h.HandleListBackups)

		r.Route("/jobs", func(r chi.Router) {
			r.Post("/portfolio-sweep", h.triggerJob(func() scheduler.Job { return h.sweepJob }))
			r.Post("/backup", h.triggerJob(func() scheduler.Job { return h.backupJob }))
			r.Post("/maintenance", h.triggerJob(func() scheduler.Job { return h.maintenanceJob }))
		})
	})
}

// SystemStatusResponse describes the engine's health at a glance.
type SystemStatusResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`

	PriceFeed struct {
		Configured bool `json:"configured"`
		Connected  bool `json:"connected"`
		Stale      bool `json:"stale"`
	} `json:"price_feed"`
}

// HandleSystemStatus returns overall engine health
// GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.getSystemStats()

	resp := SystemStatusResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(h.startupTime).Seconds()),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
	}

	if h.priceFeed != nil {
		resp.PriceFeed.Configured = true
		resp.PriceFeed.Connected = h.priceFeed.IsConnected()
		resp.PriceFeed.Stale = h.priceFeed.IsStale()
		if !resp.PriceFeed.Connected || resp.PriceFeed.Stale {
			resp.Status = "degraded"
		}
	}

	h.writeJSON(w, resp)
}

// DatabaseStatsResponse reports compliance database size and page counts.
type DatabaseStatsResponse struct {
	Name          string `json:"name"`
	SizeBytes     int64  `json:"size_bytes"`
	WALSizeBytes  int64  `json:"wal_size_bytes"`
	PageCount     int64  `json:"page_count"`
	PageSize      int64  `json:"page_size"`
	FreelistCount int64  `json:"freelist_count"`
	LastChecked   string `json:"last_checked"`
}

// HandleDatabaseStats returns database statistics
// GET /api/system/database/stats
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.db.GetStats()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get database stats")
		http.Error(w, "Failed to get database stats", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, DatabaseStatsResponse{
		Name:          h.db.Name(),
		SizeBytes:     stats.SizeBytes,
		WALSizeBytes:  stats.WALSizeBytes,
		PageCount:     stats.PageCount,
		PageSize:      stats.PageSize,
		FreelistCount: stats.FreelistCount,
		LastChecked:   time.Now().Format(time.RFC3339),
	})
}

// HandleListBackups lists local backup archives, newest first
// GET /api/system/backups
func (h *SystemHandlers) HandleListBackups(w http.ResponseWriter, r *http.Request) {
	if h.backups == nil {
		http.Error(w, "Backups not configured", http.StatusNotFound)
		return
	}

	list, err := h.backups.ListBackups(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list backups")
		http.Error(w, "Failed to list backups", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, map[string]interface{}{
		"backups": list,
		"count":   len(list),
	})
}

// triggerJob returns a handler that runs a registered job immediately. The
// job runs in the background; the response only acknowledges the trigger.
func (h *SystemHandlers) triggerJob(get func() scheduler.Job) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job := get()
		if job == nil {
			http.Error(w, "Job not registered", http.StatusNotFound)
			return
		}

		go func() {
			if err := h.sched.RunNow(job); err != nil {
				h.log.Error().Err(err).Str("job", job.Name()).Msg("Manually triggered job failed")
			}
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"message": fmt.Sprintf("%s triggered", job.Name()),
		})
	}
}

// getSystemStats calculates CPU and RAM usage percentages. A 100ms sampling
// window keeps the status endpoint responsive for dashboard polling.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}
