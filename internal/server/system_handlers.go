package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"momentor/internal/database"
	"momentor/internal/reliability"
	"momentor/internal/scheduler"
)

// SystemHandlers serves health, status and maintenance endpoints.
type SystemHandlers struct {
	databases []*database.DB
	scheduler *scheduler.Scheduler
	backups   *reliability.BackupService
	startedAt time.Time
	log       zerolog.Logger
}

// NewSystemHandlers creates the system handlers. backups may be nil when
// no object store is configured.
func NewSystemHandlers(
	databases []*database.DB,
	sched *scheduler.Scheduler,
	backups *reliability.BackupService,
	log zerolog.Logger,
) *SystemHandlers {
	return &SystemHandlers{
		databases: databases,
		scheduler: sched,
		backups:   backups,
		startedAt: time.Now(),
		log:       log.With().Str("handler", "system").Logger(),
	}
}

// HandleHealth answers liveness probes.
// GET /health
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type databaseStats struct {
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
	Reachable bool   `json:"reachable"`
}

// HandleSystemStatus reports process and host health.
// GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.systemStats()

	dbStats := make([]databaseStats, 0, len(h.databases))
	for _, db := range h.databases {
		stats := databaseStats{Name: db.Name()}
		if info, err := os.Stat(filepath.Clean(db.Path())); err == nil {
			stats.SizeBytes = info.Size()
		}
		stats.Reachable = db.Conn().Ping() == nil
		dbStats = append(dbStats, stats)
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"cpu_percent":    cpuPercent,
		"memory_percent": memPercent,
		"databases":      dbStats,
	})
}

// HandleSchedulerStatus reports registered jobs with next and last runs.
// GET /api/system/scheduler
func (h *SystemHandlers) HandleSchedulerStatus(w http.ResponseWriter, r *http.Request) {
	if h.scheduler == nil {
		h.writeJSON(w, http.StatusOK, map[string]interface{}{"enabled": false})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"enabled": true,
		"jobs":    h.scheduler.Status(),
	})
}

// HandleListBackups lists the archives in the object store.
// GET /api/system/backups
func (h *SystemHandlers) HandleListBackups(w http.ResponseWriter, r *http.Request) {
	if h.backups == nil {
		h.writeError(w, http.StatusServiceUnavailable, "backups are not configured")
		return
	}

	backups, err := h.backups.ListBackups(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, backups)
}

// HandleTriggerBackup creates and uploads a backup immediately.
// POST /api/system/backups
func (h *SystemHandlers) HandleTriggerBackup(w http.ResponseWriter, r *http.Request) {
	if h.backups == nil {
		h.writeError(w, http.StatusServiceUnavailable, "backups are not configured")
		return
	}

	if err := h.backups.CreateAndUpload(r.Context()); err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "uploaded"})
}

// systemStats samples CPU over a short window so the endpoint stays fast.
func (h *SystemHandlers) systemStats() (float64, float64) {
	cpuAvg := 0.0
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
	} else if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return cpuAvg, 0
	}

	return cpuAvg, memStat.UsedPercent
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *SystemHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
