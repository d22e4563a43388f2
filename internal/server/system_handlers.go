package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/blochd/internal/config"
	"github.com/aristath/blochd/internal/database"
	"github.com/aristath/blochd/internal/modules/circuits"
)

// SystemHandlers handles system-wide monitoring endpoints
type SystemHandlers struct {
	log            zerolog.Logger
	cfg            *config.Config
	startupTime    time.Time
	circuitsDB     *database.DB
	circuitService *circuits.Service
	circuitRepo    *circuits.Repository
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(
	log zerolog.Logger,
	cfg *config.Config,
	circuitsDB *database.DB,
	circuitService *circuits.Service,
	circuitRepo *circuits.Repository,
) *SystemHandlers {
	return &SystemHandlers{
		log:            log.With().Str("component", "system_handlers").Logger(),
		cfg:            cfg,
		startupTime:    time.Now(),
		circuitsDB:     circuitsDB,
		circuitService: circuitService,
		circuitRepo:    circuitRepo,
	}
}

// SystemStatusResponse represents the system status response
type SystemStatusResponse struct {
	Status        string  `json:"status"` // "healthy" or "unhealthy"
	UptimeSeconds float64 `json:"uptime_seconds"`
	CircuitCount  int     `json:"circuit_count"`
	CPUPercent    float64 `json:"cpu_percent"`
	RAMPercent    float64 `json:"ram_percent"`
	Goroutines    int     `json:"goroutines"`
	MaxQubits     int     `json:"max_qubits"`
	MaxGates      int     `json:"max_gates"`
	MaxShots      int     `json:"max_shots"`
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	circuitCount, err := h.circuitRepo.Count()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to count circuits")
		status = "unhealthy"
	}

	cpuPercent, ramPercent := h.getSystemStats()

	h.writeJSON(w, http.StatusOK, SystemStatusResponse{
		Status:        status,
		UptimeSeconds: time.Since(h.startupTime).Seconds(),
		CircuitCount:  circuitCount,
		CPUPercent:    cpuPercent,
		RAMPercent:    ramPercent,
		Goroutines:    runtime.NumGoroutine(),
		MaxQubits:     h.cfg.MaxQubits,
		MaxGates:      h.cfg.MaxGates,
		MaxShots:      h.cfg.MaxShots,
	})
}

// HandleDatabaseStats handles GET /api/system/database/stats
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.circuitsDB.GetStats()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read database stats")
		http.Error(w, "Failed to read database stats", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":           h.circuitsDB.Name(),
		"size_bytes":     stats.SizeBytes,
		"wal_size_bytes": stats.WALSizeBytes,
		"page_count":     stats.PageCount,
		"page_size":      stats.PageSize,
	})
}

// HandleCacheStats handles GET /api/system/cache
func (h *SystemHandlers) HandleCacheStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.circuitService.CacheStats())
}

// HandleCachePurge handles POST /api/system/cache/purge
func (h *SystemHandlers) HandleCachePurge(w http.ResponseWriter, r *http.Request) {
	removed := h.circuitService.PruneCache(0)
	h.log.Info().Int("removed", removed).Msg("Cache purged manually")

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"removed": removed,
	})
}

// getSystemStats calculates CPU and RAM usage percentages.
// Uses a 100ms sample so the status endpoint stays responsive.
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

// writeJSON writes a JSON response
func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
