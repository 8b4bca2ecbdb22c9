package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// Server exposes an internal operations dashboard on its own port: process
// and database health, rent business counters, and a websocket feed of
// alerts. Not routed through the public API.
type Server struct {
	db   *pgxpool.Pool
	port int

	alertsMux sync.RWMutex
	alerts    []Alert
	nextAlert int

	clientsMux sync.Mutex
	clients    map[*websocket.Conn]bool
	broadcast  chan Alert
}

type Alert struct {
	ID        int       `json:"id"`
	Severity  string    `json:"severity"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Resolved  bool      `json:"resolved"`
}

// Stats is one dashboard snapshot
type Stats struct {
	DatabaseStatus    string `json:"database_status"`
	ActiveConnections int    `json:"active_connections"`
	ResponseTime      int64  `json:"response_time_ms"`
	DBSize            string `json:"db_size"`
	Uptime            string `json:"uptime"`

	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryUsed    string  `json:"memory_used"`
	MemoryTotal   string  `json:"memory_total"`
	DiskPercent   float64 `json:"disk_percent"`
	DiskUsed      string  `json:"disk_used"`
	DiskTotal     string  `json:"disk_total"`

	ActiveAlerts int           `json:"active_alerts"`
	Business     BusinessStats `json:"business"`
}

// BusinessStats are the rent counters the dashboard polls
type BusinessStats struct {
	ActiveTenants      int `json:"active_tenants"`
	ExpiringIn7Days    int `json:"expiring_in_7_days"`
	PaymentsToday      int `json:"payments_today"`
	PendingProofs      int `json:"pending_proofs"`
	FailedPayouts      int `json:"failed_payouts"`
	ReceiptsPendingPDF int `json:"receipts_pending_pdf"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func NewServer(db *pgxpool.Pool, port int) *Server {
	return &Server{
		db:        db,
		port:      port,
		alerts:    make([]Alert, 0),
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Alert, 8),
	}
}

func (s *Server) Start() {
	r := mux.NewRouter()
	r.HandleFunc("/api/stats", s.getStats).Methods("GET")
	r.HandleFunc("/api/alerts", s.getAlerts).Methods("GET")
	r.HandleFunc("/ws", s.handleWebSocket)

	go s.handleBroadcast()
	go s.watch()

	addr := fmt.Sprintf(":%d", s.port)
	log.Printf("[Monitoring] Dashboard listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.collectStats())
}

func (s *Server) getAlerts(w http.ResponseWriter, r *http.Request) {
	s.alertsMux.RLock()
	defer s.alertsMux.RUnlock()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.alerts)
}

func (s *Server) collectStats() Stats {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	err := s.db.Ping(ctx)
	responseTime := time.Since(start).Milliseconds()

	dbStatus := "healthy"
	if err != nil {
		dbStatus = "unhealthy"
	}

	var activeConns int
	s.db.QueryRow(ctx, "SELECT count(*) FROM pg_stat_activity").Scan(&activeConns)

	var dbSizeBytes int64
	s.db.QueryRow(ctx, "SELECT pg_database_size(current_database())").Scan(&dbSizeBytes)

	var uptimeSec int
	s.db.QueryRow(ctx, "SELECT EXTRACT(EPOCH FROM (NOW() - pg_postmaster_start_time()))::int").Scan(&uptimeSec)

	cpuPercent := 0.0
	if percents, _ := cpu.Percent(time.Second, false); len(percents) > 0 {
		cpuPercent = percents[0]
	}
	memStats, _ := mem.VirtualMemory()
	diskStats, _ := disk.Usage("/")

	s.alertsMux.RLock()
	active := 0
	for _, a := range s.alerts {
		if !a.Resolved {
			active++
		}
	}
	s.alertsMux.RUnlock()

	stats := Stats{
		DatabaseStatus:    dbStatus,
		ActiveConnections: activeConns,
		ResponseTime:      responseTime,
		DBSize:            formatBytes(uint64(dbSizeBytes)),
		Uptime:            formatUptime(uptimeSec),
		CPUPercent:        cpuPercent,
		ActiveAlerts:      active,
		Business:          s.collectBusinessStats(ctx),
	}
	if memStats != nil {
		stats.MemoryPercent = memStats.UsedPercent
		stats.MemoryUsed = formatBytes(memStats.Used)
		stats.MemoryTotal = formatBytes(memStats.Total)
	}
	if diskStats != nil {
		stats.DiskPercent = diskStats.UsedPercent
		stats.DiskUsed = formatBytes(diskStats.Used)
		stats.DiskTotal = formatBytes(diskStats.Total)
	}
	return stats
}

func (s *Server) collectBusinessStats(ctx context.Context) BusinessStats {
	var b BusinessStats
	s.db.QueryRow(ctx, "SELECT count(*) FROM tenants WHERE is_active").Scan(&b.ActiveTenants)
	s.db.QueryRow(ctx, `
		SELECT count(*) FROM tenants
		WHERE is_active AND rent_expiry BETWEEN NOW() AND NOW() + INTERVAL '7 days'
	`).Scan(&b.ExpiringIn7Days)
	s.db.QueryRow(ctx, `
		SELECT count(*) FROM payment_transactions
		WHERE status = 'VERIFIED' AND verified_at >= date_trunc('day', NOW())
	`).Scan(&b.PaymentsToday)
	s.db.QueryRow(ctx, "SELECT count(*) FROM rent_payment_proofs WHERE status = 'PENDING'").Scan(&b.PendingProofs)
	s.db.QueryRow(ctx, "SELECT count(*) FROM landlord_payouts WHERE status = 'FAILED'").Scan(&b.FailedPayouts)
	s.db.QueryRow(ctx, "SELECT count(*) FROM rent_receipts WHERE pdf_status IN ('PENDING', 'FAILED')").Scan(&b.ReceiptsPendingPDF)
	return b
}

// watch raises alerts on sustained problems: DB unreachable, payouts stuck
// in FAILED.
func (s *Server) watch() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	lastFailedPayouts := 0
	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)

		if err := s.db.Ping(ctx); err != nil {
			s.raise("critical", "database", "Database is unreachable")
		}

		var failed int
		s.db.QueryRow(ctx, "SELECT count(*) FROM landlord_payouts WHERE status = 'FAILED'").Scan(&failed)
		if failed > lastFailedPayouts {
			s.raise("warning", "payouts", fmt.Sprintf("%d payout(s) in FAILED state", failed))
		}
		lastFailedPayouts = failed
		cancel()
	}
}

func (s *Server) raise(severity, alertType, message string) {
	s.alertsMux.Lock()
	s.nextAlert++
	alert := Alert{
		ID:        s.nextAlert,
		Severity:  severity,
		Type:      alertType,
		Message:   message,
		Timestamp: time.Now(),
	}
	s.alerts = append(s.alerts, alert)
	if len(s.alerts) > 100 {
		s.alerts = s.alerts[len(s.alerts)-100:]
	}
	s.alertsMux.Unlock()

	select {
	case s.broadcast <- alert:
	default:
	}
	log.Printf("[Monitoring] Alert (%s/%s): %s", severity, alertType, message)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.clientsMux.Lock()
	s.clients[conn] = true
	s.clientsMux.Unlock()

	// Reader only detects disconnects; the dashboard never sends
	go func() {
		defer func() {
			s.clientsMux.Lock()
			delete(s.clients, conn)
			s.clientsMux.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) handleBroadcast() {
	for alert := range s.broadcast {
		payload, err := json.Marshal(alert)
		if err != nil {
			continue
		}
		s.clientsMux.Lock()
		for conn := range s.clients {
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				delete(s.clients, conn)
				conn.Close()
			}
		}
		s.clientsMux.Unlock()
	}
}

func formatBytes(bytes uint64) string {
	gb := float64(bytes) / (1024 * 1024 * 1024)
	if gb < 1 {
		return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
	}
	return fmt.Sprintf("%.1f GB", gb)
}

func formatUptime(seconds int) string {
	d := seconds / 86400
	h := (seconds % 86400) / 3600
	m := (seconds % 3600) / 60
	if d > 0 {
		return fmt.Sprintf("%dd %dh %dm", d, h, m)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}
