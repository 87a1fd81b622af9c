// Package web serves the JSON API used by the dashboard. Callers are
// identified by the X-Tenant header, which the authenticating proxy in front
// of the API sets.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/netwarlan/rconpanel/internal/minecraft"
	"github.com/netwarlan/rconpanel/internal/settings"
)

// TenantHeader carries the caller's tenant key.
const TenantHeader = "X-Tenant"

// SettingsService reads and saves a tenant's RCON endpoint.
type SettingsService interface {
	Get(ctx context.Context, tenant string) (settings.Endpoint, error)
	Save(ctx context.Context, tenant string, form settings.Form) ([]string, error)
}

// Server provides the HTTP interface.
type Server struct {
	runner   minecraft.Runner
	settings SettingsService
	addr     string
	server   *http.Server
	router   *httprouter.Router
}

// NewServer creates a server that will listen on addr.
func NewServer(addr string, runner minecraft.Runner, svc SettingsService) *Server {
	s := &Server{
		runner:   runner,
		settings: svc,
		addr:     addr,
		router:   httprouter.New(),
	}

	s.setupRoutes()
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves until Stop is called.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("Starting HTTP API on %s", s.addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop stops the HTTP server.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	s.router.POST("/api/command", s.withTenant(s.handleCommand))
	s.router.GET("/api/players", s.withTenant(s.handlePlayers))
	s.router.GET("/api/players/:name", s.withTenant(s.handlePlayer))
	s.router.GET("/api/settings", s.withTenant(s.handleGetSettings))
	s.router.PUT("/api/settings", s.withTenant(s.handlePutSettings))
}

type tenantHandle func(w http.ResponseWriter, r *http.Request, ps httprouter.Params, tenant string)

func (s *Server) withTenant(h tenantHandle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		tenant := strings.TrimSpace(r.Header.Get(TenantHeader))
		if tenant == "" {
			writeError(w, http.StatusUnauthorized, "missing "+TenantHeader+" header")
			return
		}
		h(w, r, ps, tenant)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

type commandRequest struct {
	Command string `json:"command"`
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request, _ httprouter.Params, tenant string) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Command = strings.TrimSpace(req.Command)
	if req.Command == "" {
		writeError(w, http.StatusBadRequest, "command is required")
		return
	}

	out := s.runner.Run(r.Context(), tenant, req.Command)
	writeJSON(w, http.StatusOK, minecraft.Parse(out))
}

func (s *Server) handlePlayers(w http.ResponseWriter, r *http.Request, _ httprouter.Params, tenant string) {
	players := minecraft.OnlinePlayers(r.Context(), s.runner, tenant)
	writeJSON(w, http.StatusOK, map[string]any{
		"players": players,
		"count":   len(players),
	})
}

type playerResponse struct {
	Name          string              `json:"name"`
	Stats         minecraft.Stats     `json:"stats"`
	Location      *minecraft.Position `json:"location"`
	LocationError string              `json:"location_error,omitempty"`
}

func (s *Server) handlePlayer(w http.ResponseWriter, r *http.Request, ps httprouter.Params, tenant string) {
	name := ps.ByName("name")
	if !minecraft.ValidPlayerName(name) {
		writeError(w, http.StatusBadRequest, "invalid player name")
		return
	}

	stats, err := minecraft.PlayerStats(r.Context(), s.runner, tenant, name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := playerResponse{Name: name, Stats: stats}
	pos, err := minecraft.PlayerLocation(r.Context(), s.runner, tenant, name)
	if err != nil {
		resp.LocationError = err.Error()
		if errors.Is(err, minecraft.ErrNoPosition) {
			resp.LocationError = "Could not parse position"
		}
	} else {
		resp.Location = &pos
	}
	writeJSON(w, http.StatusOK, resp)
}

type settingsView struct {
	Host        string `json:"host"`
	Port        int    `json:"port"`
	PasswordSet bool   `json:"password_set"`
	Provenance  string `json:"provenance"`
	Label       string `json:"label"`
}

func viewOf(ep settings.Endpoint) settingsView {
	return settingsView{
		Host:        ep.Host,
		Port:        ep.Port,
		PasswordSet: ep.Password != "",
		Provenance:  string(ep.Provenance),
		Label:       ep.Provenance.Label(),
	}
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request, _ httprouter.Params, tenant string) {
	ep, err := s.settings.Get(r.Context(), tenant)
	if err != nil {
		log.Printf("Error loading settings for %s: %v", tenant, err)
		writeError(w, http.StatusInternalServerError, "could not load RCON settings")
		return
	}
	writeJSON(w, http.StatusOK, viewOf(ep))
}

// portText accepts the port as either a JSON number or a string, so form
// posts and typed clients both work.
type portText string

func (p *portText) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*p = portText(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*p = portText(n.String())
	return nil
}

type settingsRequest struct {
	Host     string   `json:"host"`
	Port     portText `json:"port"`
	Password string   `json:"password"`
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request, _ httprouter.Params, tenant string) {
	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	problems, err := s.settings.Save(r.Context(), tenant, settings.Form{
		Host:     req.Host,
		Port:     string(req.Port),
		Password: req.Password,
	})
	switch {
	case errors.Is(err, settings.ErrManagedByEnvironment):
		writeError(w, http.StatusConflict, "RCON settings are managed via environment and cannot be changed here")
		return
	case err != nil:
		log.Printf("Error saving settings for %s: %v", tenant, err)
		writeError(w, http.StatusInternalServerError, "could not save RCON settings")
		return
	case len(problems) > 0:
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": problems})
		return
	}

	s.handleGetSettings(w, r, nil, tenant)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
