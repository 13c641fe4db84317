package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"rollcall/internal/controller"
	"rollcall/internal/picker"
	"rollcall/internal/roster"
	"rollcall/internal/session"
	"rollcall/internal/websocket"
	"rollcall/pkg/interfaces"
	"rollcall/pkg/types"
)

// maxImportBytes bounds the text body accepted by the import endpoint.
const maxImportBytes = 1 << 20

// Server provides the HTTP API for rosters and classroom sessions
type Server struct {
	rosters     *roster.Manager
	sessions    *session.Manager
	registry    *websocket.Registry
	broadcaster *websocket.Broadcaster
	limiter     *RateLimiter
	router      *http.ServeMux
	handler     http.Handler
}

// NewServer creates a new API server with all dependencies. A nil limiter disables
// per-session rate limiting.
func NewServer(rosters *roster.Manager, sessions *session.Manager, registry *websocket.Registry, limiter *RateLimiter) *Server {
	s := &Server{
		rosters:     rosters,
		sessions:    sessions,
		registry:    registry,
		broadcaster: websocket.NewBroadcaster(registry),
		limiter:     limiter,
		router:      http.NewServeMux(),
	}
	s.setupRoutes()
	return s
}

// ServeHTTP implements http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// setupRoutes configures all API routes
// ARCHITECTURAL DISCOVERY: CORS wraps the whole mux so preflight requests are answered
// before method-specific patterns can reject them
func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /api/rosters", s.handleListRosters)
	s.router.HandleFunc("POST /api/rosters", s.handleCreateRoster)
	s.router.HandleFunc("POST /api/rosters/import", s.handleImportRoster)
	s.router.HandleFunc("GET /api/rosters/{name}", s.handleGetRoster)
	s.router.HandleFunc("DELETE /api/rosters/{name}", s.handleDeleteRoster)

	s.router.HandleFunc("GET /api/sessions", s.handleListSessions)
	s.router.HandleFunc("POST /api/sessions", s.handleCreateSession)
	s.router.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	s.router.HandleFunc("DELETE /api/sessions/{id}", s.handleEndSession)
	s.router.HandleFunc("POST /api/sessions/{id}/load", s.limitSession(s.handleLoadRoster))
	s.router.HandleFunc("POST /api/sessions/{id}/students", s.limitSession(s.handleAddStudent))
	s.router.HandleFunc("DELETE /api/sessions/{id}/students/{number}", s.limitSession(s.handleRemoveStudent))
	s.router.HandleFunc("POST /api/sessions/{id}/pick", s.limitSession(s.handlePick))
	s.router.HandleFunc("POST /api/sessions/{id}/lucky", s.limitSession(s.handleLucky))

	s.router.HandleFunc("GET /health", s.handleHealth)

	s.handler = s.corsMiddleware(s.jsonMiddleware(s.router))
}

// Request/response types

type CreateRosterRequest struct {
	ClassName string `json:"class_name"`
	SessionID string `json:"session_id,omitempty"`
}

type LoadRosterRequest struct {
	ClassName string `json:"class_name"`
}

type AddStudentRequest struct {
	Name string `json:"name"`
}

type RosterListResponse struct {
	Rosters []string `json:"rosters"`
	Count   int      `json:"count"`
}

type SessionResponse struct {
	session.Snapshot
	ConnectionCount int `json:"connection_count"`
}

type SessionListResponse struct {
	Sessions []session.Snapshot `json:"sessions"`
	Count    int                `json:"count"`
}

type ImportResponse struct {
	ClassName string          `json:"class_name"`
	Students  []types.Student `json:"students"`
	Count     int             `json:"count"`
}

type PickResponse struct {
	roster.PickResult
	Message string `json:"message"`
}

type LuckyResponse struct {
	LuckyNumber int `json:"lucky_number"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

type HealthResponse struct {
	Status      string                 `json:"status"`
	Timestamp   time.Time              `json:"timestamp"`
	Storage     string                 `json:"storage"`
	Connections map[string]int         `json:"connections"`
	Sessions    map[string]interface{} `json:"sessions"`
}

// Roster handlers

func (s *Server) handleListRosters(w http.ResponseWriter, r *http.Request) {
	names, err := s.rosters.ListRosters(r.Context())
	if err != nil {
		s.sendDomainError(w, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	s.sendJSON(w, http.StatusOK, RosterListResponse{Rosters: names, Count: len(names)})
}

func (s *Server) handleCreateRoster(w http.ResponseWriter, r *http.Request) {
	var req CreateRosterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON in request body")
		return
	}

	sess, ok := s.optionalSession(w, req.SessionID)
	if !ok {
		return
	}

	created, err := s.rosters.CreateEmptyRoster(r.Context(), sess, req.ClassName)
	if err != nil {
		s.sendSessionError(w, r, sess, err)
		return
	}

	if sess != nil {
		s.notifyRosterChanged(sess, controller.TitleSuccess, fmt.Sprintf("Class %q created", created.ClassName))
	}
	s.sendJSON(w, http.StatusCreated, created)
}

func (s *Server) handleImportRoster(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	className := query.Get("class_name")

	sess, ok := s.optionalSession(w, query.Get("session_id"))
	if !ok {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.sendError(w, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE",
				fmt.Sprintf("Roster text exceeds %d bytes", tooLarge.Limit))
			return
		}
		s.sendError(w, http.StatusBadRequest, "INVALID_BODY", "Failed to read request body")
		return
	}

	students, err := s.rosters.ImportFromText(r.Context(), sess, className, string(body))
	if err != nil {
		s.sendSessionError(w, r, sess, err)
		return
	}

	if sess != nil {
		s.notifyRosterChanged(sess, controller.TitleSuccess, fmt.Sprintf("Imported %d students into %q", len(students), className))
	}
	s.sendJSON(w, http.StatusCreated, ImportResponse{
		ClassName: className,
		Students:  students,
		Count:     len(students),
	})
}

func (s *Server) handleGetRoster(w http.ResponseWriter, r *http.Request) {
	loaded, err := s.rosters.LoadRoster(r.Context(), r.PathValue("name"))
	if err != nil {
		s.sendDomainError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, loaded)
}

// handleDeleteRoster removes a roster and clears it from every session that has it open
func (s *Server) handleDeleteRoster(w http.ResponseWriter, r *http.Request) {
	className := r.PathValue("name")

	if _, ok := s.optionalSession(w, r.URL.Query().Get("session_id")); !ok {
		return
	}

	affected := s.sessions.SessionsForClass(className)
	if err := s.rosters.DeleteRoster(r.Context(), className, affected...); err != nil {
		s.sendDomainError(w, err)
		return
	}

	for _, sess := range affected {
		s.notifyRosterChanged(sess, controller.TitleSuccess, fmt.Sprintf("Class %q deleted", className))
	}
	w.WriteHeader(http.StatusNoContent)
}

// Session handlers

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.sessions.ListSessions()
	snapshots := make([]session.Snapshot, 0, len(sessions))
	for _, sess := range sessions {
		if _, err := s.rosters.Refresh(r.Context(), sess); err != nil && !errors.Is(err, interfaces.ErrNoActiveRoster) {
			log.Printf("Failed to refresh session %s: %v", sess.ID, err)
		}
		snapshots = append(snapshots, sess.Snapshot())
	}
	s.sendJSON(w, http.StatusOK, SessionListResponse{Sessions: snapshots, Count: len(snapshots)})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.CreateSession()
	s.sendJSON(w, http.StatusCreated, s.sessionResponse(sess))
}

// handleGetSession re-reads the active roster so edits made through other sessions show up
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	if _, err := s.rosters.Refresh(r.Context(), sess); err != nil && !errors.Is(err, interfaces.ErrNoActiveRoster) {
		s.sendDomainError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, s.sessionResponse(sess))
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	s.broadcaster.Broadcast(sess.ID, websocket.Event{Type: websocket.EventSessionEnded})
	closed := s.registry.CloseSession(sess.ID)
	if err := s.sessions.EndSession(sess.ID); err != nil {
		s.sendDomainError(w, err)
		return
	}
	s.limiter.Forget(sess.ID)

	log.Printf("Ended session %s, closed %d displays", sess.ID, closed)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLoadRoster(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	var req LoadRosterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON in request body")
		return
	}

	if _, err := s.rosters.Open(r.Context(), sess, req.ClassName); err != nil {
		s.sendSessionError(w, r, sess, err)
		return
	}

	s.notifyRosterChanged(sess, "", "")
	s.sendJSON(w, http.StatusOK, s.sessionResponse(sess))
}

func (s *Server) handleAddStudent(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	var req AddStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON in request body")
		return
	}

	student, err := s.rosters.AddStudent(r.Context(), sess, req.Name)
	if err != nil {
		s.sendSessionError(w, r, sess, err)
		return
	}

	s.notifyRosterChanged(sess, "", "")
	s.sendJSON(w, http.StatusCreated, student)
}

func (s *Server) handleRemoveStudent(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	number, err := strconv.Atoi(r.PathValue("number"))
	if err != nil {
		s.sendError(w, http.StatusBadRequest, "INVALID_STUDENT_NUMBER", "Student number must be an integer")
		return
	}

	if err := s.rosters.RemoveStudent(r.Context(), sess, number); err != nil {
		s.sendSessionError(w, r, sess, err)
		return
	}

	s.notifyRosterChanged(sess, "", "")
	s.sendJSON(w, http.StatusOK, s.sessionResponse(sess))
}

// handlePick draws a student and shows the outcome on the session displays
// FUNCTIONAL DISCOVERY: NoEligible and NoStudents are normal outcomes, not errors
func (s *Server) handlePick(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	result, err := s.rosters.PickRandom(r.Context(), sess)
	if err != nil {
		s.sendSessionError(w, r, sess, err)
		return
	}

	title, message := pickMessage(result)
	s.broadcaster.Broadcast(sess.ID, websocket.Event{
		Type:    websocket.EventPicked,
		Title:   title,
		Message: message,
		Data:    result,
	})
	s.sendJSON(w, http.StatusOK, PickResponse{PickResult: result, Message: message})
}

func (s *Server) handleLucky(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	n, err := s.rosters.RollLuckyNumber(r.Context(), sess)
	if err != nil {
		s.sendSessionError(w, r, sess, err)
		return
	}

	s.broadcaster.Broadcast(sess.ID, websocket.Event{
		Type:    websocket.EventLuckyNumber,
		Title:   controller.TitleLuckyNumber,
		Message: strconv.Itoa(n),
		Data:    LuckyResponse{LuckyNumber: n},
	})
	s.sendJSON(w, http.StatusOK, LuckyResponse{LuckyNumber: n})
}

// handleHealth reports storage reachability and live connection counts
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:      "healthy",
		Timestamp:   time.Now(),
		Storage:     "connected",
		Connections: s.registry.GetStats(),
		Sessions:    s.sessions.GetStats(),
	}

	status := http.StatusOK
	if err := s.rosters.HealthCheck(ctx); err != nil {
		log.Printf("Storage health check failed: %v", err)
		response.Status = "unhealthy"
		response.Storage = "error"
		status = http.StatusServiceUnavailable
	}

	s.sendJSON(w, status, response)
}

// Helpers

func (s *Server) sessionResponse(sess *session.Session) SessionResponse {
	return SessionResponse{
		Snapshot:        sess.Snapshot(),
		ConnectionCount: len(s.registry.GetSessionConnections(sess.ID)),
	}
}

// requireSession resolves the {id} path value, writing the error response on failure
func (s *Server) requireSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.sessions.GetSession(r.PathValue("id"))
	if err != nil {
		s.sendDomainError(w, err)
		return nil, false
	}
	return sess, true
}

// optionalSession resolves an optional session_id; empty means no session
func (s *Server) optionalSession(w http.ResponseWriter, sessionID string) (*session.Session, bool) {
	if sessionID == "" {
		return nil, true
	}
	sess, err := s.sessions.GetSession(sessionID)
	if err != nil {
		s.sendDomainError(w, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) notifyRosterChanged(sess *session.Session, title, message string) {
	s.broadcaster.Broadcast(sess.ID, websocket.Event{
		Type:    websocket.EventRosterChanged,
		Title:   title,
		Message: message,
		Data:    sess.Snapshot(),
	})
}

func pickMessage(result roster.PickResult) (string, string) {
	switch result.Outcome {
	case picker.Picked:
		return controller.TitlePicked, fmt.Sprintf("%d. %s", result.Student.StudentNumber, result.Student.Name)
	case picker.NoEligible:
		return controller.TitleNoEligible, controller.MsgNoEligible
	default:
		return controller.TitleNoStudents, controller.MsgNoStudents
	}
}

// statusFor maps domain errors onto HTTP status codes and stable error codes
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, session.ErrInvalidSession):
		return http.StatusBadRequest, "INVALID_SESSION_ID"
	case errors.Is(err, types.ErrInvalidClassName):
		return http.StatusBadRequest, "INVALID_CLASS_NAME"
	case errors.Is(err, types.ErrInvalidStudentName):
		return http.StatusBadRequest, "INVALID_STUDENT_NAME"
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound, "SESSION_NOT_FOUND"
	case errors.Is(err, interfaces.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, interfaces.ErrAlreadyExists):
		return http.StatusConflict, "ALREADY_EXISTS"
	case errors.Is(err, interfaces.ErrNoActiveRoster):
		return http.StatusConflict, "NO_ACTIVE_ROSTER"
	case errors.Is(err, interfaces.ErrEmptyRoster):
		return http.StatusConflict, "EMPTY_ROSTER"
	case errors.Is(err, interfaces.ErrCorruptData), errors.Is(err, types.ErrInvalidDocument):
		return http.StatusUnprocessableEntity, "CORRUPT_DATA"
	default:
		return http.StatusInternalServerError, "STORAGE_ERROR"
	}
}

func (s *Server) sendDomainError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("API request failed: %v", err)
	}
	s.sendError(w, status, code, controller.Describe(err))
}

// sendSessionError writes the error response and shows the same message on the
// session's displays, the way the terminal shows it in an error dialog
func (s *Server) sendSessionError(w http.ResponseWriter, r *http.Request, sess *session.Session, err error) {
	if sess != nil {
		if notifyErr := s.broadcaster.Notifier(sess.ID).Notify(r.Context(), controller.TitleError, controller.Describe(err)); notifyErr != nil {
			log.Printf("Failed to notify displays of session %s: %v", sess.ID, notifyErr)
		}
	}
	s.sendDomainError(w, err)
}

// Middleware

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, v interface{}) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func (s *Server) sendError(w http.ResponseWriter, status int, code, message string) {
	w.WriteHeader(status)
	response := ErrorResponse{
		Error:   http.StatusText(status),
		Code:    code,
		Message: message,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Failed to encode error response: %v", err)
	}
}
