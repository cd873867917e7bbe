// Package mockserver is an in-memory stand-in for the webmail server's JSON
// API: session login, per-user message copies, and the mailbox, message,
// send and update endpoints. It backs `mailview mock` and the client tests.
package mockserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	sessionCookie   = "sessionid"
	csrfCookie      = "csrftoken"
	TimestampLayout = "Jan 02 2006, 03:04 PM"
)

// RequestLog records one request the server handled.
type RequestLog struct {
	Timestamp time.Time
	Method    string
	Path      string
	Body      string
	Status    int
}

type email struct {
	id         int64
	owner      string
	sender     string
	recipients []string
	subject    string
	body       string
	timestamp  time.Time
	read       bool
	archived   bool
}

type fault struct {
	method string
	path   string
	status int
}

type Server struct {
	mu       sync.Mutex
	users    map[string]string
	sessions map[string]string
	emails   []*email
	nextID   int64
	logs     []RequestLog
	faults   []fault

	now        func() time.Time
	logger     *slog.Logger
	httpServer *http.Server
}

func New(seed *Seed, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		users:    make(map[string]string),
		sessions: make(map[string]string),
		now:      time.Now,
		logger:   logger,
	}
	if seed == nil {
		return s
	}
	for _, u := range seed.Users {
		s.AddUser(u.Email, u.Password)
	}
	for _, m := range seed.Messages {
		ids, err := s.Deliver(m.From, m.To, m.Subject, m.Body)
		if err != nil {
			logger.Warn("skipping seed message", "subject", m.Subject, "error", err)
			continue
		}
		s.mu.Lock()
		for _, e := range s.emails {
			if containsID(ids, e.id) && e.owner != strings.ToLower(m.From) {
				e.read = m.Read
				e.archived = m.Archived
			}
		}
		s.mu.Unlock()
	}
	return s
}

func (s *Server) AddUser(address, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[strings.ToLower(address)] = password
}

// Deliver stores one copy of the message per participant, the way the
// server does: the sender's copy is already read. It returns the new ids,
// sender's copy first.
func (s *Server) Deliver(from string, to []string, subject, body string) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deliverLocked(from, to, subject, body)
}

func (s *Server) deliverLocked(from string, to []string, subject, body string) ([]int64, error) {
	sender := strings.ToLower(from)
	if _, ok := s.users[sender]; !ok {
		return nil, fmt.Errorf("User with email %s does not exist.", from)
	}
	recipients := make([]string, 0, len(to))
	for _, r := range to {
		addr := strings.ToLower(strings.TrimSpace(r))
		if addr == "" {
			continue
		}
		if _, ok := s.users[addr]; !ok {
			return nil, fmt.Errorf("User with email %s does not exist.", r)
		}
		recipients = append(recipients, addr)
	}
	if len(recipients) == 0 {
		return nil, fmt.Errorf("At least one recipient required.")
	}

	owners := []string{sender}
	for _, r := range recipients {
		if !containsString(owners, r) {
			owners = append(owners, r)
		}
	}

	ts := s.now()
	ids := make([]int64, 0, len(owners))
	for _, owner := range owners {
		s.nextID++
		s.emails = append(s.emails, &email{
			id:         s.nextID,
			owner:      owner,
			sender:     sender,
			recipients: append([]string(nil), recipients...),
			subject:    subject,
			body:       body,
			timestamp:  ts,
			read:       owner == sender,
		})
		ids = append(ids, s.nextID)
	}
	return ids, nil
}

// FailNext makes the next request matching method and path answer with
// status and a JSON error body.
func (s *Server) FailNext(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = append(s.faults, fault{method: method, path: path, status: status})
}

func (s *Server) Requests() []RequestLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RequestLog, len(s.logs))
	copy(out, s.logs)
	return out
}

// CountRequests counts handled requests with the given method and path.
func (s *Server) CountRequests(method, path string) int {
	n := 0
	for _, l := range s.Requests() {
		if l.Method == method && l.Path == path {
			n++
		}
	}
	return n
}

// Session logs address in directly and returns the session cookie value.
func (s *Server) Session(address string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := uuid.NewString()
	s.sessions[token] = strings.ToLower(address)
	return token
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("GET /logout", s.handleLogout)
	mux.HandleFunc("POST /emails", s.requireLogin(s.handleCompose))
	mux.HandleFunc("GET /emails/{key}", s.requireLogin(s.handleGet))
	mux.HandleFunc("PUT /emails/{key}", s.requireLogin(s.handleUpdate))
	return s.record(mux)
}

func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	s.logger.Info("mock server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.now()
		body, _ := io.ReadAll(r.Body)
		r.Body.Close()
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		if f, ok := s.takeFault(r.Method, r.URL.Path); ok {
			writeJSON(rec, f.status, map[string]string{"error": http.StatusText(f.status)})
		} else {
			next.ServeHTTP(rec, r)
		}

		s.mu.Lock()
		s.logs = append(s.logs, RequestLog{
			Timestamp: start,
			Method:    r.Method,
			Path:      r.URL.Path,
			Body:      string(body),
			Status:    rec.status,
		})
		s.mu.Unlock()
		s.logger.Debug("mock request", "method", r.Method, "path", r.URL.Path, "status", rec.status)
	})
}

func (s *Server) takeFault(method, path string) (fault, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, f := range s.faults {
		if f.method == method && f.path == path {
			s.faults = append(s.faults[:i], s.faults[i+1:]...)
			return f, true
		}
	}
	return fault{}, false
}

type userKey struct{}

func (s *Server) requireLogin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := s.sessionUser(r)
		if user == "" {
			http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.Path), http.StatusFound)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userKey{}, user)))
	}
}

func (s *Server) sessionUser(r *http.Request) string {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[c.Value]
}

func currentUser(r *http.Request) string {
	user, _ := r.Context().Value(userKey{}).(string)
	return user
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, err := r.Cookie(csrfCookie); err != nil {
		http.SetCookie(w, &http.Cookie{Name: csrfCookie, Value: uuid.NewString(), Path: "/"})
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<form method=\"post\"><input name=\"email\"><input name=\"password\" type=\"password\"></form>")
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	token, err := r.Cookie(csrfCookie)
	if err != nil || token.Value == "" || r.PostForm.Get("csrfmiddlewaretoken") != token.Value {
		http.Error(w, "CSRF verification failed.", http.StatusForbidden)
		return
	}

	address := r.PostForm.Get("email")
	if address == "" {
		address = r.PostForm.Get("username")
	}
	address = strings.ToLower(strings.TrimSpace(address))
	password := r.PostForm.Get("password")

	s.mu.Lock()
	want, ok := s.users[address]
	s.mu.Unlock()
	if !ok || want != password {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<p>Invalid email and/or password.</p>")
		return
	}

	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: s.Session(address), Path: "/", HttpOnly: true})
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		s.mu.Lock()
		delete(s.sessions, c.Value)
		s.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleCompose(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Recipients string `json:"recipients"`
		Subject    string `json:"subject"`
		Body       string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON body."})
		return
	}

	var to []string
	for _, part := range strings.Split(req.Recipients, ",") {
		if p := strings.TrimSpace(part); p != "" {
			to = append(to, p)
		}
	}

	s.mu.Lock()
	_, err := s.deliverLocked(currentUser(r), to, req.Subject, req.Body)
	s.mu.Unlock()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "Email sent successfully."})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	user := currentUser(r)

	if id, err := strconv.ParseInt(key, 10, 64); err == nil {
		s.mu.Lock()
		e := s.find(user, id)
		var out map[string]any
		if e != nil {
			out = serialize(e)
		}
		s.mu.Unlock()
		if out == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Email not found."})
			return
		}
		writeJSON(w, http.StatusOK, out)
		return
	}

	s.mu.Lock()
	list, ok := s.mailbox(user, key)
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid mailbox."})
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("key"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Email not found."})
		return
	}
	var req struct {
		Read     *bool `json:"read"`
		Archived *bool `json:"archived"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON body."})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.find(currentUser(r), id)
	if e == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Email not found."})
		return
	}
	if req.Read != nil {
		e.read = *req.Read
	}
	if req.Archived != nil {
		e.archived = *req.Archived
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) find(user string, id int64) *email {
	for _, e := range s.emails {
		if e.id == id && e.owner == user {
			return e
		}
	}
	return nil
}

func (s *Server) mailbox(user, name string) ([]map[string]any, bool) {
	var match func(e *email) bool
	switch name {
	case "inbox":
		match = func(e *email) bool { return containsString(e.recipients, user) && !e.archived }
	case "sent":
		match = func(e *email) bool { return e.sender == user }
	case "archive":
		match = func(e *email) bool { return containsString(e.recipients, user) && e.archived }
	default:
		return nil, false
	}

	var selected []*email
	for _, e := range s.emails {
		if e.owner == user && match(e) {
			selected = append(selected, e)
		}
	}
	sort.SliceStable(selected, func(i, j int) bool {
		if !selected[i].timestamp.Equal(selected[j].timestamp) {
			return selected[i].timestamp.After(selected[j].timestamp)
		}
		return selected[i].id > selected[j].id
	})

	out := make([]map[string]any, 0, len(selected))
	for _, e := range selected {
		out = append(out, serialize(e))
	}
	return out, true
}

func serialize(e *email) map[string]any {
	return map[string]any{
		"id":         e.id,
		"sender":     e.sender,
		"recipients": e.recipients,
		"subject":    e.subject,
		"body":       e.body,
		"timestamp":  e.timestamp.Format(TimestampLayout),
		"read":       e.read,
		"archived":   e.archived,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsID(list []int64, id int64) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}
