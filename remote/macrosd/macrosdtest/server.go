// Package macrosdtest provides an in-memory macrosd server for tests and local
// sandboxes. It speaks the same wire protocol as the real server: POST
// requests with the operation in the method query parameter, Basic
// authentication, 500 responses carrying {error, message, code} and CSV
// directory listings.
package macrosdtest

import (
	"encoding/base64"
	"encoding/csv"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tenrok/sdstore/remote/macrosd"
)

type fileEntry struct {
	data       []byte
	visibility string
	mimeType   string
	modified   time.Time
	metadata   map[string]any
}

type dirEntry struct {
	visibility string
	modified   time.Time
}

// Request is a request received by the server.
type Request struct {
	Method string // value of the method query parameter
	Query  url.Values
	Header http.Header
	Body   []byte
}

// Server is an in-memory macrosd server.
type Server struct {
	*httptest.Server

	user     string
	password string

	mu       sync.Mutex
	files    map[string]*fileEntry
	dirs     map[string]*dirEntry
	requests []Request
	failures map[string]failure
	now      func() time.Time
}

type failure struct {
	status int
	body   string
}

// NewServer starts a server accepting the given credentials.
func NewServer(user, password string) *Server {
	s := NewUnstartedServer(user, password)
	s.Start()
	return s
}

// NewUnstartedServer returns a server that is not listening yet.
func NewUnstartedServer(user, password string) *Server {
	s := &Server{
		user:     user,
		password: password,
		files:    make(map[string]*fileEntry),
		dirs:     make(map[string]*dirEntry),
		failures: make(map[string]failure),
		now:      time.Now,
	}
	s.Server = httptest.NewUnstartedServer(http.HandlerFunc(s.handle))
	return s
}

// Config returns the client configuration for this server.
func (s *Server) Config() macrosd.Config {
	return macrosd.Config{Host: s.URL, User: s.user, Password: s.password}
}

// SetClock overrides the time source used for modification times.
func (s *Server) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Fail makes the next request for method respond with status and body.
func (s *Server) Fail(method string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = failure{status: status, body: body}
}

// SetMetadata attaches extra metadata to a stored file.
func (s *Server) SetMetadata(location string, metadata map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.files[clean(location)]; ok {
		f.metadata = metadata
	}
}

// Requests returns a copy of the requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// LastRequest returns the most recent request for method.
func (s *Server) LastRequest(method string) (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.requests) - 1; i >= 0; i-- {
		if s.requests[i].Method == method {
			return s.requests[i], true
		}
	}
	return Request{}, false
}

func (s *Server) authorized(r *http.Request) bool {
	scheme, encoded, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "basic") {
		return false
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return false
	}
	user, password, ok := strings.Cut(string(raw), ":")
	return ok && user == s.user && password == s.password
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !s.authorized(r) {
		w.Header().Set("WWW-Authenticate", `Basic realm="macrosd"`)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, "InvalidStreamProvided", err.Error(), 0)
		return
	}
	q := r.URL.Query()
	method := q.Get("method")

	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, Request{Method: method, Query: q, Header: r.Header.Clone(), Body: body})
	if f, ok := s.failures[method]; ok {
		delete(s.failures, method)
		w.WriteHeader(f.status)
		io.WriteString(w, f.body)
		return
	}

	loc := clean(q.Get("location"))
	switch method {
	case "fileExists":
		_, ok := s.files[loc]
		writeJSON(w, map[string]any{"fileExists": ok})
	case "directoryExists":
		writeJSON(w, map[string]any{"directoryExists": s.dirExists(loc)})
	case "write":
		vis := q.Get("visibility")
		if !validVisibility(vis) {
			writeError(w, "InvalidVisibilityProvided", "invalid visibility "+vis, 0)
			return
		}
		s.mkdirAll(path.Dir(loc), "private")
		s.files[loc] = &fileEntry{data: body, visibility: vis, mimeType: detectMime(loc, body), modified: s.now()}
		w.WriteHeader(http.StatusOK)
	case "read":
		f, ok := s.files[loc]
		if !ok {
			writeError(w, "UnableToReadFile", "unable to read file from location: "+loc, 0)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(f.data)
	case "delete":
		delete(s.files, loc)
		w.WriteHeader(http.StatusOK)
	case "deleteDirectory":
		s.deleteDir(loc)
		w.WriteHeader(http.StatusOK)
	case "createDirectory":
		vis := q.Get("visibility")
		if !validVisibility(vis) {
			writeError(w, "InvalidVisibilityProvided", "invalid visibility "+vis, 0)
			return
		}
		s.mkdirAll(loc, vis)
		w.WriteHeader(http.StatusOK)
	case "setVisibility":
		vis := q.Get("visibility")
		if !validVisibility(vis) {
			writeError(w, "InvalidVisibilityProvided", "invalid visibility "+vis, 0)
			return
		}
		if f, ok := s.files[loc]; ok {
			f.visibility = vis
		} else if d, ok := s.dirs[loc]; ok {
			d.visibility = vis
		} else {
			writeError(w, "UnableToSetVisibility", "unable to set visibility for file "+loc, 0)
			return
		}
		w.WriteHeader(http.StatusOK)
	case "visibility", "mimeType", "lastModified", "fileSize":
		f, ok := s.files[loc]
		if !ok {
			writeError(w, "UnableToRetrieveMetadata", "unable to retrieve the "+method+" for file at location: "+loc, 0)
			return
		}
		writeJSON(w, map[string]any{
			"visibility":   map[string]any{"visibility": f.visibility},
			"mimeType":     map[string]any{"mimeType": f.mimeType},
			"lastModified": map[string]any{"lastModified": f.modified.Unix()},
			"fileSize":     map[string]any{"fileSize": len(f.data)},
		}[method])
	case "listContents":
		s.list(w, loc, q.Get("deep") == "true")
	case "move", "copy":
		s.transfer(w, method, q)
	default:
		writeError(w, "BadMethodCall", "unknown method "+method, 0)
	}
}

func (s *Server) transfer(w http.ResponseWriter, method string, q url.Values) {
	src, dst := clean(q.Get("source")), clean(q.Get("destination"))
	f, ok := s.files[src]
	if !ok {
		name := "UnableToCopyFile"
		if method == "move" {
			name = "UnableToMoveFile"
		}
		writeError(w, name, "unable to "+method+" file from "+src+" to "+dst, 0)
		return
	}

	dirVis := q.Get("directory_visibility")
	if dirVis == "" {
		dirVis = "private"
	}
	s.mkdirAll(path.Dir(dst), dirVis)

	cp := *f
	cp.data = append([]byte(nil), f.data...)
	cp.modified = s.now()
	if vis := q.Get("visibility"); vis != "" {
		cp.visibility = vis
	}
	s.files[dst] = &cp
	if method == "move" && src != dst {
		delete(s.files, src)
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) list(w http.ResponseWriter, loc string, deep bool) {
	type row struct {
		path   string
		record []string
	}
	var rows []row

	match := func(p string) bool {
		if p == loc {
			return false
		}
		rel := p
		if loc != "" {
			if !strings.HasPrefix(p, loc+"/") {
				return false
			}
			rel = strings.TrimPrefix(p, loc+"/")
		}
		return deep || !strings.Contains(rel, "/")
	}

	for p, d := range s.dirs {
		if match(p) {
			rows = append(rows, row{p, []string{"dir", p, d.visibility, strconv.FormatInt(d.modified.Unix(), 10), "", "", ""}})
		}
	}
	for p, f := range s.files {
		if match(p) {
			extra := ""
			if f.metadata != nil {
				b, _ := json.Marshal(f.metadata)
				extra = string(b)
			}
			rows = append(rows, row{p, []string{
				"file", p, f.visibility, strconv.FormatInt(f.modified.Unix(), 10),
				strconv.Itoa(len(f.data)), f.mimeType, extra,
			}})
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].path < rows[j].path })

	w.Header().Set("Content-Type", "text/csv")
	cw := csv.NewWriter(w)
	for _, r := range rows {
		cw.Write(r.record)
	}
	cw.Flush()
}

func (s *Server) dirExists(loc string) bool {
	if loc == "" {
		return true
	}
	if _, ok := s.dirs[loc]; ok {
		return true
	}
	for p := range s.files {
		if strings.HasPrefix(p, loc+"/") {
			return true
		}
	}
	return false
}

func (s *Server) mkdirAll(loc, visibility string) {
	for loc != "" && loc != "." && loc != "/" {
		if _, ok := s.dirs[loc]; !ok {
			s.dirs[loc] = &dirEntry{visibility: visibility, modified: s.now()}
		}
		loc = path.Dir(loc)
	}
}

func (s *Server) deleteDir(loc string) {
	delete(s.dirs, loc)
	prefix := loc + "/"
	for p := range s.dirs {
		if strings.HasPrefix(p, prefix) {
			delete(s.dirs, p)
		}
	}
	for p := range s.files {
		if strings.HasPrefix(p, prefix) {
			delete(s.files, p)
		}
	}
}

func clean(p string) string {
	return strings.Trim(path.Clean("/"+p), "/")
}

func validVisibility(v string) bool {
	return v == "public" || v == "private"
}

func detectMime(name string, data []byte) string {
	if t := mime.TypeByExtension(path.Ext(name)); t != "" {
		return t
	}
	return http.DetectContentType(data)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, name, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]any{"error": name, "message": message, "code": code})
}
