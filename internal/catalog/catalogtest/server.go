// Package catalogtest provides a fake catalog API for tests.
package catalogtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Version is the API version segment the server mounts under.
const Version = "v1"

// Product is a catalog entry as the API serves it.
type Product struct {
	ID                 int      `json:"id"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	Price              float64  `json:"price"`
	DiscountPercentage float64  `json:"discountPercentage"`
	Rating             float64  `json:"rating"`
	Stock              int      `json:"stock"`
	Brand              string   `json:"brand"`
	Category           string   `json:"category"`
	Thumbnail          string   `json:"thumbnail"`
	Images             []string `json:"images"`
}

// User is a random user as the API serves it.
type User struct {
	ID   int `json:"id"`
	Name struct {
		First string `json:"first"`
		Last  string `json:"last"`
	} `json:"name"`
	Email   string `json:"email"`
	Picture struct {
		Medium string `json:"medium"`
	} `json:"picture"`
	Location struct {
		City    string `json:"city"`
		Country string `json:"country"`
	} `json:"location"`
}

// RecordedRequest stores request details for verification.
type RecordedRequest struct {
	Method  string
	Path    string
	Query   url.Values
	Headers http.Header
	Time    time.Time
}

// Failure is an injected error response.
type Failure struct {
	Status  int
	Message string
}

// Server is a fake catalog API. Listing supports page, limit, query, sortBy
// and sortType the way the real API does.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	requests  []*RecordedRequest
	products  []Product
	users     []User
	failure   *Failure
	onProduct func(r *http.Request)
}

// New starts a server holding products and users.
func New(products []Product, users []User) *Server {
	s := &Server{
		requests: make([]*RecordedRequest, 0),
		products: products,
		users:    users,
	}

	prefix := "/api/" + Version
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+prefix+"/public/randomproducts", s.recordingWrapper(s.handleProducts))
	mux.HandleFunc("GET "+prefix+"/public/randomproducts/{id}", s.recordingWrapper(s.handleProduct))
	mux.HandleFunc("GET "+prefix+"/public/randomusers", s.recordingWrapper(s.handleUsers))

	s.Server = httptest.NewServer(mux)
	return s
}

// BaseURL is the value to configure a client with, alongside Version.
func (s *Server) BaseURL() string {
	return s.URL + "/api"
}

// SetProducts replaces the catalog.
func (s *Server) SetProducts(products []Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = products
}

// SetUsers replaces the instructor pool.
func (s *Server) SetUsers(users []User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = users
}

// Fail makes every product request answer with f until Recover is called.
func (s *Server) Fail(f Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failure = &f
}

// Recover undoes Fail.
func (s *Server) Recover() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failure = nil
}

// OnProduct registers a hook run before each product request is answered.
// Tests use it to hold a response back.
func (s *Server) OnProduct(hook func(r *http.Request)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onProduct = hook
}

// recordingWrapper wraps handlers to record requests.
func (s *Server) recordingWrapper(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, &RecordedRequest{
			Method:  r.Method,
			Path:    r.URL.Path,
			Query:   r.URL.Query(),
			Headers: r.Header.Clone(),
			Time:    time.Now(),
		})
		s.mu.Unlock()
		h(w, r)
	}
}

// LastRequest returns the last recorded request.
func (s *Server) LastRequest() *RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return nil
	}
	return s.requests[len(s.requests)-1]
}

// Requests returns all recorded requests.
func (s *Server) Requests() []*RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]*RecordedRequest, len(s.requests))
	copy(result, s.requests)
	return result
}

// ProductListRequests returns the recorded listing requests.
func (s *Server) ProductListRequests() []*RecordedRequest {
	var out []*RecordedRequest
	for _, r := range s.Requests() {
		if strings.HasSuffix(r.Path, "/public/randomproducts") {
			out = append(out, r)
		}
	}
	return out
}

// RequestCount returns the number of recorded requests.
func (s *Server) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// ClearRequests clears recorded requests.
func (s *Server) ClearRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = s.requests[:0]
}

func (s *Server) beforeProduct(w http.ResponseWriter, r *http.Request) bool {
	s.mu.Lock()
	hook := s.onProduct
	s.mu.Unlock()
	if hook != nil {
		hook(r)
	}

	s.mu.Lock()
	failure := s.failure
	s.mu.Unlock()
	if failure != nil {
		writeJSON(w, failure.Status, map[string]any{
			"statusCode": failure.Status,
			"message":    failure.Message,
			"success":    false,
		})
		return false
	}
	return true
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	if !s.beforeProduct(w, r) {
		return
	}

	q := r.URL.Query()
	page := intParam(q, "page", 1)
	limit := intParam(q, "limit", 10)

	s.mu.Lock()
	matched := filter(s.products, q.Get("query"))
	s.mu.Unlock()
	sortProducts(matched, q.Get("sortBy"), q.Get("sortType"))

	writePage(w, page, limit, matched)
}

func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	if !s.beforeProduct(w, r) {
		return
	}

	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"statusCode": http.StatusBadRequest,
			"message":    "invalid product id",
			"success":    false,
		})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.products {
		if p.ID == id {
			writeData(w, p)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{
		"statusCode": http.StatusNotFound,
		"message":    fmt.Sprintf("product %d does not exist", id),
		"success":    false,
	})
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := intParam(q, "limit", 10)

	s.mu.Lock()
	users := append([]User(nil), s.users...)
	s.mu.Unlock()

	writePage(w, intParam(q, "page", 1), limit, users)
}

func filter(products []Product, query string) []Product {
	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if query == "" || strings.Contains(strings.ToLower(p.Title), query) {
			out = append(out, p)
		}
	}
	return out
}

func sortProducts(products []Product, by, dir string) {
	var less func(a, b Product) bool
	switch by {
	case "title":
		less = func(a, b Product) bool { return a.Title < b.Title }
	case "price":
		less = func(a, b Product) bool { return a.Price < b.Price }
	default:
		return
	}
	sort.SliceStable(products, func(i, j int) bool {
		if dir == "desc" {
			return less(products[j], products[i])
		}
		return less(products[i], products[j])
	})
}

func writePage[T any](w http.ResponseWriter, page, limit int, items []T) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	totalPages := (len(items) + limit - 1) / limit

	start := (page - 1) * limit
	if start > len(items) {
		start = len(items)
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	window := items[start:end]

	writeData(w, map[string]any{
		"page":             page,
		"limit":            limit,
		"totalPages":       totalPages,
		"previousPage":     page > 1,
		"nextPage":         page < totalPages,
		"totalItems":       len(items),
		"currentPageItems": len(window),
		"data":             window,
	})
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, map[string]any{
		"statusCode": http.StatusOK,
		"data":       data,
		"message":    "ok",
		"success":    true,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func intParam(q url.Values, name string, def int) int {
	n, err := strconv.Atoi(q.Get(name))
	if err != nil {
		return def
	}
	return n
}
