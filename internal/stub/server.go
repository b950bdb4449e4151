package stub

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/matthewbaird/metaform/internal/meta"
	"github.com/matthewbaird/metaform/internal/schema"
)

// Server serves the stub API over a Store, driven entirely by the
// bundled catalog: every catalog entity gets the full route set with no
// per-entity code.
type Server struct {
	catalog *schema.Catalog
	store   Store
	log     *zap.Logger

	// plural path segment → entity name
	byPlural map[string]string
}

// NewServer creates a stub server over the given store.
func NewServer(catalog *schema.Catalog, store Store, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		catalog:  catalog,
		store:    store,
		log:      log.Named("stub"),
		byPlural: make(map[string]string),
	}
	for _, name := range catalog.Entities() {
		s.byPlural[meta.Plural(name)] = name
	}
	return s
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/{plural}", func(r chi.Router) {
		r.Get("/_metainfo", s.handleMetainfo)
		r.Get("/", s.handleList)
		r.Post("/", s.handleCreate)
		r.Get("/{id}", s.handleGetOrDistinct)
		r.Put("/{id}", s.handleUpdate)
		r.Delete("/{id}", s.handleDelete)
		r.Post("/{id}/restore", s.handleRestore)
		r.Get("/{id}/{childPlural}", s.handleChildren)
	})

	return r
}

// ListenAndServe runs the stub on addr until the server errors.
func (s *Server) ListenAndServe(addr string) error {
	s.log.Info("stub api listening", zap.String("addr", addr))
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)))
	})
}

// entityFor resolves the {plural} path segment; writes the error
// envelope and returns "" when the entity is unknown.
func (s *Server) entityFor(w http.ResponseWriter, r *http.Request) string {
	plural := chi.URLParam(r, "plural")
	entity, ok := s.byPlural[plural]
	if !ok {
		writeFailure(w, http.StatusNotFound, "unknown entity: "+plural)
		return ""
	}
	return entity
}

// ── Handlers ──

func (s *Server) handleMetainfo(w http.ResponseWriter, r *http.Request) {
	entity := s.entityFor(w, r)
	if entity == "" {
		return
	}
	writeSuccess(w, http.StatusOK, s.catalog.EntityMeta(entity))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	entity := s.entityFor(w, r)
	if entity == "" {
		return
	}
	opts := ListOptions{
		IncludeDeleted: r.URL.Query().Get("include_deleted") == "true",
	}
	// ?mappedBy=<fk field>&parent=<id> scopes the listing without the
	// nested route.
	if fk := r.URL.Query().Get("mappedBy"); fk != "" {
		opts.MappedBy = fk
		opts.ParentID = r.URL.Query().Get("parent")
	}
	rows, err := s.store.List(r.Context(), entity, opts)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, rows)
}

// handleGetOrDistinct disambiguates GET /{plural}/{x}: when x names a
// reference field of the entity it serves the distinct-values lookup,
// otherwise x is a record id.
func (s *Server) handleGetOrDistinct(w http.ResponseWriter, r *http.Request) {
	entity := s.entityFor(w, r)
	if entity == "" {
		return
	}
	x := chi.URLParam(r, "id")

	m := s.catalog.EntityMeta(entity)
	if f := m.Field(x); f != nil && f.IsScalarRef() {
		s.handleDistinct(w, r, entity, f)
		return
	}

	rec, err := s.store.Get(r.Context(), entity, x)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, rec)
}

// handleDistinct returns the unique reference values present in the
// entity's live rows, deduplicated by referenced id.
func (s *Server) handleDistinct(w http.ResponseWriter, r *http.Request, entity string, f *meta.FieldMeta) {
	rows, err := s.store.List(r.Context(), entity, ListOptions{})
	if err != nil {
		s.storeError(w, err)
		return
	}
	seen := make(map[any]bool)
	out := make([]meta.Record, 0)
	for _, row := range rows {
		v, ok := row[f.Name]
		if !ok || v == nil {
			continue
		}
		pair, ok := v.(map[string]any)
		if !ok {
			continue
		}
		id := meta.RefID(v)
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, pair)
	}
	writeSuccess(w, http.StatusOK, out)
}

func (s *Server) handleChildren(w http.ResponseWriter, r *http.Request) {
	entity := s.entityFor(w, r)
	if entity == "" {
		return
	}
	parentID := chi.URLParam(r, "id")
	childPlural := chi.URLParam(r, "childPlural")
	child, ok := s.byPlural[childPlural]
	if !ok {
		writeFailure(w, http.StatusNotFound, "unknown entity: "+childPlural)
		return
	}

	// The FK field comes from the parent's collection declaration.
	var mappedBy string
	for _, f := range s.catalog.EntityMeta(entity).CollectionFields() {
		if f.RefEntity() == child && f.Relational.MappedBy != "" {
			mappedBy = f.Relational.MappedBy
			break
		}
	}
	if mappedBy == "" {
		writeFailure(w, http.StatusNotFound, "no "+childPlural+" relationship on "+entity)
		return
	}

	rows, err := s.store.List(r.Context(), child, ListOptions{MappedBy: mappedBy, ParentID: parentID})
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, rows)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	entity := s.entityFor(w, r)
	if entity == "" {
		return
	}
	fields, ok := decodeInput(w, r)
	if !ok {
		return
	}
	if msg := s.validateRequired(entity, fields, true); msg != "" {
		writeFailure(w, http.StatusBadRequest, msg)
		return
	}
	rec, err := s.store.Create(r.Context(), entity, fields)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, rec)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	entity := s.entityFor(w, r)
	if entity == "" {
		return
	}
	fields, ok := decodeInput(w, r)
	if !ok {
		return
	}
	if msg := s.validateRequired(entity, fields, false); msg != "" {
		writeFailure(w, http.StatusBadRequest, msg)
		return
	}
	rec, err := s.store.Update(r.Context(), entity, chi.URLParam(r, "id"), fields)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, rec)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	entity := s.entityFor(w, r)
	if entity == "" {
		return
	}
	if err := s.store.Delete(r.Context(), entity, chi.URLParam(r, "id")); err != nil {
		s.storeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, nil)
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	entity := s.entityFor(w, r)
	if entity == "" {
		return
	}
	rec, err := s.store.Restore(r.Context(), entity, chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, rec)
}

// validateRequired enforces non-nullable scalar fields. Creates check
// every field; updates only check fields present in the payload, since
// a partial update legitimately omits the rest.
func (s *Server) validateRequired(entity string, fields meta.Record, create bool) string {
	for _, f := range s.catalog.EntityMeta(entity).ScalarFields() {
		if f.Nullable || f.Type == meta.TypeBoolean || f.Type == meta.TypeFile {
			continue
		}
		v, present := fields[f.Name]
		if !present {
			if create {
				return f.Label() + " is required"
			}
			continue
		}
		if v == nil || v == "" {
			return f.Label() + " is required"
		}
	}
	return ""
}

func (s *Server) storeError(w http.ResponseWriter, err error) {
	if err == ErrNotFound {
		writeFailure(w, http.StatusNotFound, "record not found")
		return
	}
	s.log.Error("store error", zap.Error(err))
	writeFailure(w, http.StatusInternalServerError, "internal error")
}

// ── Wire format ──

// envelope is the uniform response body; data endpoints always carry
// the success flag so clients can distinguish failures from payloads.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// inputBody wraps every mutation payload.
type inputBody struct {
	InputData meta.Record `json:"input_data"`
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeFailure(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: false, Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decodeInput(w http.ResponseWriter, r *http.Request) (meta.Record, bool) {
	defer r.Body.Close()
	var body inputBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeFailure(w, http.StatusBadRequest, "malformed request body")
		return nil, false
	}
	if body.InputData == nil {
		writeFailure(w, http.StatusBadRequest, "missing input_data")
		return nil, false
	}
	return body.InputData, true
}
