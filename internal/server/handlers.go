package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/leapstack-labs/erdview/internal/cache"
	"github.com/leapstack-labs/erdview/internal/explorer"
	"github.com/leapstack-labs/erdview/internal/graph"
	"github.com/leapstack-labs/erdview/internal/loader"
	"github.com/leapstack-labs/erdview/internal/render"
	"github.com/leapstack-labs/erdview/internal/schema"
	"github.com/leapstack-labs/erdview/internal/store"
)

// DefaultDepth is the related-tables depth when the request names none.
const DefaultDepth = 1

// errBadParam marks query parameters that cannot be parsed.
var errBadParam = errors.New("bad parameter")

// Handlers provides the HTTP handlers.
type Handlers struct {
	explorer *explorer.Explorer
	store    SchemaReader
	notifier *loader.Notifier
	logger   *slog.Logger
}

// NewHandlers creates a new Handlers instance. notify may be nil, in which
// case no event stream is offered.
func NewHandlers(exp *explorer.Explorer, s SchemaReader, notify *loader.Notifier, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{
		explorer: exp,
		store:    s,
		notifier: notify,
		logger:   logger,
	}
}

// HealthResponse is the body of /healthz.
type HealthResponse struct {
	Status   string `json:"status"`
	Snapshot string `json:"snapshot,omitempty"`
	Format   string `json:"format"`
}

// Health reports liveness and the loaded snapshot.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Format: h.explorer.Format()}
	if v, ok := h.store.(store.Versioned); ok {
		snap, err := v.Snapshot(r.Context())
		if err != nil {
			h.writeError(w, r, fmt.Errorf("failed to read snapshot: %w", err))
			return
		}
		resp.Snapshot = snap
	}
	h.writeJSON(w, resp)
}

// Schemas lists the stored schemas.
func (h *Handlers) Schemas(w http.ResponseWriter, r *http.Request) {
	names, err := h.store.Schemas(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, schema.SortFold(names))
}

// Tables lists the tables of one schema.
func (h *Handlers) Tables(w http.ResponseWriter, r *http.Request) {
	names, err := h.store.Tables(r.Context(), chi.URLParam(r, "schema"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, schema.SortFold(names))
}

// Columns returns the stored column list of one table. An unknown table has
// no columns.
func (h *Handlers) Columns(w http.ResponseWriter, r *http.Request) {
	t := schema.Table{Schema: chi.URLParam(r, "schema"), Name: chi.URLParam(r, "table")}
	columns, err := h.store.Columns(r.Context(), t)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if columns == nil {
		columns = []schema.Column{}
	}
	h.writeJSON(w, columns)
}

// SchemaDiagram renders every table of one schema.
func (h *Handlers) SchemaDiagram(w http.ResponseWriter, r *http.Request) {
	onlyRefs, err := boolParam(r, "onlyrefs", false)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	data, err := h.explorer.RenderSchema(r.Context(), explorer.SchemaRequest{
		Schema:         chi.URLParam(r, "schema"),
		OnlyKeyColumns: onlyRefs,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeDiagram(w, r, data)
}

// Related renders the tables around ?schema=&table= up to ?depth= references
// away.
func (h *Handlers) Related(w http.ResponseWriter, r *http.Request) {
	req, err := relatedRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	data, err := h.explorer.RelatedTables(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeDiagram(w, r, data)
}

// Route renders the route(s) between ?from= and ?to=.
func (h *Handlers) Route(w http.ResponseWriter, r *http.Request) {
	req, err := routeRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	data, err := h.explorer.FindRoute(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeDiagram(w, r, data)
}

// Events streams one server-sent event per schema reload until the client
// goes away.
func (h *Handlers) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ch := h.notifier.Subscribe()
	defer h.notifier.Unsubscribe(ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	_, _ = fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case load := <-ch:
			data, err := json.Marshal(map[string]any{
				"id":        load.ID,
				"source":    load.Source,
				"loaded_at": load.LoadedAt,
			})
			if err != nil {
				h.logger.Error("failed to encode reload event", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: reload\ndata: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func relatedRequest(r *http.Request) (explorer.RelatedRequest, error) {
	q := r.URL.Query()
	schemaName, tableName := strings.TrimSpace(q.Get("schema")), strings.TrimSpace(q.Get("table"))
	if schemaName == "" || tableName == "" {
		return explorer.RelatedRequest{}, fmt.Errorf("%w: schema and table are required", errBadParam)
	}

	depth := DefaultDepth
	if s := q.Get("depth"); s != "" {
		d, err := strconv.Atoi(s)
		if err != nil {
			return explorer.RelatedRequest{}, fmt.Errorf("%w: depth %q is not a number", errBadParam, s)
		}
		depth = d
	}

	excluded, err := excludedParam(r)
	if err != nil {
		return explorer.RelatedRequest{}, err
	}
	onlyRefs, err := boolParam(r, "onlyrefs", false)
	if err != nil {
		return explorer.RelatedRequest{}, err
	}
	return explorer.RelatedRequest{
		Seed:           schema.Table{Schema: schemaName, Name: tableName},
		Depth:          depth,
		Excluded:       excluded,
		OnlyKeyColumns: onlyRefs,
	}, nil
}

func routeRequest(r *http.Request) (explorer.RouteRequest, error) {
	q := r.URL.Query()
	start, err := schema.ParseTable(q.Get("from"))
	if err != nil {
		return explorer.RouteRequest{}, fmt.Errorf("%w: from: %v", errBadParam, err)
	}
	dest, err := schema.ParseTable(q.Get("to"))
	if err != nil {
		return explorer.RouteRequest{}, fmt.Errorf("%w: to: %v", errBadParam, err)
	}
	excluded, err := excludedParam(r)
	if err != nil {
		return explorer.RouteRequest{}, err
	}
	onlyRefs, err := boolParam(r, "onlyrefs", false)
	if err != nil {
		return explorer.RouteRequest{}, err
	}
	shortest, err := boolParam(r, "shortest", true)
	if err != nil {
		return explorer.RouteRequest{}, err
	}
	return explorer.RouteRequest{
		Start:          start,
		Dest:           dest,
		Excluded:       excluded,
		OnlyKeyColumns: onlyRefs,
		Shortest:       shortest,
	}, nil
}

// excludedParam collects every ?exclude= value, each a comma separated list
// of schema.table entries.
func excludedParam(r *http.Request) (schema.TableSet, error) {
	var excluded schema.TableSet
	for _, v := range r.URL.Query()["exclude"] {
		tables, err := schema.ParseTableList(v)
		if err != nil {
			return nil, fmt.Errorf("%w: exclude: %v", errBadParam, err)
		}
		for _, t := range tables {
			if excluded == nil {
				excluded = make(schema.TableSet)
			}
			excluded.Add(t)
		}
	}
	return excluded, nil
}

func boolParam(r *http.Request, name string, def bool) (bool, error) {
	if !r.URL.Query().Has(name) {
		return def, nil
	}
	v, err := cache.ParseBool(r.URL.Query().Get(name))
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", errBadParam, name, err)
	}
	return v, nil
}

// writeDiagram sends rendered bytes, which are gzip compressed. Clients that
// accept gzip get them as they are.
func (h *Handlers) writeDiagram(w http.ResponseWriter, r *http.Request, data []byte) {
	w.Header().Set("Content-Type", render.ContentType(h.explorer.Format()))
	w.Header().Add("Vary", "Accept-Encoding")

	if acceptsGzip(r.Header.Get("Accept-Encoding")) {
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		_, _ = w.Write(data)
		return
	}

	raw, err := render.Decompress(data)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_, _ = w.Write(raw)
}

// acceptsGzip reports whether an Accept-Encoding header admits gzip. An
// explicit gzip entry wins over "*", whatever their order.
func acceptsGzip(header string) bool {
	var gzip, star *bool
	for _, part := range strings.Split(header, ",") {
		fields := strings.Split(part, ";")
		coding := strings.ToLower(strings.TrimSpace(fields[0]))
		accepted := qualityOf(fields[1:]) > 0
		switch coding {
		case "gzip", "x-gzip":
			gzip = &accepted
		case "*":
			star = &accepted
		}
	}
	if gzip != nil {
		return *gzip
	}
	return star != nil && *star
}

// qualityOf returns the q parameter among params, 1 when absent.
func qualityOf(params []string) float64 {
	for _, p := range params {
		v, ok := strings.CutPrefix(strings.TrimSpace(p), "q=")
		if !ok {
			continue
		}
		q, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return q
	}
	return 1
}

func (h *Handlers) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	switch {
	case errors.Is(err, context.Canceled) && r.Context().Err() != nil:
		h.logger.Debug("request cancelled", "path", r.URL.Path)
		return
	case status >= http.StatusInternalServerError:
		h.logger.Error("request failed", "path", r.URL.Path, "error", err)
	default:
		h.logger.Debug("request rejected", "path", r.URL.Path, "status", status, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(ErrorResponse{Error: err.Error()}); encErr != nil {
		h.logger.Error("failed to encode error response", "error", encErr)
	}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, errBadParam),
		errors.Is(err, explorer.ErrInvalidRequest),
		errors.Is(err, graph.ErrInvalidDepth):
		return http.StatusBadRequest
	case errors.Is(err, graph.ErrTooManyTables):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
