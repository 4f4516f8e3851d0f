package web

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/csrf"
	"go.uber.org/zap"

	"flashbox/internal/adapters/http/middleware"
	"flashbox/internal/adapters/render"
	"flashbox/internal/adapters/storage/session"
	"flashbox/internal/application/flash"
	domain "flashbox/internal/domain/flash"
)

// timeNow is a variable for testability.
var timeNow = time.Now

//go:embed templates
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

var (
	errNoSession        = errors.New("request has no session")
	errConflictingKinds = fmt.Errorf("%w: kind and except cannot be combined", domain.ErrInvalidArgument)
	errConflictingVals  = fmt.Errorf("%w: args and tokens cannot be combined", domain.ErrInvalidArgument)
	errTextsWithText    = fmt.Errorf("%w: texts cannot be combined with text, args, tokens or data", domain.ErrInvalidArgument)
	errConsumeOnGet     = fmt.Errorf("%w: consuming reads use POST /api/flash/consume", domain.ErrInvalidArgument)
	errTemplateNoRender = fmt.Errorf("%w: template requires render", domain.ErrInvalidArgument)
)

// internalError logs the real error and returns a generic message to the client.
func internalError(w http.ResponseWriter, err error) {
	logger.Error("internal_error", zap.Error(err))
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// writeError maps invalid input to 400 and everything else to 500.
func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrInvalidArgument) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	internalError(w, err)
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("response_encode_failed", zap.Error(err))
	}
}

// flashStore builds a Store over the request's session. Stores for the same
// session share a stripe of the lock table.
func flashStore(r *http.Request) (*flash.Store[json.RawMessage], error) {
	id, ok := middleware.SessionIDFromContext(r.Context())
	if !ok {
		return nil, errNoSession
	}
	return flash.New[json.RawMessage](session.Bind(deps.Sessions, id), deps.Flash, flash.Deps{
		Renderer:   deps.Renderer,
		Catalog:    deps.Catalog,
		Translator: deps.Translator,
		Observer:   deps.Observer,
		Logger:     logger,
		Locker:     deps.Locks.For(id),
	}), nil
}

// parseFilter reads kind= or except= (comma separated or repeated).
func parseFilter(q url.Values) (domain.Filter, error) {
	only := splitKinds(q["kind"])
	except := splitKinds(q["except"])
	switch {
	case len(only) > 0 && len(except) > 0:
		return domain.Filter{}, errConflictingKinds
	case len(only) > 0:
		return domain.Only(only...), nil
	case len(except) > 0:
		return domain.Except(except...), nil
	}
	return domain.All(), nil
}

func splitKinds(raw []string) []domain.Kind {
	var kinds []domain.Kind
	for _, v := range raw {
		for _, k := range strings.Split(v, ",") {
			if k = strings.TrimSpace(k); k != "" {
				kinds = append(kinds, domain.Kind(k))
			}
		}
	}
	return kinds
}

func parseFlag(q url.Values, name string) (bool, error) {
	v := q.Get(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean", domain.ErrInvalidArgument, name)
	}
	return b, nil
}

type pageData struct {
	Flashes   template.HTML
	CSRFField template.HTML
	Kinds     []domain.Kind
}

// handleIndex renders and consumes every pending message. It is the only
// GET route that removes messages.
func handleIndex(w http.ResponseWriter, r *http.Request) {
	store, err := flashStore(r)
	if err != nil {
		internalError(w, err)
		return
	}
	out, err := store.Render(r.Context(), domain.All(), flash.RenderOptions{})
	if err != nil {
		internalError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, pageData{
		// Renderer output is produced by html/template and already escaped.
		Flashes:   template.HTML(out),
		CSRFField: csrf.TemplateField(r),
		Kinds:     domain.Kinds,
	}); err != nil {
		logger.Error("page_render_failed", zap.Error(err))
	}
}

// handleFlashForm appends a message from a form post and redirects home.
func handleFlashForm(w http.ResponseWriter, r *http.Request) {
	store, err := flashStore(r)
	if err != nil {
		internalError(w, err)
		return
	}
	kind := domain.Kind(strings.TrimSpace(r.FormValue("kind")))
	if err := store.Append(r.Context(), kind, r.FormValue("text"), nil, nil); err != nil {
		writeError(w, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleFlashCatalog appends a catalog message from a form post.
func handleFlashCatalog(w http.ResponseWriter, r *http.Request) {
	store, err := flashStore(r)
	if err != nil {
		internalError(w, err)
		return
	}
	kind := domain.Kind(strings.TrimSpace(r.FormValue("kind")))
	if err := store.Sugar(r.Context(), kind, strings.TrimSpace(r.FormValue("key")), nil, nil); err != nil {
		writeError(w, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleAPIRetrieve returns matching messages as JSON without removing
// them. An empty result is [].
func handleAPIRetrieve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f, err := parseFilter(q)
	if err != nil {
		writeError(w, err)
		return
	}
	if q.Has("once") {
		writeError(w, errConsumeOnGet)
		return
	}
	store, err := flashStore(r)
	if err != nil {
		internalError(w, err)
		return
	}

	msgs, err := store.Retrieve(r.Context(), f, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeMessages(w, msgs)
}

func writeMessages(w http.ResponseWriter, msgs []domain.Message[json.RawMessage]) {
	if msgs == nil {
		msgs = []domain.Message[json.RawMessage]{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

type consumeRequest struct {
	Kind     []string `json:"kind"`
	Except   []string `json:"except"`
	Render   bool     `json:"render"`
	Template string   `json:"template"`
}

// handleAPIConsume removes matching messages and returns them as JSON, or as
// rendered markup when render is set. An empty body consumes everything.
func handleAPIConsume(w http.ResponseWriter, r *http.Request) {
	var req consumeRequest
	if err := strictDecode(r, &req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	f, err := parseFilter(url.Values{"kind": req.Kind, "except": req.Except})
	if err != nil {
		writeError(w, err)
		return
	}
	if req.Template != "" && !req.Render {
		writeError(w, errTemplateNoRender)
		return
	}
	store, err := flashStore(r)
	if err != nil {
		internalError(w, err)
		return
	}

	if req.Render {
		out, err := store.Render(r.Context(), f, flash.RenderOptions{Template: req.Template})
		writeRendered(w, out, err)
		return
	}
	msgs, err := store.RetrieveOnce(r.Context(), f, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeMessages(w, msgs)
}

type appendRequest struct {
	Kind   string          `json:"kind"`
	Text   string          `json:"text"`
	Texts  []string        `json:"texts"`
	Args   []any           `json:"args"`
	Tokens map[string]any  `json:"tokens"`
	Data   json.RawMessage `json:"data"`
}

func (req appendRequest) values() (domain.Values, error) {
	switch {
	case len(req.Args) > 0 && len(req.Tokens) > 0:
		return nil, errConflictingVals
	case len(req.Args) > 0:
		return domain.Args(normalizeArgs(req.Args)), nil
	case len(req.Tokens) > 0:
		return domain.Tokens(req.Tokens), nil
	}
	return nil, nil
}

// normalizeArgs turns whole JSON numbers into int64 so %d verbs format them.
func normalizeArgs(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		if f, ok := a.(float64); ok && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			out[i] = int64(f)
			continue
		}
		out[i] = a
	}
	return out
}

// handleAPIAppend appends one message, or one message per entry of texts.
func handleAPIAppend(w http.ResponseWriter, r *http.Request) {
	var req appendRequest
	if err := strictDecode(r, &req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	store, err := flashStore(r)
	if err != nil {
		internalError(w, err)
		return
	}
	kind := domain.Kind(req.Kind)

	if len(req.Texts) > 0 {
		if req.Text != "" || len(req.Args) > 0 || len(req.Tokens) > 0 || len(req.Data) > 0 {
			writeError(w, errTextsWithText)
			return
		}
		if err := store.AppendAll(r.Context(), kind, req.Texts); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]int{"appended": len(req.Texts)})
		return
	}

	values, err := req.values()
	if err != nil {
		writeError(w, err)
		return
	}
	if err := store.Append(r.Context(), kind, req.Text, values, req.Data); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"appended": 1})
}

// handleAPIDelete removes matching messages.
func handleAPIDelete(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}
	store, err := flashStore(r)
	if err != nil {
		internalError(w, err)
		return
	}
	if err := store.Delete(r.Context(), f); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAPIRender returns rendered markup for matching messages and keeps
// them stored.
func handleAPIRender(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f, err := parseFilter(q)
	if err != nil {
		writeError(w, err)
		return
	}
	if q.Has("keep") {
		keep, err := parseFlag(q, "keep")
		if err != nil {
			writeError(w, err)
			return
		}
		if !keep {
			writeError(w, errConsumeOnGet)
			return
		}
	}
	store, err := flashStore(r)
	if err != nil {
		internalError(w, err)
		return
	}

	out, err := store.Render(r.Context(), f, flash.RenderOptions{Keep: true, Template: q.Get("template")})
	writeRendered(w, out, err)
}

func writeRendered(w http.ResponseWriter, out string, err error) {
	if errors.Is(err, render.ErrTemplateNotFound) {
		http.Error(w, "unknown template", http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(out))
}

// handleAPIPerf returns a timing snapshot for the window given by since
// (a Go duration, default 15m).
func handleAPIPerf(w http.ResponseWriter, r *http.Request) {
	if deps.Collector == nil {
		http.NotFound(w, r)
		return
	}
	window := 15 * time.Minute
	if v := r.URL.Query().Get("since"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			http.Error(w, "since must be a positive duration", http.StatusBadRequest)
			return
		}
		window = d
	}
	writeJSON(w, http.StatusOK, deps.Collector.Snapshot(timeNow().Add(-window), 10))
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}
