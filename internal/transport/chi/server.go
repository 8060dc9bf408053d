package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/nutrisafe/internal/domain"
	domaudit "github.com/kailas-cloud/nutrisafe/internal/domain/audit"
	"github.com/kailas-cloud/nutrisafe/internal/domain/canonical"
	"github.com/kailas-cloud/nutrisafe/internal/domain/severity"
	domverdict "github.com/kailas-cloud/nutrisafe/internal/domain/verdict"
	logpkg "github.com/kailas-cloud/nutrisafe/internal/logger"
	healthuc "github.com/kailas-cloud/nutrisafe/internal/usecase/health"
	"github.com/kailas-cloud/nutrisafe/internal/usecase/normalize"
	"github.com/kailas-cloud/nutrisafe/internal/usecase/suggest"
)

const maxBodyBytes = 1 << 20

// Option configures optional Server dependencies.
type Option func(*Server)

// WithReloader enables POST /v1/kb/reload.
func WithReloader(r Reloader) Option { return func(s *Server) { s.reloader = r } }

// WithVerdictLog stores every verdict and enables the /v1/verdicts routes.
func WithVerdictLog(l VerdictLog) Option { return func(s *Server) { s.verdicts = l } }

// WithClock overrides the clock used for KB expiry reporting.
func WithClock(now func() time.Time) Option { return func(s *Server) { s.now = now } }

// Server serves the HTTP API.
type Server struct {
	safety        SafetyChecker
	names         NameService
	kb            KnowledgeBase
	health        HealthChecker
	reloader      Reloader
	verdicts      VerdictLog
	validate      *validator.Validate
	logger        *zap.Logger
	now           func() time.Time
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	safety SafetyChecker,
	names NameService,
	knowledge KnowledgeBase,
	health HealthChecker,
	logger *zap.Logger,
	opts ...Option,
) *Server {
	s := &Server{
		safety:        safety,
		names:         names,
		kb:            knowledge,
		health:        health,
		validate:      validator.New(),
		logger:        logger,
		now:           time.Now,
		errorHandlers: defaultErrorHandlers(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Register mounts all routes on r.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/safety/check", s.CheckSafety)
		r.Post("/normalize", s.Normalize)
		r.Post("/suggest", s.Suggest)

		r.Get("/kb", s.GetKnowledgeBase)
		r.Get("/kb/foods/{food}/interactions", s.GetFoodInteractions)
		r.Post("/kb/reload", s.ReloadKnowledgeBase)

		r.Get("/verdicts", s.ListVerdicts)
		r.Get("/verdicts/{id}", s.GetVerdict)
	})
}

// CheckSafety handles POST /v1/safety/check.
func (s *Server) CheckSafety(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if !s.decode(w, r, &req) {
		return
	}

	v := s.safety.Check(r.Context(), req.toQuery())
	resp := NewVerdictResponse(v)

	body, err := json.Marshal(resp)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if s.verdicts != nil {
		if err := s.verdicts.Record(r.Context(), domaudit.NewEntry(v, body)); err != nil {
			s.log(r).Warn("Failed to record verdict",
				zap.String("verdict_id", v.ID()),
				zap.Error(err),
			)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(verdictHTTPStatus(v))
	_, _ = w.Write(append(body, '\n'))
}

// verdictHTTPStatus maps refusals to a status code. Evaluated verdicts are
// always 200, whatever their risk.
func verdictHTTPStatus(v domverdict.Verdict) int {
	if v.Status() != domverdict.StatusRefused {
		return http.StatusOK
	}
	switch err := v.Err(); {
	case errors.Is(err, domain.ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrStaleKnowledgeBase), errors.Is(err, domain.ErrKBVersionUnavailable):
		return http.StatusConflict
	default:
		return http.StatusServiceUnavailable
	}
}

// Normalize handles POST /v1/normalize.
func (s *Server) Normalize(w http.ResponseWriter, r *http.Request) {
	var req NormalizeRequest
	if !s.decode(w, r, &req) {
		return
	}

	names := make([]suggest.Name, len(req.Names))
	for i, n := range req.Names {
		names[i] = suggest.Name{Raw: n.Name, Kind: canonical.Kind(n.Kind)}
	}
	res, version, err := s.names.Normalize(names)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	resp := NormalizeResponse{KBVersion: version, Results: make([]ResolutionResponse, len(res))}
	for i, rr := range res {
		resp.Results[i] = resolutionToResponse(rr)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Suggest handles POST /v1/suggest.
func (s *Server) Suggest(w http.ResponseWriter, r *http.Request) {
	var req SuggestRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.names.Suggest(r.Context(), req.Name, canonical.Kind(req.Kind), req.Limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SuggestResponse{
		KBVersion:            res.KBVersion,
		Resolution:           resolutionToResponse(res.Resolution),
		Candidates:           nonNil(res.Candidates),
		RequiresConfirmation: len(res.Candidates) > 0,
	})
}

// GetKnowledgeBase handles GET /v1/kb.
func (s *Server) GetKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	snap, release, err := s.kb.Acquire()
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	defer release()
	writeJSON(w, http.StatusOK, snapshotToInfo(snap, s.now()))
}

// GetFoodInteractions handles GET /v1/kb/foods/{food}/interactions.
func (s *Server) GetFoodInteractions(w http.ResponseWriter, r *http.Request) {
	var food string
	if err := runtime.BindStyledParameterWithOptions("simple", "food", chi.URLParam(r, "food"), &food,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true}); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid food parameter")
		return
	}

	snap, release, err := s.kb.Acquire()
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	defer release()

	res := normalize.New(snap).Normalize(food, canonical.Food)
	if !res.Resolved() {
		s.handleDomainError(w, r, res.Err())
		return
	}

	interactions := snap.InteractionsForFood(res.ID)
	resp := FoodInteractionsResponse{
		KBVersion:    snap.Version(),
		Food:         resolutionToResponse(res),
		Interactions: make([]InteractionResponse, len(interactions)),
	}
	for i, in := range interactions {
		resp.Interactions[i] = interactionToResponse(in)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ReloadKnowledgeBase handles POST /v1/kb/reload.
func (s *Server) ReloadKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	if s.reloader == nil {
		s.handleDomainError(w, r, domain.ErrNotImplemented)
		return
	}
	res, err := s.reloader.Reload(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ReloadResponse(res))
}

// GetVerdict handles GET /v1/verdicts/{id}. The stored body is returned verbatim.
func (s *Server) GetVerdict(w http.ResponseWriter, r *http.Request) {
	if s.verdicts == nil {
		s.handleDomainError(w, r, domain.ErrNotImplemented)
		return
	}
	var id string
	if err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true}); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid id parameter")
		return
	}

	e, err := s.verdicts.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(e.Body)
}

// ListVerdicts handles GET /v1/verdicts.
func (s *Server) ListVerdicts(w http.ResponseWriter, r *http.Request) {
	if s.verdicts == nil {
		s.handleDomainError(w, r, domain.ErrNotImplemented)
		return
	}
	var params ListVerdictsParams
	q := r.URL.Query()
	for name, dest := range map[string]any{
		"status":     &params.Status,
		"min_risk":   &params.MinRisk,
		"kb_version": &params.KBVersion,
		"since":      &params.Since,
		"limit":      &params.Limit,
	} {
		if err := runtime.BindQueryParameter("form", true, false, name, q, dest); err != nil {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid query parameter "+name)
			return
		}
	}

	f, err := params.toFilter()
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}
	entries, err := s.verdicts.List(r.Context(), f)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	resp := VerdictListResponse{Items: make([]VerdictSummary, len(entries))}
	for i, e := range entries {
		resp.Items[i] = VerdictSummary{
			ID:          e.ID,
			GeneratedAt: e.GeneratedAt,
			Status:      e.Status,
			OverallRisk: e.OverallRisk,
			KBVersion:   e.KBVersion,
			Fingerprint: e.Fingerprint,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (p ListVerdictsParams) toFilter() (domaudit.Filter, error) {
	var f domaudit.Filter
	if p.Status != nil {
		switch st := domverdict.Status(*p.Status); st {
		case domverdict.StatusComplete, domverdict.StatusIncomplete,
			domverdict.StatusUnableToVerify, domverdict.StatusRefused:
			f.Status = st
		default:
			return f, errors.New("unknown status " + *p.Status)
		}
	}
	if p.MinRisk != nil {
		l, err := severity.Parse(*p.MinRisk)
		if err != nil {
			return f, err
		}
		f.MinRisk = l
	}
	if p.KBVersion != nil {
		f.KBVersion = *p.KBVersion
	}
	if p.Since != nil {
		f.Since = *p.Since
	}
	if p.Limit != nil {
		if *p.Limit < 0 {
			return f, errors.New("limit must be >= 0")
		}
		f.Limit = *p.Limit
	}
	return f, nil
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:    string(report.Status),
		KBVersion: report.KBVersion,
		Checks:    checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// decode reads a JSON body into dst and validates it. It writes the error
// response and returns false on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return "validation failed"
	}
	fe := ve[0]
	return "field " + fe.Namespace() + " failed on " + fe.Tag()
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := s.log(r)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

func (s *Server) log(r *http.Request) *zap.Logger {
	return logpkg.FromContextOr(r.Context(), s.logger)
}
