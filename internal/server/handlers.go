package server

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/vanderheijden86/herbgraph/pkg/kgapi"
)

const maxBodyBytes = 1 << 20

// errorBody is the JSON shape of non-LLM errors.
type errorBody struct {
	Error errorInfo `json:"error"`
}

type errorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorBody{Error: errorInfo{Code: code, Message: message}})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")
	graph, err := s.store.Query(r.Context(), term, s.opts.Limits)
	if err != nil {
		s.log.Error("query failed", zap.String("term", term), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, graph)
}

func (s *Server) handleDetails(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	details, err := s.store.Details(r.Context(), name, s.opts.Limits)
	if err != nil {
		s.log.Error("details failed", zap.String("name", name), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "DETAILS_FAILED", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, details)
}

func (s *Server) handleAutocomplete(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.names.Suggest(r.URL.Query().Get("q"), s.opts.MaxSuggestions))
}

func (s *Server) handleTaxonomy(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.catalog.Entries())
}

func (s *Server) handleStructuredInfo(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	info, err := s.store.StructuredInfo(r.Context(), name)
	if err != nil {
		s.log.Error("structured info failed", zap.String("name", name), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "INFO_FAILED", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, kgapi.StructuredInfo{Info: info})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req kgapi.GenerateRequest
	if err := s.decode(w, r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, fmt.Sprintf("生成失败：%v", err))
		return
	}
	if req.N == 0 {
		req.N = 1
	}
	if err := s.check(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, fmt.Sprintf("生成失败：%v", err))
		return
	}

	text, err := s.complete(r, "generate", GeneratePrompt(req))
	if err != nil {
		s.log.Error("generate failed", zap.String("plant", req.PlantName), zap.Error(err))
		respondJSON(w, http.StatusInternalServerError, fmt.Sprintf("生成失败：%v", err))
		return
	}
	respondJSON(w, http.StatusOK, text)
}

func (s *Server) handleScriptSuggestions(w http.ResponseWriter, r *http.Request) {
	fail := func(status int, err error) {
		respondJSON(w, status, kgapi.ScriptResponse{Error: fmt.Sprintf("脚本生成失败：%v", err)})
	}

	var req kgapi.ScriptRequest
	if err := s.decode(w, r, &req); err != nil {
		fail(http.StatusBadRequest, err)
		return
	}
	if req.N == 0 {
		req.N = 1
	}
	if err := s.check(&req); err != nil {
		fail(http.StatusBadRequest, err)
		return
	}

	text, err := s.complete(r, "script", ScriptPrompt(req))
	if err != nil {
		s.log.Error("script suggestions failed", zap.String("plant", req.PlantName), zap.Error(err))
		fail(http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, kgapi.ScriptResponse{ScriptSuggestions: text})
}

func (s *Server) complete(r *http.Request, kind, prompt string) (string, error) {
	start := time.Now()
	text, err := s.gen.Complete(r.Context(), prompt)
	s.metrics.ObserveLLM(kind, s.gen.Model(), err == nil, time.Since(start))
	return text, err
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer body.Close()
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// check validates a request struct and flattens field errors into one
// message.
func (s *Server) check(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "min", "max":
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", field, fe.Tag(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
