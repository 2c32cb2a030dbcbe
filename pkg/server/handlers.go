package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/snackpack/pkg/bundleinfo"
	"github.com/matzehuels/snackpack/pkg/buildinfo"
	perrors "github.com/matzehuels/snackpack/pkg/errors"
	"github.com/matzehuels/snackpack/pkg/pipeline"
)

// statusClientClosed is logged when the client went away mid-request.
const statusClientClosed = 499

type bundleResponse struct {
	*bundleinfo.BundledPackage
	Warnings []bundleinfo.Mismatch `json:"warnings,omitempty"`
	Failed   map[string]string     `json:"failed,omitempty"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
		buildinfo.Info
	}{"ok", buildinfo.Get()})
}

func (s *Server) handleBundle(w http.ResponseWriter, r *http.Request) {
	raw, err := url.PathUnescape(chi.URLParam(r, "*"))
	if err != nil || raw == "" {
		writeError(w, http.StatusBadRequest, string(perrors.ErrCodeMalformedSpec), "missing or invalid package spec")
		return
	}
	req := pipeline.Request{Spec: raw}
	if r.URL.RawQuery != "" {
		req.Spec += "?" + r.URL.RawQuery
	}
	if v := r.URL.Query().Get("code"); v != "" {
		req.IncludeCode, _ = strconv.ParseBool(v)
	}

	result, err := s.bundler.Execute(r.Context(), req)
	if err != nil {
		status := StatusCode(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("bundle failed", "spec", req.Spec, "err", err)
		}
		code := string(perrors.GetCode(err))
		if code == "" {
			code = string(perrors.ErrCodeInternal)
		}
		writeError(w, status, code, perrors.UserMessage(err))
		return
	}

	writeJSON(w, http.StatusOK, bundleResponse{
		BundledPackage: result.Package,
		Warnings:       result.Warnings,
		Failed:         result.PlatformErrors(),
	})
}

// StatusCode maps a pipeline error to an HTTP status.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, context.Canceled):
		return statusClientClosed
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	switch perrors.GetCode(err) {
	case perrors.ErrCodeMalformedSpec:
		return http.StatusBadRequest
	case perrors.ErrCodePackageNotFound, perrors.ErrCodeVersionNotFound:
		return http.StatusNotFound
	case perrors.ErrCodePlatformBuild:
		return http.StatusUnprocessableEntity
	case perrors.ErrCodeFetch, perrors.ErrCodeNetwork:
		return http.StatusBadGateway
	case perrors.ErrCodeLockTimeout:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}
