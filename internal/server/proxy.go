package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/amsctl/internal/auth"
)

// ProxyHandler forwards requests to the API through the authenticated request pipeline.
type ProxyHandler struct {
	pipeline *auth.Pipeline
	proxy    *httputil.ReverseProxy
	logger   *log.Logger
}

// NewProxyHandler creates a [ProxyHandler] targeting the pipeline's base URL.
func NewProxyHandler(p *auth.Pipeline, logger *log.Logger) (*ProxyHandler, error) {
	target, err := url.Parse(p.BaseURL())
	if err != nil {
		return nil, fmt.Errorf("invalid upstream URL: %w", err)
	}

	h := &ProxyHandler{pipeline: p, logger: logger}
	h.proxy = &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			pr.Out.Header.Del("Authorization")
		},
		Transport:      p,
		ModifyResponse: h.modifyResponse,
		ErrorHandler:   h.handleError,
	}
	return h, nil
}

// Routes returns the HTTP routes this handler serves.
func (h *ProxyHandler) Routes() []string {
	return []string{"/"}
}

func (h *ProxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.proxy.ServeHTTP(w, r)
}

// modifyResponse points a 401 that ended the session at the login entry point.
func (h *ProxyHandler) modifyResponse(resp *http.Response) error {
	if resp.StatusCode != http.StatusUnauthorized {
		return nil
	}
	creds, err := h.pipeline.Store().Get(resp.Request.Context())
	if err == nil && creds.Empty() {
		resp.Header.Set("Location", h.pipeline.EntryPoint())
	}
	return nil
}

func (h *ProxyHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var refreshErr *auth.RefreshError
	switch {
	case errors.As(err, &refreshErr):
		h.logger.Warn("session refresh failed", "path", r.URL.Path, "error", err)
		message := refreshErr.Message
		if message == "" {
			message = "REFRESH_FAILED"
		}
		w.Header().Set("Location", h.pipeline.EntryPoint())
		writeMessage(w, http.StatusUnauthorized, message)
	case errors.Is(err, context.Canceled):
		h.logger.Debug("client went away", "path", r.URL.Path)
	default:
		h.logger.Error("upstream request failed", "path", r.URL.Path, "error", err)
		writeMessage(w, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE")
	}
}
