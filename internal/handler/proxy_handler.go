package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/iqrolife/iqrolife-api/internal/middleware"
	"github.com/iqrolife/iqrolife-api/internal/session"
	appErrors "github.com/iqrolife/iqrolife-api/pkg/errors"
	"github.com/iqrolife/iqrolife-api/pkg/proxy"
	"github.com/iqrolife/iqrolife-api/pkg/response"
)

const maxProxyBody = 4 << 20

type forwarder interface {
	Forward(ctx context.Context, req proxy.Request) (*proxy.Response, error)
}

type proxyRecorder interface {
	RecordProxy(method string, status int)
}

// ProxyHandler passes authenticated calls through to the backend API.
type ProxyHandler struct {
	client  forwarder
	metrics proxyRecorder
}

// NewProxyHandler creates a ProxyHandler. metrics may be nil.
func NewProxyHandler(client forwarder, metrics proxyRecorder) *ProxyHandler {
	return &ProxyHandler{client: client, metrics: metrics}
}

// Forward godoc
// @Summary Backend pass-through
// @Description Forward the call to the backend API and return its JSON body and status verbatim
// @Tags Backend
// @Accept json
// @Produce json
// @Param path path string true "Backend path"
// @Success 200 {object} object
// @Failure 401 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Router /backend/{path} [get]
// @Router /backend/{path} [post]
// @Router /backend/{path} [put]
// @Router /backend/{path} [patch]
// @Router /backend/{path} [delete]
func (h *ProxyHandler) Forward(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxProxyBody)
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, appErrors.ErrPayloadTooLarge)
			return
		}
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "failed to read request body"))
		return
	}

	token := session.BearerToken(c.GetHeader("Authorization"))
	if token == "" {
		token = middleware.SessionToken(c)
	}

	res, err := h.client.Forward(c.Request.Context(), proxy.Request{
		Method:   c.Request.Method,
		Path:     c.Param("path"),
		RawQuery: c.Request.URL.RawQuery,
		Body:     body,
		Token:    token,
	})
	if err != nil {
		h.record(c.Request.Method, 0)
		response.Error(c, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, appErrors.ErrUpstream.Message))
		return
	}

	h.record(c.Request.Method, res.Status)
	c.Header("Cache-Control", "no-store")
	c.Data(res.Status, "application/json; charset=utf-8", res.Body)
}

func (h *ProxyHandler) record(method string, status int) {
	if h.metrics != nil {
		h.metrics.RecordProxy(method, status)
	}
}
