package handlers

import (
	"errors"
	"net/http"

	"github.com/andresuchdata/r2bridge/internal/domain"
	"github.com/andresuchdata/r2bridge/internal/r2"
	"github.com/gin-gonic/gin"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// StatusFor maps an operation error to the gateway response status.
func StatusFor(err error) int {
	var (
		vErr  *domain.ValidationError
		aErr  *domain.APIError
		upErr *domain.UploadError
		dlErr *domain.DownloadError
		deErr *domain.DeleteError
		tErr  *domain.TransportError
	)
	switch {
	case errors.As(err, &vErr), errors.Is(err, r2.ErrUnknownOperation):
		return http.StatusBadRequest
	case errors.Is(err, r2.ErrUnsupportedOperation):
		return http.StatusNotImplemented
	case errors.As(err, &aErr):
		return providerStatus(aErr.Status)
	case errors.As(err, &upErr):
		return providerStatus(upErr.Status)
	case errors.As(err, &dlErr):
		return providerStatus(dlErr.Status)
	case errors.As(err, &deErr):
		return providerStatus(deErr.Status)
	case errors.As(err, &tErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// providerStatus passes provider client and server errors through; anything
// else means the exchange itself failed.
func providerStatus(status int) int {
	if status >= 400 && status <= 599 {
		return status
	}
	return http.StatusBadGateway
}

func writeError(c *gin.Context, err error) {
	status := StatusFor(err)
	kind := domain.ErrorKind(err)
	body := gin.H{"error": err.Error(), "kind": kind}

	var aErr *domain.APIError
	if errors.As(err, &aErr) && aErr.Code != 0 {
		body["code"] = aErr.Code
	}
	if f := objectFault(err); f != nil {
		if f.Code != "" {
			body["code"] = f.Code
		}
		if f.Key != "" {
			body["key"] = f.Key
		}
	}

	if status >= http.StatusInternalServerError && kind == domain.KindInternal {
		log.Error().Stack().Err(pkgerrors.WithStack(err)).Str("path", c.Request.URL.Path).Msg("unexpected gateway error")
	}
	c.AbortWithStatusJSON(status, body)
}

func objectFault(err error) *domain.ObjectFault {
	var (
		upErr *domain.UploadError
		dlErr *domain.DownloadError
		deErr *domain.DeleteError
	)
	switch {
	case errors.As(err, &upErr):
		return &upErr.ObjectFault
	case errors.As(err, &dlErr):
		return &dlErr.ObjectFault
	case errors.As(err, &deErr):
		return &deErr.ObjectFault
	}
	return nil
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": message, "kind": domain.KindValidation})
}
