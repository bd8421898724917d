package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/metricboard/engine/internal/api/middleware"
	"github.com/metricboard/engine/internal/api/types"
	"github.com/metricboard/engine/internal/api/validators"
	"github.com/metricboard/engine/internal/dashboard"
	"github.com/metricboard/engine/internal/models"
	appErr "github.com/metricboard/engine/pkg/errors"
	"github.com/metricboard/engine/pkg/logger"
	"github.com/metricboard/engine/pkg/utils"
)

const maxBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeJSON(w, status, types.APIResponse{Success: true, Data: data, Meta: &types.Meta{RequestID: middleware.GetRequestID(r.Context())}})
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := types.StatusFor(err)
	if status >= http.StatusInternalServerError {
		logger.L().Error("request failed",
			zap.String("id", middleware.GetRequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeJSON(w, status, types.APIResponse{
		Success: false,
		Error:   types.FromAppError(err),
		Meta:    &types.Meta{RequestID: middleware.GetRequestID(r.Context())},
	})
}

func writeErrorStr(w http.ResponseWriter, r *http.Request, msg string) {
	writeError(w, r, appErr.New(appErr.CodeInvalid, msg))
}

// decode reads a JSON body into v and validates it. An empty body decodes to the zero value.
func decode(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		return appErr.Wrap(err, appErr.CodeInvalid, "invalid json")
	}
	if err := validators.New().Struct(v); err != nil {
		return appErr.New(appErr.CodeInvalid, err.Error())
	}
	return nil
}

// modeFrom reads the optional ?date= replay parameter.
func modeFrom(r *http.Request) (dashboard.Mode, error) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return dashboard.Live(), nil
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		return dashboard.Mode{}, appErr.New(appErr.CodeInvalid, err.Error()).WithMeta("date", raw)
	}
	return dashboard.ReplayAt(d), nil
}

// writeProjection answers with the projection and its ETag, or 304 when the client copy is current.
func writeProjection(w http.ResponseWriter, r *http.Request, p dashboard.Projection) {
	body, err := json.Marshal(p)
	if err != nil {
		writeError(w, r, appErr.Wrap(err, appErr.CodeInternal, "encode projection"))
		return
	}
	tag := utils.ETag(body)
	w.Header().Set("ETag", tag)
	w.Header().Set("Cache-Control", "no-cache")
	if r.Header.Get("If-None-Match") == tag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeData(w, r, http.StatusOK, json.RawMessage(body))
}
