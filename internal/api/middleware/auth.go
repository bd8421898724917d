package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/metricboard/engine/internal/api/types"
	"github.com/metricboard/engine/internal/share"
)

type projectKeyType string

const ProjectIDKey projectKeyType = "project_id"

// ShareToken validates the {token} path parameter and adds the shared project id to context.
func ShareToken(issuer *share.Issuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			projectID, err := issuer.Parse(chi.URLParam(r, "token"))
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(types.APIResponse{Success: false, Error: types.FromAppError(err)})
				return
			}
			ctx := context.WithValue(r.Context(), ProjectIDKey, projectID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetProjectID(ctx context.Context) string {
	if v := ctx.Value(ProjectIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
