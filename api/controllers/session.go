package controllers

import (
	"net/http"

	"github.com/avelinehq/cartside/api/middleware"
	"github.com/avelinehq/cartside/api/responses"
	"github.com/avelinehq/cartside/internal/lifecycle"
	pkgerrors "github.com/avelinehq/cartside/pkg/errors"
	"github.com/avelinehq/cartside/pkg/logger"
)

// SessionLogin folds the anonymous session cart into the authenticated
// user's cart. The user identity comes from the verified bearer token.
func SessionLogin(core *lifecycle.Coordinator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if core == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart core unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		if userID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user identity"))
			return
		}

		if err := core.Login(r.Context(), userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sessionLoginResponse{Owner: core.ActiveOwner().String()})
	}
}

// SessionGet reports the active owner key.
func SessionGet(core *lifecycle.Coordinator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if core == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart core unavailable"))
			return
		}
		responses.WriteSuccess(w, sessionLoginResponse{Owner: core.ActiveOwner().String()})
	}
}

type sessionLoginResponse struct {
	Owner string `json:"owner"`
}
