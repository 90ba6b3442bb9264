package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/curamedis/caresupply-backend/api/middleware"
	pkgerrors "github.com/curamedis/caresupply-backend/pkg/errors"
)

func actorUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	return id, nil
}

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, name+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}

// resolveInstitution picks the effective institution for a write: the
// token's institution when scoped, otherwise the explicit body value
// (platform admins act on behalf of an institution).
func resolveInstitution(r *http.Request, bodyInstitutionID *string) (uuid.UUID, error) {
	if scope := middleware.InstitutionScopeFromContext(r.Context()); scope != nil {
		return *scope, nil
	}
	if bodyInstitutionID == nil || strings.TrimSpace(*bodyInstitutionID) == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "institution_id is required")
	}
	id, err := uuid.Parse(strings.TrimSpace(*bodyInstitutionID))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid institution_id")
	}
	return id, nil
}

func parseOptionalUUID(raw *string) (*uuid.UUID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(*raw))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid uuid")
	}
	return &id, nil
}
