package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/curamedis/caresupply-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
// InstitutionID is nil for platform admins, which scopes them to every
// institution.
type AccessTokenPayload struct {
	UserID        uuid.UUID
	InstitutionID *uuid.UUID
	Role          enums.ActorRole
	JTI           string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID        uuid.UUID       `json:"user_id"`
	InstitutionID *uuid.UUID      `json:"institution_id,omitempty"`
	Role          enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}
