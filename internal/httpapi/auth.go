package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenTTL = 24 * time.Hour

type teamClaims struct {
	TeamID   string `json:"team_id"`
	TeamName string `json:"team_name"`
	jwt.RegisteredClaims
}

type contextKey string

const teamIDKey contextKey = "team_id"

// issueToken signs a session token for an authenticated team.
func (a *API) issueToken(teamID uuid.UUID, teamName string, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, teamClaims{
		TeamID:   teamID.String(),
		TeamName: teamName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})
	return token.SignedString(a.jwtSecret)
}

// withTeamAuth extracts and verifies the bearer token, placing the team ID
// in the request context.
func (a *API) withTeamAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims := &teamClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			return a.jwtSecret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		teamID, err := uuid.Parse(claims.TeamID)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token subject")
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), teamIDKey, teamID)))
	}
}

// withAdminKey guards admin endpoints with a shared key header. Full admin
// credential management lives outside this service.
func (a *API) withAdminKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a.adminKey == "" || r.Header.Get("X-Admin-Key") != a.adminKey {
			writeError(w, http.StatusUnauthorized, "invalid admin key")
			return
		}
		next(w, r)
	}
}

func teamIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(teamIDKey).(uuid.UUID)
	return id, ok
}
