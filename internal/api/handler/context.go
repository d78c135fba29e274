package handler

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/coursecatalog/catalog-api/internal/core/domain"
)

// callerIdentity extracts the identity injected by the Auth middleware and
// fails fast before any service call: a token without a user id is
// structurally valid but operationally unusable.
func callerIdentity(c echo.Context) (domain.Identity, error) {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return domain.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	role, _ := c.Get("role").(string)
	return domain.IdentityFor(uid, role), nil
}

// decodeJSON reads the request body into dst keeping numbers as json.Number,
// so loosely-typed course fields reach the normalizer unchanged.
func decodeJSON(c echo.Context, dst any) error {
	dec := json.NewDecoder(c.Request().Body)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	return nil
}
