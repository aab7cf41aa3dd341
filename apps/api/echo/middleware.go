package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

const contextSessionKey = "sessionID"

// sessionMiddleware resolves the session of the request token.
func sessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		id, err := getContextSessionID(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context session")
		}
		ctx.Set(contextSessionKey, id)
		return next(ctx)
	}
}

func contextSessionID(ctx echo.Context) string {
	id, _ := ctx.Get(contextSessionKey).(string)
	return id
}
