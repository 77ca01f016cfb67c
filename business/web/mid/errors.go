package mid

import (
	"context"
	"net/http"

	"github.com/ardanlabs/minichain/business/sys/validate"
	"github.com/ardanlabs/minichain/business/web/errs"
	"github.com/ardanlabs/minichain/foundation/web"
	"go.uber.org/zap"
)

// Errors handles errors coming out of the call chain. It detects normal
// application errors which are used to respond to the client in a uniform way.
// Unexpected errors (status >= 500) are logged.
func Errors(log *zap.SugaredLogger) web.Middleware {

	// This is the actual middleware function to be executed.
	m := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			// If the context is missing this value, request the service
			// to be shutdown gracefully.
			v, err := web.GetValues(ctx)
			if err != nil {
				return web.NewShutdownError("web value missing from context")
			}

			// Run the next handler and catch any propagated error.
			if err := handler(ctx, w, r); err != nil {

				// Log the error.
				log.Errorw("ERROR", "traceid", v.TraceID, "ERROR", err)

				er, status := toResponse(err)

				// Respond with the error back to the client.
				if err := web.Respond(ctx, w, er, status); err != nil {
					return err
				}

				// If we receive the shutdown err we need to return it
				// back to the base handler to shut down the service.
				if web.IsShutdown(err) {
					return err
				}
			}

			// The error has been handled so we can stop propagating it.
			return nil
		}

		return h
	}

	return m
}

// toResponse maps a handler error onto what the client is allowed to see.
// Anything not explicitly trusted is reported as an internal error.
func toResponse(err error) (errs.Response, int) {
	if validate.IsFieldErrors(err) {
		fieldErrors := validate.GetFieldErrors(err)
		return errs.Response{Error: "data validation error", Fields: fieldErrors.Fields()}, http.StatusBadRequest
	}

	if trsErr, ok := errs.AsTrusted(err); ok {
		return errs.Response{Error: trsErr.Error()}, trsErr.Status
	}

	return errs.Response{Error: http.StatusText(http.StatusInternalServerError)}, http.StatusInternalServerError
}
