package rates

import (
	"errors"

	"github.com/amirasaad/fxrates/pkg/app"
	"github.com/amirasaad/fxrates/pkg/exchange/core"
	"github.com/amirasaad/fxrates/webapi/common"
	"github.com/gofiber/fiber/v2"
)

// Routes registers rate lookup, conversion and ingestion endpoints.
func Routes(router fiber.Router, a *app.App) {
	router.Get("/api/convert", Convert(a))

	g := router.Group("/api/rates")
	// Static segments first so they are not captured by :from.
	g.Get("/status", Status(a))
	g.Get("/verify", Verify(a))
	g.Post("/ingest", Ingest(a))
	g.Get("/", ListRates(a))
	g.Get("/:from", ListFrom(a))
	g.Get("/:from/:to", GetRate(a))
	g.Get("/:from/:to/available", IsAvailable(a))
}

// GetRate resolves a single pair.
// @Summary Resolve exchange rate
// @Tags rates
// @Produce json
// @Param from path string true "Source currency"
// @Param to path string true "Target currency"
// @Success 200 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Router /api/rates/{from}/{to} [get]
func GetRate(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := a.Resolver.Resolve(c.UserContext(), c.Params("from"), c.Params("to"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Rate not resolved", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Rate resolved", res)
	}
}

// IsAvailable reports whether a pair resolves through any tier.
func IsAvailable(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		from, err := core.ParseCode(c.Params("from"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid currency code", err)
		}
		to, err := core.ParseCode(c.Params("to"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid currency code", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Availability checked", AvailabilityDTO{
			From:      from,
			To:        to,
			Available: a.Resolver.IsPairAvailable(c.UserContext(), from, to),
		})
	}
}

// ListRates returns every stored pair.
func ListRates(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pairs, err := a.Ingester.CurrentRates(c.UserContext())
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to list rates", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Rates fetched", pairs)
	}
}

// ListFrom returns the stored pairs quoted from one currency.
func ListFrom(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		from, err := core.ParseCode(c.Params("from"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid currency code", err)
		}
		pairs, err := a.Deps.RateStore.ListFrom(c.UserContext(), from)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to list rates", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Rates fetched", pairs)
	}
}

// Convert converts an amount.
// @Summary Convert amount
// @Tags rates
// @Produce json
// @Param from query string true "Source currency"
// @Param to query string true "Target currency"
// @Param amount query number true "Amount"
// @Success 200 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Router /api/convert [get]
func Convert(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := common.BindAndValidateQuery[ConvertQuery](c)
		if err != nil {
			return nil
		}
		res, err := a.Converter.Convert(c.UserContext(), q.Amount, q.From, q.To)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Conversion failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Amount converted", res)
	}
}

// Ingest triggers a refresh. Without force=true the call is throttled to
// one fetch per refresh interval.
func Ingest(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		force := c.QueryBool("force", false)
		res, ran, err := a.Scheduler.Trigger(c.UserContext(), force)
		if err != nil {
			if errors.Is(err, core.ErrProviderUnavailable) {
				return common.ProblemDetailsJSON(c, "Rate providers unavailable", err, res)
			}
			return common.ProblemDetailsJSON(c, "Ingestion failed", err)
		}
		msg := "Rates ingested"
		if !ran {
			msg = "Refresh throttled"
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, msg, IngestDTO{Ran: ran, Result: res})
	}
}

// Status reports data freshness.
func Status(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		st, err := a.Ingester.Status(c.UserContext())
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to read status", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Status fetched", st)
	}
}

// Verify runs the consistency and smoke checks over stored rates.
func Verify(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		report, err := a.Verifier.Run(c.UserContext())
		if err != nil {
			return common.ProblemDetailsJSON(c, "Verification failed", err)
		}
		msg := "Rates consistent"
		if !report.OK() {
			msg = "Rate inconsistencies found"
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, msg, report)
	}
}
