package currency

import (
	"errors"

	"github.com/amirasaad/fxrates/pkg/exchange/core"
	"github.com/amirasaad/fxrates/pkg/repository"
	"github.com/amirasaad/fxrates/webapi/common"
	"github.com/gofiber/fiber/v2"
)

var errNoCurrencyStore = fiber.NewError(fiber.StatusServiceUnavailable, "currency metadata is not configured")

// Routes registers HTTP routes for currency metadata.
func Routes(router fiber.Router, store repository.CurrencyStore) {
	g := router.Group("/api/currencies")
	g.Get("/", ListCurrencies(store))
	g.Get("/:code", GetCurrency(store))
}

// ListCurrencies returns every known currency. ?type=fiat|crypto filters.
// @Summary List all currencies
// @Tags currencies
// @Produce json
// @Param type query string false "fiat or crypto"
// @Success 200 {object} common.Response
// @Failure 500 {object} common.ProblemDetails
// @Router /api/currencies [get]
func ListCurrencies(store repository.CurrencyStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if store == nil {
			return common.ProblemDetailsJSON(c, "Currencies unavailable", errNoCurrencyStore)
		}
		metas, err := store.ListCurrencies(c.UserContext())
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to list currencies", err)
		}
		if kind := core.CurrencyType(c.Query("type")); kind != "" {
			filtered := metas[:0]
			for _, m := range metas {
				if m.Type == kind {
					filtered = append(filtered, m)
				}
			}
			metas = filtered
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Currencies fetched successfully", metas)
	}
}

// GetCurrency returns currency information by code
// @Summary Get currency by code
// @Tags currencies
// @Produce json
// @Param code path string true "Currency code (e.g., USD, BTC)"
// @Success 200 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Router /api/currencies/{code} [get]
func GetCurrency(store repository.CurrencyStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if store == nil {
			return common.ProblemDetailsJSON(c, "Currencies unavailable", errNoCurrencyStore)
		}
		code, err := core.ParseCode(c.Params("code"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid currency code", err)
		}
		meta, err := store.GetCurrency(c.UserContext(), code)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to fetch currency", err)
		}
		if meta == nil {
			return common.ProblemDetailsJSON(c, "Currency not found",
				errors.New("unknown currency "+code), fiber.StatusNotFound)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Currency fetched successfully", meta)
	}
}
