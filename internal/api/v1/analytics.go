package v1

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/scmlabs/modsentry/pkg/utils"
)

// UserSummary returns the analytics summary for one submitter.
func (a *API) UserSummary(c *fiber.Ctx) error {
	userEmail := c.Query("user")
	if userEmail == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user query parameter is required",
		})
	}

	summary, err := a.Analytics.GetUserSummary(c.UserContext(), userEmail)
	if err != nil {
		a.Logger.Error(c.UserContext()).Logs(fmt.Sprintf("Failed to build user analytics summary: %v", err))
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, summary)
}

// SystemSummary returns the system-wide analytics counters.
func (a *API) SystemSummary(c *fiber.Ctx) error {
	summary, err := a.Analytics.GetSystemSummary(c.UserContext())
	if err != nil {
		a.Logger.Error(c.UserContext()).Logs(fmt.Sprintf("Failed to build system analytics summary: %v", err))
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, summary)
}
