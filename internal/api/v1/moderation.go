package v1

import (
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	models "github.com/scmlabs/modsentry/internal/models/moderation"
	"github.com/scmlabs/modsentry/internal/moderation"
	"github.com/scmlabs/modsentry/pkg/utils"
)

// ModerateText accepts a text submission and runs the moderation pipeline.
func (a *API) ModerateText(c *fiber.Ctx) error {
	type TextInput struct {
		UserEmail   string `json:"user_email" validate:"required,email,max=100"`
		TextContent string `json:"text_content" validate:"required"`
		LLMProvider string `json:"llm_provider" validate:"omitempty,oneof=openai gemini"`
	}
	ti := new(TextInput)
	if err := utils.StrictBodyParser(c, &ti); err != nil {
		a.Logger.Warn(c.UserContext()).Logs(fmt.Sprintf("Failed to parse moderation request body: %v", err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request format",
		})
	}

	if err := a.Validator.Validate(ti); err != nil {
		a.Logger.Warn(c.UserContext()).Logs(fmt.Sprintf("Validation failed for moderation request: %v", err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Validation failed",
			"details": err,
		})
	}

	outcome, err := a.Moderation.Submit(c.UserContext(), moderation.SubmitInput{
		UserEmail: strings.ToLower(strings.TrimSpace(ti.UserEmail)),
		Kind:      models.ContentText,
		Content:   ti.TextContent,
		Provider:  ti.LLMProvider,
	})
	if err != nil {
		a.Logger.Error(c.UserContext()).Logs(fmt.Sprintf("Moderation pipeline error: %v", err))
		return utils.SendError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(outcome)
}

// ModerateImage accepts a multipart image upload and runs the moderation
// pipeline over its base64 encoding.
func (a *API) ModerateImage(c *fiber.Ctx) error {
	userEmail := strings.ToLower(strings.TrimSpace(c.FormValue("user_email")))
	if userEmail == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_email is required",
		})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "An image file is required",
		})
	}
	if !strings.HasPrefix(fileHeader.Header.Get("Content-Type"), "image/") {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "File must be an image",
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		a.Logger.Error(c.UserContext()).Logs(fmt.Sprintf("Failed to open uploaded file: %v", err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read uploaded file",
		})
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		a.Logger.Error(c.UserContext()).Logs(fmt.Sprintf("Failed to read uploaded file: %v", err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read uploaded file",
		})
	}

	outcome, err := a.Moderation.Submit(c.UserContext(), moderation.SubmitInput{
		UserEmail: userEmail,
		Kind:      models.ContentImage,
		Content:   base64.StdEncoding.EncodeToString(data),
		Provider:  c.FormValue("llm_provider"),
	})
	if err != nil {
		a.Logger.Error(c.UserContext()).Logs(fmt.Sprintf("Moderation pipeline error: %v", err))
		return utils.SendError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(outcome)
}

// GetResult returns the stored verdict for a request id.
func (a *API) GetResult(c *fiber.Ctx) error {
	requestID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request id",
		})
	}

	result, err := a.Moderation.GetResult(c.UserContext(), requestID)
	if err != nil {
		a.Logger.Error(c.UserContext()).Logs(fmt.Sprintf("Failed to fetch moderation result: %v", err))
		return utils.SendError(c, err)
	}
	if result == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Moderation result not found",
		})
	}

	return c.Status(fiber.StatusOK).JSON(result)
}
