// Package v1 carries the HTTP handlers for the moderation API.
package v1

import (
	"github.com/scmlabs/modsentry/internal/analytics"
	"github.com/scmlabs/modsentry/internal/moderation"
	"github.com/scmlabs/modsentry/pkg/logger"
	"github.com/scmlabs/modsentry/pkg/utils"
)

// API bundles the handler dependencies. Built once in the router and
// shared by the v1 and v2 mounts.
type API struct {
	Moderation *moderation.Service
	Analytics  *analytics.Service
	Logger     *logger.Logger
	Validator  *utils.Validator
}

func New(mod *moderation.Service, stats *analytics.Service, log *logger.Logger) *API {
	return &API{
		Moderation: mod,
		Analytics:  stats,
		Logger:     log,
		Validator:  utils.NewValidator(),
	}
}
