package db

import (
	"time"

	"github.com/scmlabs/modsentry/pkg/logger"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// WithLogger routes GORM's own logging through the service logger.
func WithLogger(log *logger.Logger) DBOptions {
	return func(gormDB *gorm.DB) error {
		gormDB.Config.Logger = gormLogger.New(
			log.Log,
			gormLogger.Config{
				SlowThreshold:             200 * time.Millisecond,
				LogLevel:                  gormLogger.Warn,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		)
		return nil
	}
}
