package app

import (
	"time"

	"github.com/yungbote/docreview-backend/internal/logger"
	"github.com/yungbote/docreview-backend/internal/utils"
)

type Config struct {
	JWTSecretKey    string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	ExtractionWorkers int
	QueueSize         int
	DocCacheTTL       time.Duration

	BufferSweepInterval time.Duration
	BufferMaxAge        time.Duration
}

func LoadConfig(log *logger.Logger) Config {
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTLSeconds := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	refreshTokenTTLSeconds := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)

	extractionWorkers := utils.GetEnvAsInt("EXTRACTION_WORKERS", 5, log)
	queueSize := utils.GetEnvAsInt("EXTRACTION_QUEUE_SIZE", 1024, log)
	docCacheTTLSeconds := utils.GetEnvAsInt("DOC_CACHE_TTL", 3600, log)

	sweepIntervalSeconds := utils.GetEnvAsInt("BUFFER_SWEEP_INTERVAL", 3600, log)
	bufferMaxAgeSeconds := utils.GetEnvAsInt("BUFFER_MAX_AGE", 7200, log)

	return Config{
		JWTSecretKey:        jwtSecretKey,
		AccessTokenTTL:      time.Duration(accessTokenTTLSeconds) * time.Second,
		RefreshTokenTTL:     time.Duration(refreshTokenTTLSeconds) * time.Second,
		ExtractionWorkers:   extractionWorkers,
		QueueSize:           queueSize,
		DocCacheTTL:         time.Duration(docCacheTTLSeconds) * time.Second,
		BufferSweepInterval: time.Duration(sweepIntervalSeconds) * time.Second,
		BufferMaxAge:        time.Duration(bufferMaxAgeSeconds) * time.Second,
	}
}
