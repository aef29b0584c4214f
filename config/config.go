// crushnote/config/config.go
package config

const (
	AppVersion = "0.9.2"

	// Content limits
	MaxContentLen  = 500
	MaxNicknameLen = 32

	// Moderation
	ReportThreshold = 3 // community reports before automatic removal
	StrikeBanLimit  = 3 // strikes at which a profile counts as banned

	// External classifier
	DefaultClassifierURL     = "https://api.openai.com/v1/moderations"
	DefaultClassifierTimeout = "10s"
	ClassifierRetryBackoff   = "500ms"

	// Rate Limiting Defaults
	DefaultRateLimitEvery  = "5m"
	DefaultRateLimitBurst  = 3
	DefaultRateLimitPrune  = "1h"
	DefaultRateLimitExpire = "24h"

	// Feed paging
	FeedPageSize = 50
)
