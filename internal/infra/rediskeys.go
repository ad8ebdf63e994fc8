package infra

const (
	// RedisNamespace prefixes every key and channel this project touches.
	RedisNamespace = "sortboard"
)

// Pub/Sub channels (events).
const (
	// RedisChanJobEvents carries canonical job-event JSON published by
	// upstream warehouse systems.
	RedisChanJobEvents = RedisNamespace + ":events:jobs"
)
