package kafka_client

import "time"

const (
	KAFKA_TOPIC_ANALYSIS_REQUEST = "analysis-request" // raw user messages waiting to be routed
	KAFKA_TOPIC_ANALYSIS_RESULTS = "analysis-results" // routed responses, one event per request
)

const (
	MAX_RETRIES   = 5
	RETRY_DELAY   = 2 * time.Second
	POLL_INTERVAL = time.Second
)
