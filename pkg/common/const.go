package common

const (
	KEY_LAST_PRICE      = "last_price:%s"
	KEY_REDIS_NAMESPACE = "signalcrawler:"
)

const (
	KEY_LOG_HOOK_SEND_ALERT = "send_alert"
)
