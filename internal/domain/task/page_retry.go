package task

type PageRetryTask struct {
	CategoryNaturalID string `json:"category_natural_id"`
	CategoryURL       string `json:"category_url"`
	PageNumber        int    `json:"page_number"` // Listing page that failed
	RetryCount        int    `json:"retry_count"`
	Error             string `json:"error"` // Error message from the last failure
}

func (t *PageRetryTask) TaskType() string {
	return TypePageRetry
}

func (t *PageRetryTask) TaskValue() ([]byte, error) {
	return DefaultTaskValue(t)
}
