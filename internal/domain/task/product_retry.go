package task

type ProductRetryTask struct {
	ProductURL        string `json:"product_url"`         // Offer page that failed
	CategoryNaturalID string `json:"category_natural_id"` // Leaf category the offer was listed under
	RetryCount        int    `json:"retry_count"`         // Number of times this offer has been retried
	Error             string `json:"error"`               // Error message from the last failure
}

func (t *ProductRetryTask) TaskType() string {
	return TypeProductRetry
}

func (t *ProductRetryTask) TaskValue() ([]byte, error) {
	return DefaultTaskValue(t)
}
