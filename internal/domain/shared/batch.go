package shared

// ItemResult is the outcome of one item of a bulk operation
type ItemResult struct {
	Key     string `json:"key"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// BatchResult is returned by every bulk operation. Items are independent:
// one failure never aborts the rest of the batch.
type BatchResult struct {
	SuccessCount int          `json:"successCount"`
	FailCount    int          `json:"failCount"`
	Errors       []string     `json:"errors"`
	Results      []ItemResult `json:"results"`
}

// NewBatchResult creates an empty result with capacity for n items
func NewBatchResult(n int) *BatchResult {
	return &BatchResult{
		Errors:  make([]string, 0),
		Results: make([]ItemResult, 0, n),
	}
}

// AddSuccess records a successful item
func (r *BatchResult) AddSuccess(key, message string) {
	r.SuccessCount++
	r.Results = append(r.Results, ItemResult{Key: key, Success: true, Message: message})
}

// AddFailure records a failed item. The error is also listed as "key: reason".
func (r *BatchResult) AddFailure(key, reason string) {
	r.FailCount++
	r.Errors = append(r.Errors, key+": "+reason)
	r.Results = append(r.Results, ItemResult{Key: key, Success: false, Error: reason})
}

// Add records an item result, dispatching on its Success flag
func (r *BatchResult) Add(item ItemResult) {
	if item.Success {
		r.AddSuccess(item.Key, item.Message)
		return
	}
	r.AddFailure(item.Key, item.Error)
}

// Total returns the number of recorded items
func (r *BatchResult) Total() int {
	return r.SuccessCount + r.FailCount
}

// Failed returns the keys of failed items, in result order
func (r *BatchResult) Failed() []string {
	keys := make([]string, 0, r.FailCount)
	for _, item := range r.Results {
		if !item.Success {
			keys = append(keys, item.Key)
		}
	}
	return keys
}
