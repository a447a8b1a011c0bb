package assist

// SuggestionRequest is the payload sent to the assist backend.
type SuggestionRequest struct {
	LocalTime     string   `json:"local_time"` // RFC 3339 in the user's zone
	PendingTitles []string `json:"pending_titles"`
	Categories    []string `json:"categories,omitempty"`
}

// Suggestion is one task suggestion returned by the backend.
type Suggestion struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Priority string `json:"priority"`
	Reason   string `json:"reason,omitempty"`
}

type suggestionResponse struct {
	Suggestions []Suggestion `json:"suggestions"`
}
