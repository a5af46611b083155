package checklist

// Item is one entry of a task checklist.
type Item struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Done      bool   `json:"done"`
	SortOrder int    `json:"sort_order"`
	// Local marks an id generated on the client that the server has not replaced yet.
	Local bool `json:"local,omitempty"`
}
