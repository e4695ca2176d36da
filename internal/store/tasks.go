// ABOUTME: Task record type for the todo list collection

package store

// Task is a todo item. The id is numeric and assigned by the store on
// insert; migration coerces legacy malformed values back into this shape.
type Task struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
	Done bool   `json:"done"`
}
