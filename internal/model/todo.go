package model

import "encoding/json"

// Todo is a task record as the remote store returns it.
// ID is assigned by the server and never changed by the client.
type Todo struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Completed   bool   `json:"completed"`
}

// UnmarshalJSON accepts the id under either "id" or "_id".
func (t *Todo) UnmarshalJSON(b []byte) error {
	type plain Todo
	var aux struct {
		plain
		AltID string `json:"_id"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*t = Todo(aux.plain)
	if t.ID == "" {
		t.ID = aux.AltID
	}
	return nil
}

// NewTodo is a creation payload. It always goes out with completed=false.
type NewTodo struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// MarshalJSON adds completed=false to the creation body.
func (n NewTodo) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Title       string `json:"title"`
		Description string `json:"description,omitempty"`
		Completed   bool   `json:"completed"`
	}{n.Title, n.Description, false})
}

// Patch is a partial update. Nil fields are left alone.
type Patch struct {
	Title       *string
	Description *string
	Completed   *bool
}

// SetCompleted returns a patch that only touches the completed flag.
func SetCompleted(done bool) Patch {
	return Patch{Completed: &done}
}

// Stats counts completed and pending items.
func Stats(items []Todo) (done, pending int) {
	for _, it := range items {
		if it.Completed {
			done++
		} else {
			pending++
		}
	}
	return
}
