package model

// Item is the domain model for a todo entry.
// ID is assigned by whatever backend stored it; Complete is written false
// at creation and nothing in this app toggles it yet.
type Item struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Complete bool   `json:"complete"`
}

// Document field names an Item is stored under.
const (
	FieldTitle    = "title"
	FieldComplete = "complete"
)

// Fields returns the document body for a new item (the id is not part of it).
func (i Item) Fields() map[string]any {
	return map[string]any{
		FieldTitle:    i.Title,
		FieldComplete: i.Complete,
	}
}

// FromFields builds an Item from a stored document. Missing or mistyped
// fields decode to their zero value.
func FromFields(id string, fields map[string]any) Item {
	it := Item{ID: id}
	if s, ok := fields[FieldTitle].(string); ok {
		it.Title = s
	}
	if b, ok := fields[FieldComplete].(bool); ok {
		it.Complete = b
	}
	return it
}
