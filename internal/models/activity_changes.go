package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// ActivityChanges is the typed diff payload stored with an ActivityLog. The
// concrete variant is selected by the log's action.
type ActivityChanges interface {
	Action() ActivityAction
}

// CreatedChanges carries the fields submitted when the task was created.
type CreatedChanges struct {
	Title       string        `json:"title"`
	ProjectID   uint64        `json:"projectId"`
	Description *string       `json:"description,omitempty"`
	Priority    *TaskPriority `json:"priority,omitempty"`
	DueDate     *time.Time    `json:"dueDate,omitempty"`
	AssignedTo  *uint64       `json:"assignedTo,omitempty"`
}

func (CreatedChanges) Action() ActivityAction { return ActivityCreated }

// FieldChange holds the JSON encoded old and new value of one field.
type FieldChange struct {
	From json.RawMessage `json:"from"`
	To   json.RawMessage `json:"to"`
}

func NewFieldChange(from, to any) (FieldChange, error) {
	fromJSON, err := json.Marshal(from)
	if err != nil {
		return FieldChange{}, fmt.Errorf("encode from value: %w", err)
	}
	toJSON, err := json.Marshal(to)
	if err != nil {
		return FieldChange{}, fmt.Errorf("encode to value: %w", err)
	}
	return FieldChange{From: fromJSON, To: toJSON}, nil
}

// Changed reports whether the encoded values differ.
func (f FieldChange) Changed() bool {
	return string(f.From) != string(f.To)
}

// UpdatedChanges maps a field name to its old and new value.
type UpdatedChanges map[string]FieldChange

func (UpdatedChanges) Action() ActivityAction { return ActivityUpdated }

type Transition[T any] struct {
	From T `json:"from"`
	To   T `json:"to"`
}

type StatusChangedChanges struct {
	Status  Transition[TaskStatus] `json:"status"`
	Version Transition[uint64]     `json:"version"`
}

func (StatusChangedChanges) Action() ActivityAction { return ActivityStatusChanged }

type DeletedChanges struct {
	Title string `json:"title"`
}

func (DeletedChanges) Action() ActivityAction { return ActivityDeleted }

func EncodeChanges(changes ActivityChanges) (datatypes.JSON, error) {
	data, err := json.Marshal(changes)
	if err != nil {
		return nil, fmt.Errorf("encode %s changes: %w", changes.Action(), err)
	}
	return datatypes.JSON(data), nil
}

// DecodeChanges rebuilds the typed variant stored for action.
func DecodeChanges(action ActivityAction, raw datatypes.JSON) (ActivityChanges, error) {
	var (
		changes ActivityChanges
		err     error
	)

	switch action {
	case ActivityCreated:
		var c CreatedChanges
		err = json.Unmarshal(raw, &c)
		changes = c
	case ActivityUpdated:
		c := UpdatedChanges{}
		err = json.Unmarshal(raw, &c)
		changes = c
	case ActivityStatusChanged:
		var c StatusChangedChanges
		err = json.Unmarshal(raw, &c)
		changes = c
	case ActivityDeleted:
		var c DeletedChanges
		err = json.Unmarshal(raw, &c)
		changes = c
	default:
		return nil, fmt.Errorf("unknown activity action %q", action)
	}

	if err != nil {
		return nil, fmt.Errorf("decode %s changes: %w", action, err)
	}
	return changes, nil
}
