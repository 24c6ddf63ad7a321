package ui

import (
	"context"

	"github.com/idilsaglam/todoclient/internal/model"
	"github.com/idilsaglam/todoclient/internal/mutation"
	"github.com/idilsaglam/todoclient/internal/query"
)

// TodosKey names the cached todo collection.
const TodosKey = "todos"

// User-facing messages, one per failure kind.
const (
	msgTitleRequired = "Title is required."
	msgCreated       = "Todo added successfully!"
	msgCreateFailed  = "Error adding todo. Please try again."
	msgUpdateFailed  = "Error updating todo. Please try again."
	msgDeleteFailed  = "Error deleting todo. Please try again."
	msgFetchFailed   = "Error fetching todos. Please try again later."
	msgLoading       = "Loading todos..."
	msgEmpty         = "No todos yet. Add one above!"
)

// Store is the remote store as the UI needs it.
type Store interface {
	List(ctx context.Context) ([]model.Todo, error)
	Create(ctx context.Context, n model.NewTodo) (model.Todo, error)
	Update(ctx context.Context, id string, p model.Patch) (model.Todo, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// Invalidator forces a refetch of a cached key.
type Invalidator interface {
	Invalidate(key string)
}

// TodoCache is the part of query.Cache the list reads from.
type TodoCache interface {
	Invalidator
	Subscribe(key string) (<-chan query.State[[]model.Todo], func())
}

type stateMsg struct {
	state query.State[[]model.Todo]
	ok    bool
}

type createSettledMsg struct {
	res mutation.Result[model.NewTodo, model.Todo]
}

type toggleSettledMsg struct {
	item *Item
	res  mutation.Result[bool, model.Todo]
}

type deleteSettledMsg struct {
	item *Item
	res  mutation.Result[string, bool]
}
