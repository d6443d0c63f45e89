package list

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/heartmarshall/shoplist-sync/internal/domain"
)

var _ recordStore = &recordStoreMock{}

type recordStoreMock struct {
	AddFunc    func(ctx context.Context, item domain.Item) (uuid.UUID, error)
	UpdateFunc func(ctx context.Context, id uuid.UUID, patch domain.ItemPatch) error
	DeleteFunc func(ctx context.Context, id uuid.UUID) error

	calls struct {
		Add []struct {
			Ctx  context.Context
			Item domain.Item
		}
		Update []struct {
			Ctx   context.Context
			ID    uuid.UUID
			Patch domain.ItemPatch
		}
		Delete []struct {
			Ctx context.Context
			ID  uuid.UUID
		}
	}
	lockAdd    sync.RWMutex
	lockUpdate sync.RWMutex
	lockDelete sync.RWMutex
}

func (mock *recordStoreMock) Add(ctx context.Context, item domain.Item) (uuid.UUID, error) {
	if mock.AddFunc == nil {
		panic("recordStoreMock.AddFunc: method is nil but recordStore.Add was just called")
	}
	callInfo := struct {
		Ctx  context.Context
		Item domain.Item
	}{Ctx: ctx, Item: item}
	mock.lockAdd.Lock()
	mock.calls.Add = append(mock.calls.Add, callInfo)
	mock.lockAdd.Unlock()
	return mock.AddFunc(ctx, item)
}

func (mock *recordStoreMock) AddCalls() []struct {
	Ctx  context.Context
	Item domain.Item
} {
	mock.lockAdd.RLock()
	calls := mock.calls.Add
	mock.lockAdd.RUnlock()
	return calls
}

func (mock *recordStoreMock) Update(ctx context.Context, id uuid.UUID, patch domain.ItemPatch) error {
	if mock.UpdateFunc == nil {
		panic("recordStoreMock.UpdateFunc: method is nil but recordStore.Update was just called")
	}
	callInfo := struct {
		Ctx   context.Context
		ID    uuid.UUID
		Patch domain.ItemPatch
	}{Ctx: ctx, ID: id, Patch: patch}
	mock.lockUpdate.Lock()
	mock.calls.Update = append(mock.calls.Update, callInfo)
	mock.lockUpdate.Unlock()
	return mock.UpdateFunc(ctx, id, patch)
}

func (mock *recordStoreMock) UpdateCalls() []struct {
	Ctx   context.Context
	ID    uuid.UUID
	Patch domain.ItemPatch
} {
	mock.lockUpdate.RLock()
	calls := mock.calls.Update
	mock.lockUpdate.RUnlock()
	return calls
}

func (mock *recordStoreMock) Delete(ctx context.Context, id uuid.UUID) error {
	if mock.DeleteFunc == nil {
		panic("recordStoreMock.DeleteFunc: method is nil but recordStore.Delete was just called")
	}
	callInfo := struct {
		Ctx context.Context
		ID  uuid.UUID
	}{Ctx: ctx, ID: id}
	mock.lockDelete.Lock()
	mock.calls.Delete = append(mock.calls.Delete, callInfo)
	mock.lockDelete.Unlock()
	return mock.DeleteFunc(ctx, id)
}

func (mock *recordStoreMock) DeleteCalls() []struct {
	Ctx context.Context
	ID  uuid.UUID
} {
	mock.lockDelete.RLock()
	calls := mock.calls.Delete
	mock.lockDelete.RUnlock()
	return calls
}
