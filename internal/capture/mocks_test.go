package capture

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// fakeSDK counts loads and instances; confirm behaviour is set per test.
type fakeSDK struct {
	loaded    atomic.Bool
	loads     atomic.Int32
	loadErr   error
	instances []*fakeInstance
	mu        sync.Mutex

	confirm func(clientSecret, token string) (string, error)
}

func (f *fakeSDK) Loaded() bool { return f.loaded.Load() }

func (f *fakeSDK) Load(context.Context) error {
	f.loads.Add(1)
	if f.loadErr != nil {
		return f.loadErr
	}
	f.loaded.Store(true)
	return nil
}

func (f *fakeSDK) NewInstance(publicKey string) (Instance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inst := &fakeInstance{publicKey: publicKey, sdk: f}
	f.instances = append(f.instances, inst)
	return inst, nil
}

type fakeInstance struct {
	publicKey string
	sdk       *fakeSDK
	destroyed bool
	calls     int
}

func (i *fakeInstance) Confirm(_ context.Context, clientSecret, token string, _ Billing) (string, error) {
	i.calls++
	if i.sdk.confirm == nil {
		return "", errors.New("no confirm behaviour")
	}
	return i.sdk.confirm(clientSecret, token)
}

func (i *fakeInstance) Destroy() { i.destroyed = true }
