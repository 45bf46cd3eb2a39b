package kintoneclient

import (
	"context"
	"sync/atomic"
)

type ClientMock struct {
	CreateStub    func(ctx context.Context, appName string, records []Record) (*Response, error)
	CreateCalled  int32
	SearchStub    func(ctx context.Context, appName string, query string) (*Response, error)
	SearchCalled  int32
	UpdateStub    func(ctx context.Context, appName string, records []Record) (*Response, error)
	UpdateCalled  int32
	DestroyStub   func(ctx context.Context, appName string, recordIDs []int64) (*Response, error)
	DestroyCalled int32
	UploadStub    func(ctx context.Context, appName string, fileID string) (*Response, error)
	UploadCalled  int32
}

var _ Client = &ClientMock{}

func (m *ClientMock) Create(ctx context.Context, appName string, records []Record) (*Response, error) {
	atomic.AddInt32(&m.CreateCalled, 1)
	return m.CreateStub(ctx, appName, records)
}

func (m *ClientMock) Search(ctx context.Context, appName string, query string) (*Response, error) {
	atomic.AddInt32(&m.SearchCalled, 1)
	return m.SearchStub(ctx, appName, query)
}

func (m *ClientMock) Update(ctx context.Context, appName string, records []Record) (*Response, error) {
	atomic.AddInt32(&m.UpdateCalled, 1)
	return m.UpdateStub(ctx, appName, records)
}

func (m *ClientMock) Destroy(ctx context.Context, appName string, recordIDs []int64) (*Response, error) {
	atomic.AddInt32(&m.DestroyCalled, 1)
	return m.DestroyStub(ctx, appName, recordIDs)
}

func (m *ClientMock) Upload(ctx context.Context, appName string, fileID string) (*Response, error) {
	atomic.AddInt32(&m.UploadCalled, 1)
	return m.UploadStub(ctx, appName, fileID)
}

type FetcherMock struct {
	FetchStub   func(ctx context.Context, url string, opts RequestOptions) (*Response, error)
	FetchCalled int32
}

var _ Fetcher = &FetcherMock{}

func (m *FetcherMock) Fetch(ctx context.Context, url string, opts RequestOptions) (*Response, error) {
	atomic.AddInt32(&m.FetchCalled, 1)
	return m.FetchStub(ctx, url, opts)
}
