package catalog

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libracirc/internal/circulation"
)

func TestMemoryDirectory_ServiceScenario(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDirectory()
	svc := circulation.NewService(d, allowAll{}, nopNotifier{})

	require.NoError(t, svc.AddBook(ctx, "A", 1))
	require.NoError(t, svc.AddBook(ctx, "B", 1))
	require.NoError(t, svc.AddBook(ctx, "C", 3))

	ok, err := svc.BorrowBook(ctx, 1, "A")
	require.NoError(t, err)
	require.True(t, ok)

	available, err := svc.GetAvailableBooks(ctx)
	require.NoError(t, err)
	require.Len(t, available, 2)
	assert.Equal(t, "B", available[0].Title)
	assert.Equal(t, "C", available[1].Title)
}

func TestMemoryDirectory_ConcurrentBorrowsNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDirectory()
	svc := circulation.NewService(d, allowAll{}, nopNotifier{})
	require.NoError(t, svc.AddBook(ctx, "Dune", 1))

	var wg sync.WaitGroup
	var borrowed atomic.Int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(member int64) {
			defer wg.Done()
			ok, err := svc.BorrowBook(ctx, member, "Dune")
			if err == nil && ok {
				borrowed.Add(1)
			}
		}(int64(i))
	}
	wg.Wait()

	assert.Equal(t, int32(1), borrowed.Load())
	book, _, err := d.Find(ctx, "Dune")
	require.NoError(t, err)
	assert.Equal(t, 0, book.Copies)
}
