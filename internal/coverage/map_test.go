package coverage

import (
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMap_MergeAndGet(t *testing.T) {
	m := NewMap()

	t.Run("first merge inserts", func(t *testing.T) {
		r := NewRecord("a.go")
		r.AddLine(1, 1)
		m.Merge(r)
		got, ok := m.Get("a.go")
		assert.True(t, ok)
		assert.Equal(t, uint64(1), got.LineCount(1))
	})

	t.Run("second merge to the same path folds in place", func(t *testing.T) {
		r := NewRecord("a.go")
		r.AddLine(1, 4)
		m.Merge(r)
		got, _ := m.Get("a.go")
		assert.Equal(t, uint64(5), got.LineCount(1))
	})

	t.Run("merging nil is a no-op", func(t *testing.T) {
		before := m.Len()
		m.Merge(nil)
		assert.Equal(t, before, m.Len())
	})
}

func TestMap_DeleteAndRename(t *testing.T) {
	t.Run("Delete removes the entry", func(t *testing.T) {
		m := NewMap()
		r := NewRecord("a.go")
		m.Merge(r)
		m.Delete("a.go")
		_, ok := m.Get("a.go")
		assert.False(t, ok)
	})

	t.Run("Rename moves a record to a new key", func(t *testing.T) {
		m := NewMap()
		r := NewRecord("old.go")
		r.AddLine(1, 1)
		m.Merge(r)
		m.Rename("old.go", "new.go")
		_, ok := m.Get("old.go")
		assert.False(t, ok)
		got, ok := m.Get("new.go")
		assert.True(t, ok)
		assert.Equal(t, uint64(1), got.LineCount(1))
	})

	t.Run("Rename into an existing key merges rather than overwrites", func(t *testing.T) {
		m := NewMap()
		a := NewRecord("a.go")
		a.AddLine(1, 1)
		b := NewRecord("b.go")
		b.AddLine(1, 10)
		m.Merge(a)
		m.Merge(b)
		m.Rename("a.go", "b.go")
		got, ok := m.Get("b.go")
		assert.True(t, ok)
		assert.Equal(t, uint64(11), got.LineCount(1))
	})

	t.Run("Rename to the same key is a no-op", func(t *testing.T) {
		m := NewMap()
		r := NewRecord("a.go")
		m.Merge(r)
		m.Rename("a.go", "a.go")
		_, ok := m.Get("a.go")
		assert.True(t, ok)
	})
}

func TestMap_PathsAreSorted(t *testing.T) {
	m := NewMap()
	for _, p := range []string{"z.go", "a.go", "m.go"} {
		m.Merge(NewRecord(p))
	}
	assert.Equal(t, []string{"a.go", "m.go", "z.go"}, m.Paths())
}

func TestMap_Range(t *testing.T) {
	m := NewMap()
	m.Merge(NewRecord("a.go"))
	m.Merge(NewRecord("b.go"))
	seen := make(map[string]bool)
	m.Range(func(path string, rec *Record) { seen[path] = true })
	assert.Equal(t, map[string]bool{"a.go": true, "b.go": true}, seen)
}

func TestMap_ConcurrentMergeToDisjointPaths(t *testing.T) {
	m := NewMapWithShards(4)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := NewRecord("file" + strconv.Itoa(i) + ".go")
			r.AddLine(1, 1)
			m.Merge(r)
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, m.Len())
}
