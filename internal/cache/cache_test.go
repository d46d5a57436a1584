package cache

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/container"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/schema"
	"github.com/retroenv/retrogolib/assert"
)

func newContainer(b byte) *container.Container {
	return container.New(schema.Spells, 0x1D63, 0, []byte{b})
}

func TestGetOrLoad(t *testing.T) {
	c := New(2)
	key := Key{DataType: schema.Spells, Source: "a.nes"}

	loads := 0
	loader := func() (*container.Container, error) {
		loads++
		return newContainer(1), nil
	}

	first, err := c.GetOrLoad(key, loader)
	assert.NoError(t, err)
	second, err := c.GetOrLoad(key, loader)
	assert.NoError(t, err)
	assert.Equal(t, 1, loads)
	assert.True(t, first == second)
	assert.Equal(t, Stats{Hits: 1, Misses: 1}, c.Stats())

	errLoad := errors.New("load failed")
	_, err = c.GetOrLoad(Key{DataType: schema.Monsters, Source: "a.nes"}, func() (*container.Container, error) {
		return nil, errLoad
	})
	assert.True(t, errors.Is(err, errLoad))
	assert.Equal(t, 1, c.Len())
}

func TestEviction(t *testing.T) {
	c := New(2)
	a := Key{DataType: schema.Monsters, Source: "rom"}
	b := Key{DataType: schema.Spells, Source: "rom"}
	d := Key{DataType: schema.Equipment, Source: "rom"}

	c.Put(a, newContainer(1))
	c.Put(b, newContainer(2))
	_, ok := c.Get(a)
	assert.True(t, ok)

	c.Put(d, newContainer(3))
	assert.Equal(t, 2, c.Len())
	_, ok = c.Get(b)
	assert.False(t, ok)
	_, ok = c.Get(a)
	assert.True(t, ok)
	assert.Equal(t, 1, c.Stats().Evictions)

	c.Put(a, newContainer(9))
	cont, ok := c.Get(a)
	assert.True(t, ok)
	assert.Equal(t, byte(9), cont.Payload[0])
	assert.Equal(t, 2, c.Len())
}

func TestInvalidate(t *testing.T) {
	c := New(0)
	for _, dataType := range []schema.DataType{schema.Monsters, schema.Spells, schema.Equipment} {
		c.Put(Key{DataType: dataType, Source: "one.nes"}, newContainer(1))
	}
	c.Put(Key{DataType: schema.Monsters, Source: "two.nes"}, newContainer(2))

	assert.Equal(t, 3, c.Invalidate("one.nes"))
	assert.Equal(t, 0, c.Invalidate("one.nes"))
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get(Key{DataType: schema.Monsters, Source: "two.nes"})
	assert.True(t, ok)

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestConcurrentAccess(t *testing.T) {
	c := New(4)
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := Key{DataType: schema.DataType(i % 5), Source: "rom"}
			_, _ = c.GetOrLoad(key, func() (*container.Container, error) {
				return newContainer(byte(i)), nil
			})
			c.Invalidate("other")
		}()
	}
	wg.Wait()
	assert.True(t, c.Len() <= 4)
}

func TestGetOrLoadDoesNotBlockOtherKeys(t *testing.T) {
	c := New(4)
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		_, _ = c.GetOrLoad(Key{DataType: schema.Monsters, Source: "rom"}, func() (*container.Container, error) {
			close(started)
			<-release
			return newContainer(1), nil
		})
	}()
	<-started

	loaded := make(chan struct{})
	go func() {
		defer close(loaded)
		_, _ = c.GetOrLoad(Key{DataType: schema.Spells, Source: "rom"}, func() (*container.Container, error) {
			return newContainer(2), nil
		})
	}()

	select {
	case <-loaded:
	case <-time.After(5 * time.Second):
		t.Fatal("loading an unrelated key waited for a running loader")
	}
	close(release)
	<-done
	assert.Equal(t, 2, c.Len())
}

func TestGetOrLoadSkipsInvalidatedLoads(t *testing.T) {
	c := New(4)
	key := Key{DataType: schema.Spells, Source: "rom"}

	cont, err := c.GetOrLoad(key, func() (*container.Container, error) {
		c.Invalidate("rom")
		return newContainer(1), nil
	})
	assert.NoError(t, err)
	assert.Equal(t, byte(1), cont.Payload[0])
	assert.Equal(t, 0, c.Len())
}
