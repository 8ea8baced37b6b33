package timer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriverFiresOnDeadline(t *testing.T) {
	var mu sync.Mutex
	var fired []Msg
	d := NewDriver("room-1", func(msg Msg) {
		mu.Lock()
		fired = append(fired, msg)
		mu.Unlock()
	}, nil)
	d.Run()
	defer d.Destroy()

	err := d.Reset(Msg{
		RoomID:   "room-1",
		PlayerID: "p1",
		Seq:      3,
		Tag:      "turn",
		ExpireAt: time.Now().Add(200 * time.Millisecond),
	})
	require.NoError(t, err)

	time.Sleep(600 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, len(fired))
	assert.Equal(t, "p1", fired[0].PlayerID)
	assert.Equal(t, uint32(3), fired[0].Seq)
	assert.Equal(t, "turn", fired[0].Tag)
}

func TestDriverCancelSuppressesFire(t *testing.T) {
	var mu sync.Mutex
	fired := 0
	d := NewDriver("room-1", func(msg Msg) {
		mu.Lock()
		fired++
		mu.Unlock()
	}, nil)
	d.Run()
	defer d.Destroy()

	err := d.Reset(Msg{
		RoomID:   "room-1",
		ExpireAt: time.Now().Add(300 * time.Millisecond),
	})
	require.NoError(t, err)
	d.Cancel()

	time.Sleep(600 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 0, fired)
}

func TestDriverResetReplacesDeadline(t *testing.T) {
	var mu sync.Mutex
	var fired []Msg
	d := NewDriver("room-1", func(msg Msg) {
		mu.Lock()
		fired = append(fired, msg)
		mu.Unlock()
	}, nil)
	d.Run()
	defer d.Destroy()

	require.NoError(t, d.Reset(Msg{RoomID: "room-1", Seq: 1, ExpireAt: time.Now().Add(5 * time.Second)}))
	require.NoError(t, d.Reset(Msg{RoomID: "room-1", Seq: 2, ExpireAt: time.Now().Add(200 * time.Millisecond)}))

	time.Sleep(600 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, len(fired))
	assert.Equal(t, uint32(2), fired[0].Seq)
}

func TestResetValidation(t *testing.T) {
	d := NewDriver("room-1", func(Msg) {}, nil)
	err := d.Reset(Msg{})
	assert.Error(t, err)
}
