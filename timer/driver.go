package timer

import (
	"fmt"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

var driverLogger = log.With().Str("logger_name", "timer::driver").Logger()

// Msg describes one armed countdown. Seq is bumped by the room on every
// phase transition; a callback whose Seq no longer matches the room's
// current sequence is stale and must be dropped.
type Msg struct {
	RoomID   string
	PlayerID string
	Seq      uint32
	Tag      string
	ExpireAt time.Time
}

// Driver is the per-room countdown loop. It is the sole source of forced
// transitions: when the deadline passes, the callback delivers the armed
// Msg back into the room's message loop.
type Driver struct {
	roomID string

	chReset   chan Msg
	chCancel  chan bool
	chEndLoop chan bool

	callback        func(Msg)
	currentTimerMsg Msg

	secondsTillTimeout uint32
	lastResetAt        time.Time

	crashHandler func()
}

func NewDriver(roomID string, callback func(Msg), crashHandler func()) *Driver {
	d := Driver{
		roomID:       roomID,
		chReset:      make(chan Msg),
		chCancel:     make(chan bool),
		chEndLoop:    make(chan bool, 10),
		callback:     callback,
		crashHandler: crashHandler,
	}
	return &d
}

func (d *Driver) Run() {
	go d.loop()
}

func (d *Driver) Destroy() {
	d.chEndLoop <- true
}

func (d *Driver) loop() {
	defer func() {
		err := recover()
		if err != nil {
			// Panic occurred.
			debug.PrintStack()
			driverLogger.Error().
				Str("room", d.roomID).
				Msgf("Timer loop returning due to panic: %s\nStack Trace:\n%s", err, string(debug.Stack()))

			if d.crashHandler != nil {
				d.crashHandler()
			}
		} else {
			driverLogger.Info().Str("room", d.roomID).Msg("Timer loop returning")
		}
	}()

	var expirationTime time.Time
	paused := true
	for {
		select {
		case <-d.chEndLoop:
			return
		case <-d.chCancel:
			paused = true
			atomic.StoreUint32(&d.secondsTillTimeout, 0)
		case msg := <-d.chReset:
			// Start the new countdown.
			d.currentTimerMsg = msg
			expirationTime = msg.ExpireAt
			paused = false
		default:
			if !paused {
				remainingSec := expirationTime.Sub(time.Now()).Seconds()
				if remainingSec < 0 {
					remainingSec = 0
				}
				// track remaining time to show observers how long the
				// current player has to act
				atomic.StoreUint32(&d.secondsTillTimeout, uint32(remainingSec))

				if remainingSec <= 0 {
					// The player timed out.
					d.callback(d.currentTimerMsg)
					expirationTime = time.Time{}
					paused = true
				}
			}
			time.Sleep(100 * time.Millisecond)
		}
	}
}

// Cancel pauses the countdown without firing. Must be called (or a Reset
// issued) atomically with every phase transition so a stale deadline can
// never fire against a phase it no longer applies to.
func (d *Driver) Cancel() {
	d.chCancel <- true
}

func (d *Driver) Reset(t Msg) error {
	var errMsgs []string
	if t.RoomID == "" {
		errMsgs = append(errMsgs, "invalid roomID")
	}
	if time.Time.IsZero(t.ExpireAt) {
		errMsgs = append(errMsgs, "invalid expireAt")
	}
	if len(errMsgs) > 0 {
		return fmt.Errorf(strings.Join(errMsgs, "; "))
	}
	d.lastResetAt = time.Now()
	d.chReset <- t
	return nil
}

func (d *Driver) GetElapsedTime() time.Duration {
	return time.Now().Sub(d.lastResetAt)
}

func (d *Driver) GetRemainingSec() uint32 {
	return atomic.LoadUint32(&d.secondsTillTimeout)
}

func (d *Driver) GetCurrentTimerMsg() Msg {
	return d.currentTimerMsg
}
