package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestFakeNowStandsStill(t *testing.T) {
	c := Fake(epoch)
	require.Equal(t, epoch, c.Now())
	c.Advance(5 * time.Second)
	require.Equal(t, epoch.Add(5*time.Second), c.Now())
}

func TestFakeAfterFiresOnlyAtDeadline(t *testing.T) {
	c := Fake(epoch)
	ch := c.After(2 * time.Second)

	c.Advance(1999 * time.Millisecond)
	select {
	case <-ch:
		t.Fatal("fired before deadline")
	default:
	}
	require.Equal(t, 1, c.PendingCount())

	c.Advance(time.Millisecond)
	select {
	case got := <-ch:
		require.Equal(t, epoch.Add(2*time.Second), got)
	default:
		t.Fatal("did not fire at deadline")
	}
	require.Zero(t, c.PendingCount())
}

func TestFakeAfterNonPositiveFiresImmediately(t *testing.T) {
	c := Fake(epoch)
	select {
	case <-c.After(0):
	default:
		t.Fatal("zero duration should fire immediately")
	}
	require.Zero(t, c.PendingCount())
}

func TestFakeWaitForTimers(t *testing.T) {
	c := Fake(epoch)
	done := make(chan struct{})
	go func() {
		<-c.After(time.Minute)
		close(done)
	}()
	c.WaitForTimers(1)
	c.Advance(time.Minute)
	<-done
}

func TestRealImplementsClock(t *testing.T) {
	var _ Clock = Real()
	var _ Clock = Fake(epoch)
}
