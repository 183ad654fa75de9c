package notify

import (
	"strconv"
	"sync"
	"testing"
	"time"
)

func TestBus(t *testing.T) {
	t.Run("Ids Strictly Increase", func(t *testing.T) {
		bus := NewBus()
		var got []Notification
		bus.Subscribe(func(n Notification) { got = append(got, n) })

		bus.Success("saved")
		bus.Error("failed")
		bus.Warning("careful")
		bus.Info("fyi")

		if len(got) != 4 {
			t.Fatalf("expected 4 notifications, got %d", len(got))
		}
		kinds := []Kind{Success, Error, Warning, Info}
		for i, n := range got {
			if n.ID != strconv.Itoa(i) {
				t.Errorf("expected id %d, got %s", i, n.ID)
			}
			if n.Kind != kinds[i] {
				t.Errorf("expected kind %s, got %s", kinds[i], n.Kind)
			}
		}
	})

	t.Run("Concurrent Ids Are Unique", func(t *testing.T) {
		bus := NewBus()
		var mu sync.Mutex
		seen := map[string]bool{}
		bus.Subscribe(func(n Notification) {
			mu.Lock()
			seen[n.ID] = true
			mu.Unlock()
		})

		var wg sync.WaitGroup
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				bus.Info("x")
			}()
		}
		wg.Wait()

		if len(seen) != 50 {
			t.Errorf("expected 50 unique ids, got %d", len(seen))
		}
	})

	t.Run("Late Subscriber Sees Nothing Earlier", func(t *testing.T) {
		bus := NewBus()
		bus.Info("before")

		var got []Notification
		bus.Subscribe(func(n Notification) { got = append(got, n) })
		if len(got) != 0 {
			t.Errorf("expected no replay, got %v", got)
		}
	})

	t.Run("ClearAll Sentinel", func(t *testing.T) {
		bus := NewBus()
		var got Notification
		bus.Subscribe(func(n Notification) { got = n })

		bus.ClearAll()
		if !got.IsClearAll() || got.ID != ClearAllID {
			t.Errorf("expected clear-all, got %+v", got)
		}
	})

	t.Run("Cancel Stops Delivery", func(t *testing.T) {
		bus := NewBus()
		count := 0
		cancel := bus.Subscribe(func(Notification) { count++ })

		bus.Info("one")
		cancel()
		cancel()
		bus.Info("two")

		if count != 1 {
			t.Errorf("expected 1 delivery, got %d", count)
		}
	})
}

func TestTray(t *testing.T) {
	t.Run("Appends And Dismisses", func(t *testing.T) {
		bus := NewBus()
		tray := NewTray(bus, nil)
		defer tray.Close()

		a := bus.Success("a")
		bus.Error("b")
		tray.Dismiss(a.ID)
		tray.Dismiss("unknown")

		items := tray.Items()
		if len(items) != 1 || items[0].Message != "b" {
			t.Errorf("unexpected items %v", items)
		}
	})

	t.Run("Clear All Empties", func(t *testing.T) {
		bus := NewBus()
		tray := NewTray(bus, nil)
		defer tray.Close()

		bus.Info("a")
		bus.Show(Info, "b", time.Hour)
		bus.ClearAll()

		if len(tray.Items()) != 0 {
			t.Errorf("expected empty tray, got %v", tray.Items())
		}
	})

	t.Run("Auto Dismiss", func(t *testing.T) {
		bus := NewBus()
		done := make(chan struct{})
		var once sync.Once
		var mu sync.Mutex
		var peak int
		tray := NewTray(bus, func(items []Notification) {
			mu.Lock()
			defer mu.Unlock()
			if len(items) > peak {
				peak = len(items)
			}
			if peak == 2 && len(items) == 1 && items[0].Message == "sticky" {
				once.Do(func() { close(done) })
			}
		})
		defer tray.Close()

		bus.Info("sticky")
		bus.Show(Success, "fleeting", 10*time.Millisecond)

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("expected fleeting notification to be dismissed")
		}
		if items := tray.Items(); len(items) != 1 || items[0].Message != "sticky" {
			t.Errorf("unexpected items %v", items)
		}
	})

	t.Run("Concurrent Changes Deliver In Order", func(t *testing.T) {
		bus := NewBus()
		var mu sync.Mutex
		var inFlight, overlaps int
		var last []Notification
		tray := NewTray(bus, func(items []Notification) {
			mu.Lock()
			inFlight++
			if inFlight > 1 {
				overlaps++
			}
			mu.Unlock()

			time.Sleep(50 * time.Microsecond)

			mu.Lock()
			inFlight--
			last = items
			mu.Unlock()
		})
		defer tray.Close()

		var wg sync.WaitGroup
		for i := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := range 20 {
					n := bus.Info(strconv.Itoa(i) + "-" + strconv.Itoa(j))
					if j%2 == 0 {
						tray.Dismiss(n.ID)
					}
				}
			}()
		}
		wg.Wait()

		mu.Lock()
		defer mu.Unlock()
		if overlaps != 0 {
			t.Errorf("expected serialized delivery, saw %d overlapping calls", overlaps)
		}
		want := tray.Items()
		if len(last) != len(want) || len(want) != 80 {
			t.Fatalf("expected last delivery to match the tray (80 items), got %d vs %d", len(last), len(want))
		}
		for i := range want {
			if last[i].ID != want[i].ID {
				t.Errorf("item %d: expected %s, got %s", i, want[i].ID, last[i].ID)
			}
		}
	})

	t.Run("Close Unsubscribes", func(t *testing.T) {
		bus := NewBus()
		tray := NewTray(bus, nil)
		tray.Close()

		bus.Info("after")
		if len(tray.Items()) != 0 {
			t.Error("expected closed tray to ignore broadcasts")
		}
	})
}
