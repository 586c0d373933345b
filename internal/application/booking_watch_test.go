package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Oleksandr1212/test-day-second/internal/application"
	"github.com/Oleksandr1212/test-day-second/internal/testfixtures"
)

func receiveSnapshot(t *testing.T, sub *application.BookingSubscription) []application.Booking {
	t.Helper()
	select {
	case snapshot, ok := <-sub.Snapshots():
		if !ok {
			t.Fatal("subscription closed unexpectedly")
		}
		return snapshot
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func TestWatchDeliversInitialAndMutationSnapshots(t *testing.T) {
	rooms := &stubRoomDirectory{rooms: map[string]application.Room{
		"room-1": testfixtures.NewRoom("room-1", "alice@example.com"),
	}}
	repo := newStubBookingRepository()
	watcher := application.NewBookingWatcher()
	defer watcher.Close()
	clock := testfixtures.NewClock(testfixtures.BaseTime)
	ids := testfixtures.NewIDGenerator("booking")
	svc := application.NewBookingService(repo, rooms, watcher, ids.Next, clock.Now)
	alice := application.Principal{Email: "alice@example.com"}

	sub, err := svc.Watch(context.Background(), alice, "room-1")
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer sub.Cancel()

	if snapshot := receiveSnapshot(t, sub); len(snapshot) != 0 {
		t.Fatalf("initial snapshot = %v, want empty", snapshot)
	}

	created, err := svc.CreateBooking(context.Background(), application.CreateBookingParams{
		Principal: alice,
		RoomID:    "room-1",
		Input:     application.BookingInput{Title: "Standup", Start: at(10, 0), End: at(11, 0)},
	})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}

	snapshot := receiveSnapshot(t, sub)
	if len(snapshot) != 1 || snapshot[0].ID != created.ID {
		t.Fatalf("snapshot after create = %v, want the new booking", snapshot)
	}

	if err := svc.DeleteBooking(context.Background(), alice, "room-1", created.ID); err != nil {
		t.Fatalf("DeleteBooking: %v", err)
	}
	if snapshot := receiveSnapshot(t, sub); len(snapshot) != 0 {
		t.Fatalf("snapshot after delete = %v, want empty", snapshot)
	}
}

func TestWatchEnforcesVisibility(t *testing.T) {
	rooms := &stubRoomDirectory{rooms: map[string]application.Room{
		"room-1": testfixtures.NewRoom("room-1", "alice@example.com"),
	}}
	watcher := application.NewBookingWatcher()
	defer watcher.Close()
	clock := testfixtures.NewClock(testfixtures.BaseTime)
	svc := application.NewBookingService(newStubBookingRepository(), rooms, watcher, nil, clock.Now)

	_, err := svc.Watch(context.Background(), application.Principal{Email: "mallory@example.com"}, "room-1")
	if !errors.Is(err, application.ErrForbidden) {
		t.Fatalf("non-member watching: got %v, want ErrForbidden", err)
	}
}

func TestWatcherCancelAndClose(t *testing.T) {
	watcher := application.NewBookingWatcher()

	sub := watcher.Subscribe("room-1")
	sub.Cancel()
	if _, ok := <-sub.Snapshots(); ok {
		t.Fatal("cancelled subscription channel still open")
	}
	// Cancel after detach is a no-op.
	sub.Cancel()

	other := watcher.Subscribe("room-1")
	watcher.Close()
	if _, ok := <-other.Snapshots(); ok {
		t.Fatal("subscription channel open after watcher close")
	}

	late := watcher.Subscribe("room-1")
	if _, ok := <-late.Snapshots(); ok {
		t.Fatal("subscription after close should observe closed stream")
	}
}

func TestWatcherDropsOldestWhenSubscriberLags(t *testing.T) {
	watcher := application.NewBookingWatcher()
	defer watcher.Close()

	sub := watcher.Subscribe("room-1")
	defer sub.Cancel()

	for i := 0; i < 10; i++ {
		watcher.Publish("room-1", []application.Booking{{ID: string(rune('a' + i))}})
	}

	var last []application.Booking
	for {
		select {
		case snapshot := <-sub.Snapshots():
			last = snapshot
			continue
		default:
		}
		break
	}
	if len(last) != 1 || last[0].ID != "j" {
		t.Fatalf("last buffered snapshot = %v, want the newest publish", last)
	}
}
