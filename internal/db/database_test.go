package db

import (
	"os"
	"path/filepath"
	"testing"
)

func setupTestDB(t *testing.T) (*Database, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "codesync-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	dbPath := filepath.Join(tmpDir, "test.db")
	db, err := New(dbPath)
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("Failed to create database: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.RemoveAll(tmpDir)
	}

	return db, cleanup
}

func TestCreateAndGetRoom(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	if err := db.CreateRoom("abc", "My Room"); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	room, err := db.GetRoom("abc")
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if room == nil {
		t.Fatal("Room should exist")
	}
	if room.ID != "abc" || room.Name != "My Room" {
		t.Errorf("Unexpected room: %+v", room)
	}

	// Idempotent under duplicate creation
	if err := db.CreateRoom("abc", "Other Name"); err != nil {
		t.Fatalf("Duplicate CreateRoom failed: %v", err)
	}
	room, _ = db.GetRoom("abc")
	if room.Name != "My Room" {
		t.Errorf("Duplicate create overwrote name: %q", room.Name)
	}
}

func TestGetRoomMissing(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	room, err := db.GetRoom("nope")
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if room != nil {
		t.Error("Missing room should return nil")
	}
}

func TestSaveAndGetRoomState(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	if err := db.SaveRoomState("abc", "print(1)", "python", "gil"); err != nil {
		t.Fatalf("SaveRoomState failed: %v", err)
	}

	state, err := db.GetRoomState("abc")
	if err != nil {
		t.Fatalf("GetRoomState failed: %v", err)
	}
	if state == nil {
		t.Fatal("State should exist")
	}
	if state.Code != "print(1)" || state.Language != "python" || state.Owner != "gil" {
		t.Errorf("Unexpected state: %+v", state)
	}

	// Save implicitly creates the room row
	room, _ := db.GetRoom("abc")
	if room == nil {
		t.Error("SaveRoomState should create the room row")
	}
}

func TestSaveRoomStateOverwrites(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	db.SaveRoomState("abc", "v1", "javascript", "ana")
	db.SaveRoomState("abc", "v2", "go", "ben")

	state, err := db.GetRoomState("abc")
	if err != nil {
		t.Fatalf("GetRoomState failed: %v", err)
	}
	if state.Code != "v2" || state.Language != "go" || state.Owner != "ben" {
		t.Errorf("Expected last write to win, got %+v", state)
	}
}

func TestGetRoomStateMissing(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	state, err := db.GetRoomState("nope")
	if err != nil {
		t.Fatalf("GetRoomState failed: %v", err)
	}
	if state != nil {
		t.Error("Missing state should return nil")
	}
}

func TestListRooms(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	db.CreateRoom("a", "")
	db.CreateRoom("b", "")
	db.CreateRoom("c", "")

	rooms, err := db.ListRooms(10, 0)
	if err != nil {
		t.Fatalf("ListRooms failed: %v", err)
	}
	if len(rooms) != 3 {
		t.Errorf("Expected 3 rooms, got %d", len(rooms))
	}

	rooms, _ = db.ListRooms(2, 0)
	if len(rooms) != 2 {
		t.Errorf("Limit not applied, got %d rooms", len(rooms))
	}
}

func TestDeleteRoom(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	db.SaveRoomState("abc", "print(1)", "python", "")
	if err := db.DeleteRoom("abc"); err != nil {
		t.Fatalf("DeleteRoom failed: %v", err)
	}

	room, _ := db.GetRoom("abc")
	if room != nil {
		t.Error("Room should be gone")
	}

	state, _ := db.GetRoomState("abc")
	if state != nil {
		t.Error("Snapshot should be gone with the room")
	}

	// No-op on a room that never existed
	if err := db.DeleteRoom("nope"); err != nil {
		t.Errorf("Delete of missing room failed: %v", err)
	}
}

func TestGetStats(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	db.CreateRoom("a", "")
	db.SaveRoomState("b", "code", "go", "")

	stats, err := db.GetStats()
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats["room_count"] != 2 {
		t.Errorf("Expected room_count 2, got %v", stats["room_count"])
	}
	if stats["state_count"] != 1 {
		t.Errorf("Expected state_count 1, got %v", stats["state_count"])
	}
}
