package db

import (
	"database/sql"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

type Database struct {
	db *sql.DB
}

type Room struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RoomState is the durable snapshot of a room's editor content. The
// live session never reads it; it exists so a room can be restored
// after every participant is gone.
type RoomState struct {
	RoomID    string    `json:"room_id"`
	Code      string    `json:"code"`
	Language  string    `json:"language"`
	Owner     string    `json:"owner"`
	UpdatedAt time.Time `json:"updated_at"`
}

func New(dbPath string) (*Database, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, err
	}

	if err := createTables(db); err != nil {
		return nil, err
	}

	log.Printf("Database initialized at %s", dbPath)
	return &Database{db: db}, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS rooms (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS room_states (
		room_id TEXT PRIMARY KEY,
		code TEXT NOT NULL DEFAULT '',
		language TEXT NOT NULL DEFAULT 'javascript',
		owner TEXT NOT NULL DEFAULT '',
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (room_id) REFERENCES rooms(id) ON DELETE CASCADE
	);
	`

	_, err := db.Exec(schema)
	return err
}

func (d *Database) Close() error {
	return d.db.Close()
}

// Room operations

func (d *Database) CreateRoom(id, name string) error {
	_, err := d.db.Exec(
		"INSERT OR IGNORE INTO rooms (id, name) VALUES (?, ?)",
		id, name,
	)
	return err
}

func (d *Database) GetRoom(id string) (*Room, error) {
	row := d.db.QueryRow(
		"SELECT id, name, created_at, updated_at FROM rooms WHERE id = ?",
		id,
	)

	var room Room
	err := row.Scan(&room.ID, &room.Name, &room.CreatedAt, &room.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (d *Database) ListRooms(limit, offset int) ([]Room, error) {
	rows, err := d.db.Query(
		"SELECT id, name, created_at, updated_at FROM rooms ORDER BY updated_at DESC LIMIT ? OFFSET ?",
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []Room
	for rows.Next() {
		var room Room
		if err := rows.Scan(&room.ID, &room.Name, &room.CreatedAt, &room.UpdatedAt); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

// DeleteRoom removes the room row and its snapshot. The state row is
// deleted explicitly; foreign-key enforcement is off by default in
// sqlite, so the CASCADE clause alone is not enough.
func (d *Database) DeleteRoom(id string) error {
	if _, err := d.db.Exec("DELETE FROM room_states WHERE room_id = ?", id); err != nil {
		return err
	}
	_, err := d.db.Exec("DELETE FROM rooms WHERE id = ?", id)
	return err
}

// Room state operations

// SaveRoomState upserts the snapshot for a room, creating the room row
// if it does not exist yet.
func (d *Database) SaveRoomState(roomID, code, language, owner string) error {
	if err := d.CreateRoom(roomID, ""); err != nil {
		return err
	}

	_, err := d.db.Exec(`
		INSERT INTO room_states (room_id, code, language, owner, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(room_id) DO UPDATE SET
			code = excluded.code,
			language = excluded.language,
			owner = excluded.owner,
			updated_at = CURRENT_TIMESTAMP
	`, roomID, code, language, owner)
	if err != nil {
		return err
	}

	_, err = d.db.Exec(
		"UPDATE rooms SET updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		roomID,
	)
	return err
}

// GetRoomState returns the stored snapshot, or nil if none was saved.
func (d *Database) GetRoomState(roomID string) (*RoomState, error) {
	row := d.db.QueryRow(
		"SELECT room_id, code, language, owner, updated_at FROM room_states WHERE room_id = ?",
		roomID,
	)

	var state RoomState
	err := row.Scan(&state.RoomID, &state.Code, &state.Language, &state.Owner, &state.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// Stats

func (d *Database) GetStats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var roomCount int
	if err := d.db.QueryRow("SELECT COUNT(*) FROM rooms").Scan(&roomCount); err != nil {
		return nil, err
	}
	stats["room_count"] = roomCount

	var stateCount int
	if err := d.db.QueryRow("SELECT COUNT(*) FROM room_states").Scan(&stateCount); err != nil {
		return nil, err
	}
	stats["state_count"] = stateCount

	return stats, nil
}
