package database

import (
	"database/sql"

	"github.com/zerochat/zerochat/internal/types"
)

func (db *PgChatRepository) CreateRoom(room types.Room) error {
	_, err := db.conn.Exec(
		"INSERT INTO rooms (id, name, passphrase_hash, created_by, created_at, storage_mode) "+
			"VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (id) DO NOTHING",
		room.Id,
		room.Name,
		room.PassphraseHash,
		room.CreatedBy,
		room.CreatedAt,
		room.StorageMode,
	)

	return err
}

func (db *PgChatRepository) GetRoom(roomId string) (types.Room, error) {
	row := db.conn.QueryRow(
		"SELECT id, name, passphrase_hash, created_by, created_at, storage_mode FROM rooms "+
			"WHERE id = $1 LIMIT 1",
		roomId,
	)

	var room types.Room
	err := row.Scan(
		&room.Id,
		&room.Name,
		&room.PassphraseHash,
		&room.CreatedBy,
		&room.CreatedAt,
		&room.StorageMode,
	)
	if err == sql.ErrNoRows {
		return types.Room{}, ErrNotFound
	}

	return room, err
}

func (db *PgChatRepository) UpdateRoomPassphrase(roomId, passphraseHash string) error {
	_, err := db.conn.Exec(
		"UPDATE rooms SET passphrase_hash = $2 WHERE id = $1",
		roomId,
		passphraseHash,
	)

	return err
}

func (db *PgChatRepository) CreateMessage(msg types.Message) error {
	_, err := db.conn.Exec(
		"INSERT INTO messages (id, room_id, user_id, username, content, timestamp, is_system, ttl_seconds, signature, public_key, verified) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)",
		msg.Id,
		msg.RoomId,
		msg.UserId,
		msg.Username,
		msg.Content,
		msg.Timestamp,
		msg.IsSystem,
		msg.TtlSeconds,
		msg.Signature,
		msg.PublicKey,
		msg.Verified,
	)

	return err
}

func (db *PgChatRepository) GetMessages(roomId string) ([]types.Message, error) {
	rows, err := db.conn.Query(
		"SELECT id, room_id, user_id, username, content, timestamp, is_system, ttl_seconds, signature, public_key, verified "+
			"FROM messages WHERE room_id = $1 ORDER BY seq",
		roomId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []types.Message
	for rows.Next() {
		var msg types.Message
		if err = rows.Scan(
			&msg.Id,
			&msg.RoomId,
			&msg.UserId,
			&msg.Username,
			&msg.Content,
			&msg.Timestamp,
			&msg.IsSystem,
			&msg.TtlSeconds,
			&msg.Signature,
			&msg.PublicKey,
			&msg.Verified,
		); err != nil {
			return nil, err
		}

		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

func (db *PgChatRepository) DeleteMessages(roomId string) error {
	_, err := db.conn.Exec("DELETE FROM messages WHERE room_id = $1", roomId)

	return err
}

func (db *PgChatRepository) CreateFileShare(fs types.FileShare) error {
	_, err := db.conn.Exec(
		"INSERT INTO file_shares (id, room_id, user_id, username, filename, encrypted_data, mime_type, file_size, timestamp, signature) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)",
		fs.Id,
		fs.RoomId,
		fs.UserId,
		fs.Username,
		fs.Filename,
		fs.EncryptedData,
		fs.MimeType,
		fs.FileSize,
		fs.Timestamp,
		fs.Signature,
	)

	return err
}

func (db *PgChatRepository) GetFileShares(roomId string) ([]types.FileShare, error) {
	rows, err := db.conn.Query(
		"SELECT id, room_id, user_id, username, filename, encrypted_data, mime_type, file_size, timestamp, signature "+
			"FROM file_shares WHERE room_id = $1 ORDER BY seq",
		roomId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shares []types.FileShare
	for rows.Next() {
		var fs types.FileShare
		if err = rows.Scan(
			&fs.Id,
			&fs.RoomId,
			&fs.UserId,
			&fs.Username,
			&fs.Filename,
			&fs.EncryptedData,
			&fs.MimeType,
			&fs.FileSize,
			&fs.Timestamp,
			&fs.Signature,
		); err != nil {
			return nil, err
		}

		shares = append(shares, fs)
	}

	return shares, rows.Err()
}
