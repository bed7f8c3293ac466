package postgres

const (
	queryInsertRoom = `
		INSERT INTO rooms (id, room_code, title, max_participants, host_id, status, team_composition_method, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`
	queryInsertParticipant = `
		INSERT INTO room_participants (room_id, user_id, nickname, team_number, joined_at)
		VALUES ($1, $2, $3, $4, $5);
	`
	queryUpsertParticipant = `
		INSERT INTO room_participants (room_id, user_id, nickname, team_number, joined_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (room_id, user_id) DO UPDATE
		SET team_number = EXCLUDED.team_number;
	`

	roomColumns = `
		id::text AS id, room_code, title, max_participants, host_id, status,
		COALESCE(team_composition_method, '') AS team_composition_method, created_at
	`
	queryGetRoomByCode = `SELECT ` + roomColumns + ` FROM rooms WHERE room_code = $1;`

	// строка комнаты блокируется до конца транзакции
	queryLockRoomByCode = `SELECT ` + roomColumns + ` FROM rooms WHERE room_code = $1 FOR UPDATE;`

	queryListRooms = `
		SELECT ` + roomColumns + `
		FROM rooms
		WHERE ($1::timestamptz IS NULL OR created_at < $1
		       OR (created_at = $1 AND id::text < $2))
		ORDER BY created_at DESC, id::text DESC
		LIMIT $3;
	`
	queryUpdateRoom = `
		UPDATE rooms
		SET status = $2, team_composition_method = $3
		WHERE id = $1;
	`

	queryListParticipants = `
		SELECT room_id::text AS room_id, user_id, nickname, team_number::int AS team_number, joined_at
		FROM room_participants
		WHERE room_id::text = ANY($1::text[])
		ORDER BY joined_at ASC, user_id ASC;
	`
	queryListMatches = `
		SELECT id::text AS id, room_id::text AS room_id, match_index, tournament_code, status, created_at
		FROM matches
		WHERE room_id::text = ANY($1::text[])
		ORDER BY match_index ASC;
	`
	queryInsertMatch = `
		INSERT INTO matches (id, room_id, match_index, tournament_code, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (room_id, match_index) DO NOTHING
		RETURNING id::text;
	`

	userColumns = `id, email, nickname`

	queryGetUserByID    = `SELECT ` + userColumns + ` FROM users WHERE id = $1;`
	queryGetUserByEmail = `SELECT ` + userColumns + ` FROM users WHERE email = $1;`
	queryUpsertUser     = `
		INSERT INTO users (email, nickname)
		VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE
		SET nickname = EXCLUDED.nickname
		RETURNING ` + userColumns + `;
	`

	queryInsertAudit = `
		INSERT INTO audit_logs (action, result, user_id, room_code, stage, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
)
