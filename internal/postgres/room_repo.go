package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/cwrk-planet/lobby-service/internal/domain"
	"github.com/cwrk-planet/lobby-service/internal/pagination"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RoomRepo struct {
	db *pgxpool.Pool
}

func NewRoomRepo(db *pgxpool.Pool) *RoomRepo {
	return &RoomRepo{db: db}
}

// participantRow - участник вместе с комнатой, для пакетной загрузки.
type participantRow struct {
	RoomID string `db:"room_id"`
	domain.Participant
}

// Create пишет комнату и её начальных участников одной транзакцией.
func (r *RoomRepo) Create(ctx context.Context, room *domain.Room) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, queryInsertRoom,
		room.ID,
		room.Code,
		room.Title,
		room.MaxParticipants,
		room.HostID,
		string(room.Status),
		nullIfEmpty(string(room.CompositionMethod)),
		room.CreatedAt,
	); err != nil {
		return mapPgError(err)
	}

	b := &pgx.Batch{}
	for _, p := range room.Participants {
		b.Queue(queryInsertParticipant, room.ID, p.UserID, p.Nickname, p.TeamNumber, p.JoinedAt)
	}
	if err := tx.SendBatch(ctx, b).Close(); err != nil {
		return mapPgError(err)
	}

	return tx.Commit(ctx)
}

func (r *RoomRepo) GetByCode(ctx context.Context, code string) (*domain.Room, error) {
	room, err := getRoom(ctx, r.db, queryGetRoomByCode, code)
	if err != nil {
		return nil, err
	}
	if err := loadChildren(ctx, r.db, room); err != nil {
		return nil, err
	}
	return room, nil
}

// List - новые сверху; курсор указывает на последнюю отданную комнату.
func (r *RoomRepo) List(ctx context.Context, limit int, cursorStr string) ([]domain.Room, string, error) {
	cur, err := pagination.Decode(cursorStr)
	if err != nil {
		return nil, "", err
	}

	var createdAt, id any
	if cur != nil {
		createdAt = cur.CreatedAt
		id = cur.ID
	}

	// на одну больше, чтобы понять, есть ли следующая страница
	rows, err := r.db.Query(ctx, queryListRooms, createdAt, id, limit+1)
	if err != nil {
		return nil, "", err
	}
	rooms, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[domain.Room])
	if err != nil {
		return nil, "", err
	}

	var next string
	if len(rooms) > limit {
		rooms = rooms[:limit]
		last := rooms[len(rooms)-1]
		next, _ = pagination.Encode(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	if err := loadChildren(ctx, r.db, rooms...); err != nil {
		return nil, "", err
	}

	out := make([]domain.Room, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, *room)
	}
	return out, next, nil
}

// Update блокирует строку комнаты (SELECT ... FOR UPDATE), применяет fn к
// копии и сохраняет статус и участников. Параллельные Update одной комнаты
// выполняются строго друг за другом.
func (r *RoomRepo) Update(ctx context.Context, code string, fn func(*domain.Room) error) (*domain.Room, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	room, err := getRoom(ctx, tx, queryLockRoomByCode, code)
	if err != nil {
		return nil, err
	}
	if err := loadChildren(ctx, tx, room); err != nil {
		return nil, err
	}

	draft := room.Clone()
	if err := fn(draft); err != nil {
		return nil, err
	}
	if len(draft.Participants) > draft.MaxParticipants {
		return nil, domain.ErrRoomFull
	}

	if _, err := tx.Exec(ctx, queryUpdateRoom,
		draft.ID,
		string(draft.Status),
		nullIfEmpty(string(draft.CompositionMethod)),
	); err != nil {
		return nil, mapPgError(err)
	}

	b := &pgx.Batch{}
	for _, p := range draft.Participants {
		b.Queue(queryUpsertParticipant, draft.ID, p.UserID, p.Nickname, p.TeamNumber, p.JoinedAt)
	}
	if err := tx.SendBatch(ctx, b).Close(); err != nil {
		return nil, mapPgError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return draft, nil
}

// AddMatch вставляет матч; (room_id, match_index) уникален.
func (r *RoomRepo) AddMatch(ctx context.Context, roomID string, m *domain.Match) error {
	var id string
	err := r.db.QueryRow(ctx, queryInsertMatch,
		m.ID,
		roomID,
		m.MatchIndex,
		m.TournamentCode,
		string(m.Status),
		m.CreatedAt,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrMatchExists
		}
		return mapPgError(err)
	}
	return nil
}

func getRoom(ctx context.Context, q querier, sql, code string) (*domain.Room, error) {
	rows, err := q.Query(ctx, sql, code)
	if err != nil {
		return nil, err
	}
	room, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[domain.Room])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, err
	}
	return room, nil
}

// loadChildren подгружает участников и матчи двумя запросами на все комнаты.
func loadChildren(ctx context.Context, q querier, rooms ...*domain.Room) error {
	if len(rooms) == 0 {
		return nil
	}
	ids := make([]string, 0, len(rooms))
	byID := make(map[string]*domain.Room, len(rooms))
	for _, room := range rooms {
		ids = append(ids, room.ID)
		byID[room.ID] = room
	}

	rows, err := q.Query(ctx, queryListParticipants, ids)
	if err != nil {
		return err
	}
	participants, err := pgx.CollectRows(rows, pgx.RowToStructByName[participantRow])
	if err != nil {
		return fmt.Errorf("load participants: %w", err)
	}
	for _, p := range participants {
		room := byID[p.RoomID]
		room.Participants = append(room.Participants, p.Participant)
	}

	rows, err = q.Query(ctx, queryListMatches, ids)
	if err != nil {
		return err
	}
	matches, err := pgx.CollectRows(rows, pgx.RowToStructByName[domain.Match])
	if err != nil {
		return fmt.Errorf("load matches: %w", err)
	}
	for _, m := range matches {
		room := byID[m.RoomID]
		room.Matches = append(room.Matches, m)
	}
	return nil
}
