package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/cwrk-planet/lobby-service/internal/domain"
	"github.com/cwrk-planet/lobby-service/internal/service"
	httpmw "github.com/cwrk-planet/lobby-service/internal/transport/http/middleware"
	"github.com/cwrk-planet/lobby-service/pkg/errs"
	"github.com/cwrk-planet/lobby-service/pkg/httputil"

	"github.com/go-chi/chi/v5"
)

type Lobby interface {
	CreateRoom(ctx context.Context, title string, maxParticipants int, hostIdentity string) (*domain.Room, error)
	GetRoom(ctx context.Context, code string) (*domain.Room, error)
	ListRooms(ctx context.Context, limit int, cursor string) ([]domain.Room, string, error)
	JoinRoom(ctx context.Context, code, identity string) (*domain.Room, error)
	StartTeamComposition(ctx context.Context, code string, method domain.CompositionMethod, identity string) (*domain.Room, error)
	StartMatches(ctx context.Context, code, identity string) (*service.MatchRun, error)
}

type Handler struct {
	lobby Lobby
}

func NewHandler(lobby Lobby) *Handler {
	return &Handler{lobby: lobby}
}

// POST /rooms
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(r.Context(), w, http.StatusBadRequest, "invalid JSON", nil)
		return
	}

	room, err := h.lobby.CreateRoom(r.Context(), req.Title, req.MaxParticipants, httpmw.IdentityFromCtx(r.Context()))
	if err != nil {
		fail(r.Context(), w, err)
		return
	}
	httputil.Created(w, domain.NewRoomView(room))
}

// GET /rooms?limit=&cursor=
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			httputil.Error(r.Context(), w, http.StatusBadRequest, "limit must be a number", nil)
			return
		}
		limit = n
	}

	rooms, next, err := h.lobby.ListRooms(r.Context(), limit, r.URL.Query().Get("cursor"))
	if err != nil {
		fail(r.Context(), w, err)
		return
	}

	resp := RoomsListResponse{Items: make([]domain.RoomView, 0, len(rooms)), NextCursor: next}
	for i := range rooms {
		resp.Items = append(resp.Items, domain.NewRoomView(&rooms[i]))
	}
	httputil.OK(w, resp)
}

// GET /rooms/{code}
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.lobby.GetRoom(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		fail(r.Context(), w, err)
		return
	}
	httputil.OK(w, domain.NewRoomView(room))
}

// POST /rooms/{code}/join
func (h *Handler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.lobby.JoinRoom(r.Context(), chi.URLParam(r, "code"), httpmw.IdentityFromCtx(r.Context()))
	if err != nil {
		fail(r.Context(), w, err)
		return
	}
	httputil.OK(w, domain.NewRoomView(room))
}

// POST /rooms/{code}/team-composition
func (h *Handler) StartTeamComposition(w http.ResponseWriter, r *http.Request) {
	var req StartCompositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(r.Context(), w, http.StatusBadRequest, "invalid JSON", nil)
		return
	}

	room, err := h.lobby.StartTeamComposition(r.Context(), chi.URLParam(r, "code"),
		domain.CompositionMethod(req.Method), httpmw.IdentityFromCtx(r.Context()))
	if err != nil {
		fail(r.Context(), w, err)
		return
	}
	httputil.OK(w, domain.NewRoomView(room))
}

// POST /rooms/{code}/matches?wait=true
// Без wait отвечает 202 сразу; с wait ждёт окончания провижининга.
func (h *Handler) StartMatches(w http.ResponseWriter, r *http.Request) {
	code := domain.NormalizeRoomCode(chi.URLParam(r, "code"))
	run, err := h.lobby.StartMatches(r.Context(), code, httpmw.IdentityFromCtx(r.Context()))
	if err != nil {
		fail(r.Context(), w, err)
		return
	}

	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); !wait {
		httputil.Accepted(w, MatchRunResponse{RoomCode: code, State: MatchRunProvisioning})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), service.WaitTimeout)
	defer cancel()
	room, err := run.Wait(ctx)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		// провижининг продолжается в фоне
		httputil.Accepted(w, MatchRunResponse{RoomCode: code, State: MatchRunProvisioning})
	case err != nil:
		fail(r.Context(), w, err)
	default:
		httputil.OK(w, domain.NewRoomView(room))
	}
}

// fail добавляет к ответу стадию провижининга, если она есть.
func fail(ctx context.Context, w http.ResponseWriter, err error) {
	stage := domain.StageOf(err)
	if stage == "" {
		httputil.Fail(ctx, w, err)
		return
	}
	httputil.Error(ctx, w, errs.ToHTTP(err), err.Error(), map[string]any{
		"code":  errs.Code(err),
		"stage": stage,
	})
}
