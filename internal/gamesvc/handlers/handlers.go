package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/avvvet/strategists-services/internal/gamesvc/errs"
	"github.com/avvvet/strategists-services/internal/gamesvc/service"
	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	tokenAuth *jwtauth.JWTAuth
	games     *service.GameService
	port      string
}

func NewHandler(games *service.GameService, port string) *Handler {
	return &Handler{games: games, port: port}
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error"`
}

type playerRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type investRequest struct {
	LandId    int64   `json:"land_id"`
	Ownership float64 `json:"ownership"`
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)

	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) respond(w http.ResponseWriter, message string, data interface{}, err error) {
	if err != nil {
		code := errs.Status(err)
		if code == http.StatusInternalServerError {
			log.Errorf("%s: %s", message, err)
		}
		h.CreateResponse(w, Response{Message: message, Code: code, Error: err.Error()})
		return
	}
	h.CreateResponse(w, Response{Message: message, Code: http.StatusOK, Data: data})
}

func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errs.Validation("malformed request body")
	}
	return nil
}

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, errs.Validation("invalid %s", name)
	}
	return id, nil
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.CreateResponse(w, Response{
		Message: "game service is running at port " + h.port,
		Code:    http.StatusOK,
	})
}

func (h *Handler) CreateGame(w http.ResponseWriter, r *http.Request) {
	req := playerRequest{}
	if err := decode(r, &req); err != nil {
		h.respond(w, "create game", nil, err)
		return
	}
	game, host, err := h.games.CreateGame(r.Context(), req.Email, req.Name)
	if err != nil {
		h.respond(w, "create game", nil, err)
		return
	}
	h.respond(w, "game created", map[string]interface{}{"game": game, "player": host}, nil)
}

func (h *Handler) GetGame(w http.ResponseWriter, r *http.Request) {
	snap, err := h.games.GetGame(r.Context(), chi.URLParam(r, "code"))
	h.respond(w, "game", snap, err)
}

func (h *Handler) JoinGame(w http.ResponseWriter, r *http.Request) {
	req := playerRequest{}
	if err := decode(r, &req); err != nil {
		h.respond(w, "join game", nil, err)
		return
	}
	player, err := h.games.JoinGame(r.Context(), chi.URLParam(r, "code"), req.Email, req.Name)
	h.respond(w, "player joined", player, err)
}

func (h *Handler) KickPlayer(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "playerId")
	if err == nil {
		err = h.games.KickPlayer(r.Context(), chi.URLParam(r, "code"), id)
	}
	h.respond(w, "player kicked", nil, err)
}

func (h *Handler) StartGame(w http.ResponseWriter, r *http.Request) {
	game, err := h.games.StartGame(r.Context(), chi.URLParam(r, "code"))
	h.respond(w, "game started", game, err)
}

func (h *Handler) PlayTurn(w http.ResponseWriter, r *http.Request) {
	winner, err := h.games.PlayTurn(r.Context(), chi.URLParam(r, "code"))
	h.respond(w, "turn played", map[string]interface{}{"winner": winner}, err)
}

func (h *Handler) SkipTurn(w http.ResponseWriter, r *http.Request) {
	winner, err := h.games.SkipTurn(r.Context(), chi.URLParam(r, "code"))
	h.respond(w, "turn skipped", map[string]interface{}{"winner": winner}, err)
}

func (h *Handler) ResetGame(w http.ResponseWriter, r *http.Request) {
	snap, err := h.games.ResetGame(r.Context(), chi.URLParam(r, "code"))
	h.respond(w, "game reset", snap, err)
}

func (h *Handler) DeleteGame(w http.ResponseWriter, r *http.Request) {
	err := h.games.DeleteGame(r.Context(), chi.URLParam(r, "code"))
	h.respond(w, "game deleted", nil, err)
}

func (h *Handler) Invest(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "playerId")
	if err != nil {
		h.respond(w, "invest", nil, err)
		return
	}
	req := investRequest{}
	if err := decode(r, &req); err != nil {
		h.respond(w, "invest", nil, err)
		return
	}
	stake, err := h.games.Invest(r.Context(), id, req.LandId, req.Ownership)
	h.respond(w, "invested", stake, err)
}

func (h *Handler) FindPlayer(w http.ResponseWriter, r *http.Request) {
	player, err := h.games.FindPlayer(r.Context(), r.URL.Query().Get("email"))
	h.respond(w, "player", player, err)
}

func (h *Handler) AdvicesViewed(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "playerId")
	if err != nil {
		h.respond(w, "advices", nil, err)
		return
	}
	advices, err := h.games.MarkAdvicesViewed(r.Context(), id)
	h.respond(w, "advices viewed", advices, err)
}
