package controllers

import (
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/lintang-b-s/navigatorx-tunnel/pkg/datastructure"
	helper "github.com/lintang-b-s/navigatorx-tunnel/pkg/http/router/routerhelper"
	"go.uber.org/zap"
)

type sessionAPI struct {
	sessionService SessionService
	log            *zap.Logger
	clock          func() time.Time
}

func New(sessionService SessionService, log *zap.Logger) *sessionAPI {
	return &sessionAPI{
		sessionService: sessionService,
		log:            log,
		clock:          time.Now,
	}
}

func (api *sessionAPI) Routes(group *helper.RouteGroup) {
	group.POST("/sessions", api.createSession)
	group.GET("/sessions", api.listSessions)
	group.GET("/sessions/:id", api.getSession)
	group.DELETE("/sessions/:id", api.endSession)
	group.POST("/sessions/:id/fixes", api.pushFix)
	group.GET("/sessions/:id/transitions", api.transitions)
}

// createSession starts navigating the route in the request body.
func (api *sessionAPI) createSession(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var doc datastructure.RouteDocument
	if err := readJSON(w, r, &doc); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}

	st, err := api.sessionService.CreateSession(&doc)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	headers := make(http.Header)
	headers.Set("Location", "/api/sessions/"+st.ID)
	if err := writeJSON(w, http.StatusCreated, envelope{"data": NewSessionResponse(st)}, headers); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *sessionAPI) listSessions(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	sts := api.sessionService.ListSessions()
	if err := writeJSON(w, http.StatusOK, envelope{"data": NewSessionsResponse(sts)}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *sessionAPI) getSession(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	st, err := api.sessionService.GetSession(p.ByName("id"))
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, envelope{"data": NewSessionResponse(st)}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *sessionAPI) endSession(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	st, err := api.sessionService.EndSession(p.ByName("id"))
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, envelope{"data": NewSessionResponse(st)}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

// pushFix enqueues one device location fix. The fix is processed asynchronously, 202 is returned once queued.
func (api *sessionAPI) pushFix(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var request fixRequest
	if err := readJSON(w, r, &request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}
	if err := validateRequest(request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}

	id := p.ByName("id")
	if err := api.sessionService.PushFix(r.Context(), id, request.ToLocationFix(api.clock())); err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusAccepted, envelope{"data": map[string]string{"session_id": id}}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *sessionAPI) transitions(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	entries, err := api.sessionService.Transitions(r.Context(), p.ByName("id"))
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, envelope{"data": NewTransitionsResponse(entries)}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}
