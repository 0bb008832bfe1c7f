package controllers

import (
	"time"

	"github.com/lintang-b-s/navigatorx-tunnel/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-tunnel/pkg/journal"
	"github.com/lintang-b-s/navigatorx-tunnel/pkg/navigation"
)

// fixRequest. missing or negative speed, course or horizontal_accuracy mean unknown. time defaults to the arrival time.
type fixRequest struct {
	Lat                float64   `json:"lat" validate:"min=-90,max=90"`
	Lon                float64   `json:"lon" validate:"min=-180,max=180"`
	Time               time.Time `json:"time"`
	Speed              *float64  `json:"speed" validate:"omitempty,max=150"`
	Course             *float64  `json:"course" validate:"omitempty,max=360"`
	HorizontalAccuracy *float64  `json:"horizontal_accuracy"`
}

func (req *fixRequest) ToLocationFix(now time.Time) *datastructure.LocationFix {
	t := req.Time
	if t.IsZero() {
		t = now
	}
	return datastructure.NewLocationFix(req.Lat, req.Lon, t, valueOrUnknown(req.Speed), valueOrUnknown(req.Course),
		valueOrUnknown(req.HorizontalAccuracy))
}

// valueOrUnknown. -1 marks a missing measurement, an absent accuracy must not read as a perfect one
func valueOrUnknown(v *float64) float64 {
	if v == nil {
		return -1
	}
	return *v
}

type locationResponse struct {
	Lat                float64   `json:"lat"`
	Lon                float64   `json:"lon"`
	Time               time.Time `json:"time"`
	Speed              float64   `json:"speed"`
	Course             float64   `json:"course"`
	HorizontalAccuracy float64   `json:"horizontal_accuracy"`
	Simulated          bool      `json:"simulated"`
}

func NewLocationResponse(fix *datastructure.LocationFix) *locationResponse {
	if fix == nil {
		return nil
	}
	return &locationResponse{
		Lat:                fix.Lat(),
		Lon:                fix.Lon(),
		Time:               fix.Time(),
		Speed:              fix.Speed(),
		Course:             fix.Course(),
		HorizontalAccuracy: fix.HorizontalAccuracy(),
		Simulated:          fix.IsSimulated(),
	}
}

type sessionResponse struct {
	ID                string            `json:"id"`
	State             string            `json:"state"`
	ActiveSource      string            `json:"active_source"`
	Location          *locationResponse `json:"location,omitempty"`
	Heading           float64           `json:"heading"`
	DistanceTraveled  float64           `json:"distance_traveled"`
	DistanceRemaining float64           `json:"distance_remaining"`
	OffRoute          bool              `json:"off_route"`
	FixesProcessed    int               `json:"fixes_processed"`
	Transitions       int               `json:"transitions"`
	StartedAt         time.Time         `json:"started_at"`
}

func NewSessionResponse(st navigation.Status) sessionResponse {
	return sessionResponse{
		ID:                st.ID,
		State:             st.State.String(),
		ActiveSource:      st.ActiveSource,
		Location:          NewLocationResponse(st.Location),
		Heading:           st.Heading,
		DistanceTraveled:  st.DistanceTraveled,
		DistanceRemaining: st.DistanceRemaining,
		OffRoute:          st.OffRoute,
		FixesProcessed:    st.FixesProcessed,
		Transitions:       st.Transitions,
		StartedAt:         st.StartedAt,
	}
}

func NewSessionsResponse(sts []navigation.Status) []sessionResponse {
	resp := make([]sessionResponse, 0, len(sts))
	for _, st := range sts {
		resp = append(resp, NewSessionResponse(st))
	}
	return resp
}

type transitionResponse struct {
	Kind               string    `json:"kind"`
	Source             string    `json:"source"`
	Lat                float64   `json:"lat"`
	Lon                float64   `json:"lon"`
	Speed              float64   `json:"speed"`
	HorizontalAccuracy float64   `json:"horizontal_accuracy"`
	Qualified          bool      `json:"qualified"`
	FixTime            time.Time `json:"fix_time"`
	RecordedAt         time.Time `json:"recorded_at,omitempty"`
}

func NewTransitionsResponse(entries []journal.Entry) []transitionResponse {
	resp := make([]transitionResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, transitionResponse{
			Kind:               e.Kind,
			Source:             e.Source,
			Lat:                e.Lat,
			Lon:                e.Lon,
			Speed:              e.Speed,
			HorizontalAccuracy: e.HorizontalAccuracy,
			Qualified:          e.Qualified,
			FixTime:            e.FixTime,
			RecordedAt:         e.RecordedAt,
		})
	}
	return resp
}

// eventResponse is one websocket frame sent to the client.
type eventResponse struct {
	Type              string              `json:"type"`
	SessionID         string              `json:"session_id"`
	State             string              `json:"state,omitempty"`
	Source            string              `json:"source,omitempty"`
	Location          *locationResponse   `json:"location,omitempty"`
	Heading           float64             `json:"heading"`
	DistanceTraveled  float64             `json:"distance_traveled"`
	DistanceRemaining float64             `json:"distance_remaining"`
	Transition        *transitionResponse `json:"transition,omitempty"`
}

func NewEventResponse(ev navigation.Event) eventResponse {
	resp := eventResponse{
		Type:              string(ev.Type),
		SessionID:         ev.SessionID,
		Source:            ev.Source,
		Location:          NewLocationResponse(ev.Location),
		Heading:           ev.Heading,
		DistanceTraveled:  ev.DistanceTraveled,
		DistanceRemaining: ev.DistanceRemaining,
	}
	if ev.Type != navigation.EventClosed {
		resp.State = ev.State.String()
	}
	if t := ev.Transition; t != nil && t.Fix != nil {
		tr := transitionResponse{
			Kind:               t.Kind.String(),
			Lat:                t.Fix.Lat(),
			Lon:                t.Fix.Lon(),
			Speed:              t.Fix.Speed(),
			HorizontalAccuracy: t.Fix.HorizontalAccuracy(),
			Qualified:          t.Fix.IsQualified(),
			FixTime:            t.Fix.Time(),
		}
		if t.Source != nil {
			tr.Source = t.Source.Name()
		}
		resp.Transition = &tr
	}
	return resp
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
