package controllers

import (
	"context"

	"github.com/lintang-b-s/navigatorx-tunnel/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-tunnel/pkg/journal"
	"github.com/lintang-b-s/navigatorx-tunnel/pkg/navigation"
)

type SessionService interface {
	CreateSession(doc *datastructure.RouteDocument) (navigation.Status, error)
	ListSessions() []navigation.Status
	GetSession(id string) (navigation.Status, error)
	PushFix(ctx context.Context, id string, fix *datastructure.LocationFix) error
	EndSession(id string) (navigation.Status, error)
	Transitions(ctx context.Context, id string) ([]journal.Entry, error)
	Subscribe(id string) (<-chan navigation.Event, func(), error)
}
