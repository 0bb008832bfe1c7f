package usecases

import (
	"context"

	"github.com/lintang-b-s/navigatorx-tunnel/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-tunnel/pkg/journal"
	"github.com/lintang-b-s/navigatorx-tunnel/pkg/navigation"
)

type SessionManager interface {
	Create(route *datastructure.Route) (*navigation.Session, error)
	Get(id string) (*navigation.Session, error)
	End(id string) (navigation.Status, error)
	List() []navigation.Status
}

type TransitionStore interface {
	ListBySession(ctx context.Context, sessionID string) ([]journal.Entry, error)
}
