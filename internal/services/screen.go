package services

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/mailfold/mailfold/internal/engine"
	"github.com/mailfold/mailfold/internal/events"
	"github.com/mailfold/mailfold/internal/folders"
)

// StateStore persists the parts of the screen state that survive restarts:
// per-group expand state and cached account colors.
type StateStore interface {
	LoadExpanded(ctx context.Context) (map[int64]bool, error)
	SaveExpanded(ctx context.Context, accountID int64, expanded bool) error
	LoadAccountColors(ctx context.Context) (map[int64]string, error)
	SaveAccountColor(ctx context.Context, accountID int64, color string) error
}

// ScreenConfig wires one folder screen instance.
type ScreenConfig struct {
	Engine   engine.Engine
	Bus      *events.Bus
	Accounts []engine.Account
	Colors   map[int64]string // per-account colors from config

	Mode      folders.ViewMode
	AccountID int64               // scope for single-account mode
	Source    *folders.MoveSource // for move-target mode

	Store  StateStore // optional
	Logger *log.Logger

	// OnResult receives one result per completed mutation. Called from the
	// screen's event loop; must not block.
	OnResult func(MutationResult)

	// OnTreeChange receives tree change notifications for the presentation
	// layer. Called from whichever goroutine mutated the tree.
	OnTreeChange func(folders.Change)
}

// Screen is one folder-management screen instance: it owns the tree, the
// color registry, the mutation controller and the router, and runs the
// single event loop that drains the bus subscription. All shared state is
// serialized through the screen mutex; the components below it are
// lock-free.
type Screen struct {
	mu sync.Mutex

	engine   engine.Engine
	bus      *events.Bus
	sub      *events.Subscription
	store    StateStore
	logger   *log.Logger
	onResult func(MutationResult)

	tree    *folders.Tree
	colors  *folders.ColorRegistry
	builder *folders.ListBuilder
	svc     *FolderServiceImpl
	router  *NotificationRouter

	accounts     []engine.Account
	accountColor map[int64]string
	expanded     map[int64]bool
	mode         folders.ViewMode
	accountID    int64
	source       *folders.MoveSource

	runCtx context.Context
	done   chan struct{}
	closed bool
}

// NewScreen assembles a screen. Call Start to build the initial list and
// begin consuming bus events.
func NewScreen(cfg ScreenConfig) (*Screen, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("screen requires an engine")
	}
	if cfg.Bus == nil {
		return nil, fmt.Errorf("screen requires a notification bus")
	}

	s := &Screen{
		engine:       cfg.Engine,
		bus:          cfg.Bus,
		store:        cfg.Store,
		logger:       cfg.Logger,
		onResult:     cfg.OnResult,
		accounts:     cfg.Accounts,
		accountColor: cfg.Colors,
		expanded:     make(map[int64]bool),
		mode:         cfg.Mode,
		accountID:    cfg.AccountID,
		source:       cfg.Source,
		done:         make(chan struct{}),
	}

	s.tree = folders.NewTree()
	s.tree.SetOnChange(cfg.OnTreeChange)
	s.colors = folders.NewColorRegistry()
	s.builder = folders.NewListBuilder(cfg.Engine, s.colors)
	s.builder.SetLogger(cfg.Logger)

	s.svc = NewFolderService(cfg.Engine, s.tree)
	s.svc.SetLogger(cfg.Logger)
	s.svc.SetAccounts(cfg.Accounts)

	s.router = NewNotificationRouter(s.svc, s.tree, s.colors, s.viewContext, s.rebuildLocked, s.emitResult)
	s.router.SetLogger(cfg.Logger)
	s.router.SetAccounts(cfg.Accounts)

	return s, nil
}

func (s *Screen) logf(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}

// viewContext is the router's filter input. Router calls run under the
// screen mutex already.
func (s *Screen) viewContext() ViewContext {
	return ViewContext{Mode: s.mode, AccountID: s.accountID}
}

func (s *Screen) emitResult(res MutationResult) {
	if s.onResult != nil {
		s.onResult(res)
	}
}

func (s *Screen) view() folders.View {
	return folders.View{
		Mode:      s.mode,
		AccountID: s.accountID,
		Accounts:  s.accounts,
		Colors:    s.accountColor,
		Source:    s.source,
		Expanded:  s.expanded,
	}
}

// rebuildLocked rebuilds the tree for the current view. Callers hold the
// screen mutex.
func (s *Screen) rebuildLocked() {
	ctx := s.runCtx
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.builder.Build(ctx, s.tree, s.view()); err != nil {
		s.logf("list rebuild failed: %v", err)
	}
}

// Start restores persisted state, builds the initial list, subscribes to
// the bus and launches the event loop. The loop stops when ctx is done or
// the screen is closed.
func (s *Screen) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runCtx = ctx

	if s.store != nil {
		if expanded, err := s.store.LoadExpanded(ctx); err == nil {
			s.expanded = expanded
		} else {
			s.logf("could not restore expand state: %v", err)
		}
		if cached, err := s.store.LoadAccountColors(ctx); err == nil {
			for id, c := range cached {
				s.colors.Add(id, c)
			}
		} else {
			s.logf("could not restore account colors: %v", err)
		}
	}

	if err := s.builder.Build(ctx, s.tree, s.view()); err != nil {
		return fmt.Errorf("initial list build: %w", err)
	}

	s.sub = s.bus.Subscribe()

	go s.loop(ctx, s.sub)

	return nil
}

// loop is the screen's single event loop: bus events are processed strictly
// in delivery order, one at a time, interleaved with user requests through
// the screen mutex.
func (s *Screen) loop(ctx context.Context, sub *events.Subscription) {
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-sub.C():
			if !ok {
				return
			}
			s.mu.Lock()
			s.router.Route(evt)
			s.mu.Unlock()
		}
	}
}

// RequestCreate forwards to the mutation controller.
func (s *Screen) RequestCreate(ctx context.Context, req CreateFolderRequest) (engine.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.svc.RequestCreate(ctx, req)
}

// RequestDelete forwards to the mutation controller.
func (s *Screen) RequestDelete(ctx context.Context, req DeleteFolderRequest) (engine.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.svc.RequestDelete(ctx, req)
}

// RequestRename forwards to the mutation controller.
func (s *Screen) RequestRename(ctx context.Context, req RenameFolderRequest) (engine.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.svc.RequestRename(ctx, req)
}

// Cancel aborts the pending mutation, if any.
func (s *Screen) Cancel(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.svc.Cancel(ctx)
}

// InFlight reports the pending mutation kind, if any.
func (s *Screen) InFlight() (MutationKind, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.svc.InFlight()
}

// SetView switches the view mode and account scope and rebuilds the list.
func (s *Screen) SetView(mode folders.ViewMode, accountID int64, source *folders.MoveSource) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mode = mode
	s.accountID = accountID
	s.source = source
	s.rebuildLocked()
}

// ToggleExpanded flips an account group's expand state and persists it. The
// node's current state is authoritative; the map only feeds rebuilds.
func (s *Screen) ToggleExpanded(ctx context.Context, accountID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	expanded := s.expanded[accountID]
	s.tree.Walk(func(id folders.NodeID, _ int) bool {
		n := s.tree.Node(id)
		if (n.Kind == folders.KindAccountHeader || n.Kind == folders.KindGroupHeader) && n.AccountID == accountID {
			expanded = !n.Expanded
			n.Expanded = expanded
			return false
		}
		return true
	})
	s.expanded[accountID] = expanded

	if s.store != nil {
		if err := s.store.SaveExpanded(ctx, accountID, expanded); err != nil {
			s.logf("could not persist expand state: %v", err)
		}
	}

	return expanded
}

// Row is one flattened display row handed to the presentation layer.
type Row struct {
	ID    folders.NodeID
	Depth int
	Node  folders.FolderNode
	Color string
}

// Rows returns a consistent flattened snapshot of the current tree.
// Collapsed groups contribute only their header row.
func (s *Screen) Rows() []Row {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows []Row
	var skipBelow = -1

	s.tree.Walk(func(id folders.NodeID, depth int) bool {
		if skipBelow >= 0 && depth > skipBelow {
			return true
		}
		skipBelow = -1

		n := s.tree.Node(id)
		rows = append(rows, Row{ID: id, Depth: depth, Node: *n, Color: s.colors.Get(n.AccountID)})

		if (n.Kind == folders.KindAccountHeader || n.Kind == folders.KindGroupHeader) && !n.Expanded {
			skipBelow = depth
		}
		return true
	})

	return rows
}

// Close tears the screen down: the pending mutation (if any) is cancelled
// engine-side, the subscription is dropped and the color cache is persisted.
func (s *Screen) Close(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true

	s.svc.Cancel(ctx)

	if s.store != nil {
		for id, c := range s.colors.All() {
			if err := s.store.SaveAccountColor(ctx, id, c); err != nil {
				s.logf("could not persist account color: %v", err)
				break
			}
		}
	}

	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	if sub != nil {
		s.bus.Unsubscribe(sub)
		<-s.done
	}
}
