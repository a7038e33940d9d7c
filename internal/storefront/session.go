// Package storefront owns the state of one visitor's storefront: catalog
// status, cart, selected product and the rendered product grid. All state
// changes go through a Session and are announced to its subscribers.
package storefront

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"phone8/internal/cart"
	"phone8/internal/catalog"
	"phone8/internal/datagrid"
	"phone8/internal/models"
)

// Change tells subscribers which part of the state an update touched.
type Change int

const (
	ChangeCatalog Change = iota
	ChangeCart
	ChangeSelection
)

// Snapshot is an immutable copy of session state.
type Snapshot struct {
	SessionID string
	Version   uint64
	Change    Change
	Catalog   catalog.Status
	Products  []models.Product
	Cart      cart.Cart
	Selected  *models.Product
}

// Loader is the part of catalog.Loader a session needs.
type Loader interface {
	Start(ctx context.Context, publish func(catalog.Status)) (stop func())
}

// Session is one mounted storefront view.
type Session struct {
	id     string
	loader Loader
	grid   datagrid.Grid
	logger *zap.Logger

	mu           sync.Mutex
	status       catalog.Status
	products     []models.Product
	cart         cart.Cart
	selected     *models.Product
	version      uint64
	subscribers  map[int]func(Snapshot)
	nextSub      int
	teardownGrid func()
	stopLoader   func()
	mounted      bool
	closed       bool
	lastSeen     time.Time
}

// NewSession creates an unmounted session.
func NewSession(id string, loader Loader, grid datagrid.Grid, logger *zap.Logger) *Session {
	return &Session{
		id:          id,
		loader:      loader,
		grid:        grid,
		logger:      logger.With(zap.String("session", id)),
		products:    []models.Product{},
		subscribers: make(map[int]func(Snapshot)),
	}
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Mount starts loading the catalog. Only the first call has an effect.
func (s *Session) Mount(ctx context.Context) {
	s.mu.Lock()
	if s.mounted || s.closed {
		s.mu.Unlock()
		return
	}
	s.mounted = true
	s.status = catalog.Status{Phase: catalog.PhaseLoading, Loading: true}
	s.mu.Unlock()

	s.logger.Debug("session mounted")
	stop := s.loader.Start(ctx, s.applyStatus)

	s.mu.Lock()
	if s.closed {
		// Close ran while the loader was starting.
		s.mu.Unlock()
		stop()
		return
	}
	s.stopLoader = stop
	s.mu.Unlock()
}

// Close tears the session down. A pending fetch or retry is cancelled and
// any update it still produces is discarded.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	stop := s.stopLoader
	s.stopLoader = nil
	if s.teardownGrid != nil {
		s.teardownGrid()
		s.teardownGrid = nil
	}
	s.subscribers = make(map[int]func(Snapshot))
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	s.logger.Debug("session closed")
}

// Closed reports whether the session has been torn down.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Subscribe registers fn to receive a snapshot after every change.
// Subscribers run with the session locked and must not call back into it.
func (s *Session) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(ChangeCatalog)
}

// Add puts p in the cart or increments its quantity.
func (s *Session) Add(p models.Product) {
	s.updateCart(func(c cart.Cart) cart.Cart { return c.Add(p) })
}

// AddByID adds the catalog product with the given id. It reports false when
// the id is not in the current catalog.
func (s *Session) AddByID(id models.ProductID) bool {
	p, ok := s.findProduct(id)
	if ok {
		s.Add(p)
	}
	return ok
}

// SetQuantity updates a cart quantity from raw user input.
func (s *Session) SetQuantity(id models.ProductID, raw string) {
	s.updateCart(func(c cart.Cart) cart.Cart { return c.SetQuantity(id, raw) })
}

// Remove drops a product from the cart.
func (s *Session) Remove(id models.ProductID) {
	s.updateCart(func(c cart.Cart) cart.Cart { return c.Remove(id) })
}

// OpenDetail selects p for the detail overlay. p does not need to be part
// of the current catalog.
func (s *Session) OpenDetail(p models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	selected := p
	s.selected = &selected
	s.notifyLocked(ChangeSelection)
}

// OpenDetailByID selects the catalog product with the given id.
func (s *Session) OpenDetailByID(id models.ProductID) bool {
	p, ok := s.findProduct(id)
	if ok {
		s.OpenDetail(p)
	}
	return ok
}

// CloseDetail clears the selection.
func (s *Session) CloseDetail() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.selected == nil {
		return
	}
	s.selected = nil
	s.notifyLocked(ChangeSelection)
}

// AddSelected adds the product shown in the detail overlay to the cart. It
// reports false when nothing is selected or the session is closed.
func (s *Session) AddSelected() bool {
	s.mu.Lock()
	if s.closed || s.selected == nil {
		s.mu.Unlock()
		return false
	}
	p := *s.selected
	s.mu.Unlock()

	s.Add(p)
	return true
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = now
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) findProduct(id models.ProductID) (models.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.products {
		if p.ID == id {
			return p, true
		}
	}
	return models.Product{}, false
}

func (s *Session) updateCart(op func(cart.Cart) cart.Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.cart = op(s.cart)
	s.notifyLocked(ChangeCart)
}

// applyStatus receives loader updates. The product list is replaced only
// when the load settles, and the grid is rebuilt over the new list.
func (s *Session) applyStatus(st catalog.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.logger.Debug("dropping catalog update after teardown", zap.Stringer("phase", st.Phase))
		return
	}

	s.status = st
	if st.Phase.Settled() {
		s.products = st.Products
		if s.products == nil {
			s.products = []models.Product{}
		}
		s.renderGridLocked()
	}
	s.notifyLocked(ChangeCatalog)
}

func (s *Session) renderGridLocked() {
	if s.grid == nil {
		return
	}
	if s.teardownGrid != nil {
		s.teardownGrid()
		s.teardownGrid = nil
	}
	if len(s.products) == 0 {
		return
	}
	s.teardownGrid = s.grid.Render(s.products)
}

func (s *Session) notifyLocked(change Change) {
	s.version++
	snap := s.snapshotLocked(change)
	for _, fn := range s.subscribers {
		fn(snap)
	}
}

func (s *Session) snapshotLocked(change Change) Snapshot {
	snap := Snapshot{
		SessionID: s.id,
		Version:   s.version,
		Change:    change,
		Catalog:   s.status,
		Products:  s.products,
		Cart:      s.cart,
	}
	if s.selected != nil {
		selected := *s.selected
		snap.Selected = &selected
	}
	return snap
}
