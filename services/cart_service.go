package services

import (
	"context"
	"encoding/json"
	"fmt"
	"storefront/metrics"
	"storefront/models"
	"storefront/repositories"
	"sync"

	"go.uber.org/zap"
)

// CartStore is the cart of one session. The cart slot is the source of
// truth: every mutation re-reads it, applies the change and writes it back
// before the result becomes visible to readers, so processes sharing the
// slot never overwrite each other's lines.
type CartStore struct {
	mu      sync.Mutex
	lines   []models.CartLine
	storage repositories.Storage
	logger  *zap.Logger
}

// NewCartStore rehydrates the cart from storage. A corrupt snapshot is
// logged and replaced by an empty cart.
func NewCartStore(ctx context.Context, storage repositories.Storage, logger *zap.Logger) *CartStore {
	s := &CartStore{
		lines:   []models.CartLine{},
		storage: storage,
		logger:  logger,
	}
	s.rehydrate(ctx)
	return s
}

func (s *CartStore) rehydrate(ctx context.Context) {
	raw, ok, err := s.storage.GetItem(ctx, repositories.CartSlot)
	if err != nil {
		s.logger.Error("failed to read cart snapshot", zap.Error(err))
		metrics.RecordCartRehydration("unavailable")
		return
	}
	if !ok {
		metrics.RecordCartRehydration("empty")
		return
	}

	lines, cleaned, err := decodeCartSnapshot(raw)
	if err != nil {
		s.logger.Error("failed to load cart from storage", zap.Error(err))
		metrics.RecordCartRehydration("corrupt")
		s.writeBack(ctx, raw, []models.CartLine{})
		return
	}

	s.lines = lines
	if cleaned {
		metrics.RecordCartRehydration("cleaned")
		s.writeBack(ctx, raw, lines)
		return
	}
	metrics.RecordCartRehydration("ok")
}

// writeBack replaces the snapshot read as raw with lines, unless someone
// wrote the slot in the meantime.
func (s *CartStore) writeBack(ctx context.Context, raw string, lines []models.CartLine) {
	err := s.storage.UpdateItem(ctx, repositories.CartSlot, func(current string, _ bool) (string, error) {
		if current != raw {
			return "", repositories.ErrNoChange
		}
		return encodeCart(lines)
	})
	if err != nil {
		s.logger.Warn("failed to write back cleaned cart", zap.Error(err))
	}
}

// Refresh reloads the cart from storage to pick up writes made elsewhere.
// On a read error the cached lines are kept.
func (s *CartStore) Refresh(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok, err := s.storage.GetItem(ctx, repositories.CartSlot)
	if err != nil {
		s.logger.Warn("failed to refresh cart", zap.Error(err))
		return
	}
	s.lines = s.decodeStored(raw, ok)
}

// decodeStored is decodeCartSnapshot for a slot read during a mutation or
// refresh. A missing or corrupt slot counts as an empty cart.
func (s *CartStore) decodeStored(raw string, found bool) []models.CartLine {
	if !found {
		return []models.CartLine{}
	}
	lines, _, err := decodeCartSnapshot(raw)
	if err != nil {
		s.logger.Error("discarding corrupt cart snapshot", zap.Error(err))
		return []models.CartLine{}
	}
	return lines
}

type cartSnapshotEntry struct {
	ProductID *int    `json:"id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	ImageRef  string  `json:"image_url"`
}

// decodeCartSnapshot parses a stored cart. Null entries and entries without
// an id are dropped, quantities below one become one, and repeated ids are
// folded into their first line. cleaned reports whether anything changed.
func decodeCartSnapshot(raw string) (lines []models.CartLine, cleaned bool, err error) {
	var entries []*cartSnapshotEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, false, fmt.Errorf("decode cart snapshot: %w", err)
	}

	lines = make([]models.CartLine, 0, len(entries))
	index := make(map[int]int, len(entries))
	for _, e := range entries {
		if e == nil || e.ProductID == nil {
			cleaned = true
			continue
		}

		quantity := e.Quantity
		if quantity < 1 {
			quantity = 1
			cleaned = true
		}

		if i, ok := index[*e.ProductID]; ok {
			lines[i].Quantity += quantity
			cleaned = true
			continue
		}

		index[*e.ProductID] = len(lines)
		lines = append(lines, models.CartLine{
			ProductID: *e.ProductID,
			Name:      e.Name,
			UnitPrice: e.UnitPrice,
			Quantity:  quantity,
			ImageRef:  e.ImageRef,
		})
	}
	return lines, cleaned, nil
}

func encodeCart(lines []models.CartLine) (string, error) {
	payload, err := json.Marshal(lines)
	if err != nil {
		return "", fmt.Errorf("encode cart: %w", err)
	}
	return string(payload), nil
}

// cartChange derives the next cart from the stored one. It returns false
// when the cart stays as it is.
type cartChange func(lines []models.CartLine) ([]models.CartLine, bool)

// mutate applies change to the stored cart and only then makes the result
// the current cart. A failed write leaves the cart unchanged.
func (s *CartStore) mutate(ctx context.Context, operation string, change cartChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		next    []models.CartLine
		changed bool
	)
	err := s.storage.UpdateItem(ctx, repositories.CartSlot, func(raw string, found bool) (string, error) {
		current := s.decodeStored(raw, found)
		next, changed = change(current)
		if !changed {
			next = current
			return "", repositories.ErrNoChange
		}
		return encodeCart(next)
	})
	if err != nil {
		metrics.RecordCartPersistFailure()
		s.logger.Error("cart mutation rejected", zap.String("operation", operation), zap.Error(err))
		return fmt.Errorf("persist cart: %w", err)
	}

	s.lines = next
	if changed {
		metrics.RecordCartMutation(operation)
	}
	return nil
}

func indexOf(lines []models.CartLine, productID int) int {
	for i, line := range lines {
		if line.ProductID == productID {
			return i
		}
	}
	return -1
}

func without(lines []models.CartLine, i int) []models.CartLine {
	next := make([]models.CartLine, 0, len(lines)-1)
	next = append(next, lines[:i]...)
	return append(next, lines[i+1:]...)
}

func (s *CartStore) snapshot() []models.CartLine {
	next := make([]models.CartLine, len(s.lines))
	copy(next, s.lines)
	return next
}

// AddToCart increments the quantity of an existing line in place or appends
// a new line with quantity one.
func (s *CartStore) AddToCart(ctx context.Context, product models.ProductInput) error {
	return s.mutate(ctx, "add", func(lines []models.CartLine) ([]models.CartLine, bool) {
		if i := indexOf(lines, product.ProductID); i >= 0 {
			lines[i].Quantity++
			return lines, true
		}
		return append(lines, models.CartLine{
			ProductID: product.ProductID,
			Name:      product.Name,
			UnitPrice: product.UnitPrice,
			Quantity:  1,
			ImageRef:  product.ImageRef,
		}), true
	})
}

// RemoveFromCart deletes the line for productID. Absent ids are a no-op.
func (s *CartStore) RemoveFromCart(ctx context.Context, productID int) error {
	return s.mutate(ctx, "remove", func(lines []models.CartLine) ([]models.CartLine, bool) {
		i := indexOf(lines, productID)
		if i < 0 {
			return lines, false
		}
		return without(lines, i), true
	})
}

// UpdateQuantity sets the quantity of a line. A quantity of zero or less
// removes the line. Absent ids are a no-op.
func (s *CartStore) UpdateQuantity(ctx context.Context, productID, quantity int) error {
	return s.mutate(ctx, "update", func(lines []models.CartLine) ([]models.CartLine, bool) {
		i := indexOf(lines, productID)
		if i < 0 {
			return lines, false
		}
		if quantity <= 0 {
			return without(lines, i), true
		}
		lines[i].Quantity = quantity
		return lines, true
	})
}

// RemoveOrdered takes ordered lines out of the cart by subtracting their
// quantities from the lines with the same id. Anything added after the
// order was taken stays.
func (s *CartStore) RemoveOrdered(ctx context.Context, ordered []models.CartLine) error {
	return s.mutate(ctx, "checkout", func(lines []models.CartLine) ([]models.CartLine, bool) {
		changed := false
		for _, o := range ordered {
			i := indexOf(lines, o.ProductID)
			if i < 0 {
				continue
			}
			changed = true
			if lines[i].Quantity <= o.Quantity {
				lines = without(lines, i)
				continue
			}
			lines[i].Quantity -= o.Quantity
		}
		return lines, changed
	})
}

func (s *CartStore) ClearCart(ctx context.Context) error {
	return s.mutate(ctx, "clear", func([]models.CartLine) ([]models.CartLine, bool) {
		return []models.CartLine{}, true
	})
}

// Lines returns a copy of the cart in display order.
func (s *CartStore) Lines() []models.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshot()
}

func (s *CartStore) Line(productID int) (models.CartLine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := indexOf(s.lines, productID); i >= 0 {
		return s.lines[i], true
	}
	return models.CartLine{}, false
}

// Total is recomputed from the current lines on every call.
func (s *CartStore) Total() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return cartTotal(s.lines)
}

// Count is the number of items in the cart, summed over quantities.
func (s *CartStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, line := range s.lines {
		count += line.Quantity
	}
	return count
}

func (s *CartStore) Summary() models.CartResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, line := range s.lines {
		count += line.Quantity
	}
	return models.CartResponse{
		Items: s.snapshot(),
		Total: cartTotal(s.lines),
		Count: count,
	}
}

func cartTotal(lines []models.CartLine) float64 {
	total := 0.0
	for _, line := range lines {
		total += line.Subtotal()
	}
	return total
}
