package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/db/models"
	pkgerrors "github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/errors"
)

// Service exposes cart aggregation operations.
type Service interface {
	AddItem(ctx context.Context, customerID uuid.UUID, input AddItemInput) (*models.CartItem, error)
	UpdateQuantity(ctx context.Context, customerID, itemID uuid.UUID, quantity int) (*models.CartItem, error)
	RemoveItem(ctx context.Context, customerID, itemID uuid.UUID) error
	GetCart(ctx context.Context, customerID uuid.UUID) (*View, error)
	Clear(ctx context.Context, customerID uuid.UUID) error
}

// AddItemInput carries the snapshot of a product being added to the cart.
type AddItemInput struct {
	ProductID string
	Name      string
	Size      string
	UnitPrice decimal.Decimal
	Quantity  int
}

// View is the aggregated cart handed to checkout and the API layer. Subtotal
// is the sum of unit price times quantity across all lines.
type View struct {
	Items     []models.CartItem `json:"items"`
	Subtotal  decimal.Decimal   `json:"subtotal"`
	ItemCount int               `json:"itemCount"`
}

type service struct {
	repo CartRepository
}

// NewService builds a cart service backed by the provided repository.
func NewService(repo CartRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	return &service{repo: repo}, nil
}

// AddItem appends a product to the cart. Adding a product that already sits in
// the cart with the same size merges the quantities instead of creating a
// second line.
func (s *service) AddItem(ctx context.Context, customerID uuid.UUID, input AddItemInput) (*models.CartItem, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if strings.TrimSpace(input.ProductID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if input.UnitPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price must be non-negative")
	}

	existing, err := s.repo.FindByProductAndSize(ctx, customerID, input.ProductID, input.Size)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}

	if existing != nil {
		merged := existing.Quantity + input.Quantity
		if err := s.repo.UpdateQuantity(ctx, customerID, existing.ID, merged); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "merge cart item")
		}
		existing.Quantity = merged
		return existing, nil
	}

	item := &models.CartItem{
		ID:         uuid.New(),
		CustomerID: customerID,
		ProductID:  input.ProductID,
		Size:       input.Size,
		Name:       input.Name,
		UnitPrice:  input.UnitPrice,
		Quantity:   input.Quantity,
	}
	created, err := s.repo.Create(ctx, item)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart item")
	}
	return created, nil
}

// UpdateQuantity replaces the quantity of an existing line. Zero and negative
// quantities are rejected; removing a line is an explicit RemoveItem call.
func (s *service) UpdateQuantity(ctx context.Context, customerID, itemID uuid.UUID, quantity int) (*models.CartItem, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	item, err := s.repo.FindByID(ctx, customerID, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}

	if err := s.repo.UpdateQuantity(ctx, customerID, itemID, quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart quantity")
	}
	item.Quantity = quantity
	return item, nil
}

// RemoveItem deletes a single line from the cart.
func (s *service) RemoveItem(ctx context.Context, customerID, itemID uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, customerID, itemID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}
	if err := s.repo.Delete(ctx, customerID, itemID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
	}
	return nil
}

// GetCart aggregates the customer's cart lines into a view with totals.
func (s *service) GetCart(ctx context.Context, customerID uuid.UUID) (*View, error) {
	items, err := s.repo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart items")
	}
	return BuildView(items), nil
}

// Clear empties the cart. Clearing an already empty cart is a no-op.
func (s *service) Clear(ctx context.Context, customerID uuid.UUID) error {
	if err := s.repo.DeleteByCustomer(ctx, customerID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

// BuildView computes subtotal and item count for the given lines.
func BuildView(items []models.CartItem) *View {
	subtotal := decimal.Zero
	count := 0
	for _, item := range items {
		subtotal = subtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		count += item.Quantity
	}
	return &View{
		Items:     items,
		Subtotal:  subtotal,
		ItemCount: count,
	}
}
