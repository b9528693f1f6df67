package catalog

import (
	"context"
	"errors"

	"github.com/dinecore/dinecore/internal/dto"
	"github.com/dinecore/dinecore/internal/entity"
)

// ResolveOrder joins menu and staff display fields onto an order. Missing
// catalog entries degrade to blank display names rather than failing the
// whole response; store errors still propagate.
func ResolveOrder(ctx context.Context, dir Directory, order *entity.Order) (dto.OrderResponse, error) {
	resp := dto.OrderResponse{
		ID:            order.ID,
		TableNumber:   order.TableNumber,
		TotalAmount:   order.TotalAmount,
		Discount:      order.Discount,
		FinalAmount:   order.FinalAmount,
		PaidAmount:    order.PaidAmount,
		Change:        order.Change,
		PaymentMethod: order.PaymentMethod,
		Status:        order.Status,
		MergedFrom:    order.MergedFrom,
		SplitTo:       order.SplitTo,
		CancelReason:  order.CancelReason,
		CreatedAt:     order.CreatedAt,
		PaidAt:        order.PaidAt,
		CancelledAt:   order.CancelledAt,
	}

	server, err := resolveUser(ctx, dir, order.ServerID)
	if err != nil {
		return dto.OrderResponse{}, err
	}
	if server != nil {
		resp.Server = *server
	} else {
		resp.Server = dto.UserRef{ID: order.ServerID}
	}

	if order.CashierID != nil {
		cashier, err := resolveUser(ctx, dir, *order.CashierID)
		if err != nil {
			return dto.OrderResponse{}, err
		}
		if cashier == nil {
			cashier = &dto.UserRef{ID: *order.CashierID}
		}
		resp.Cashier = cashier
	}

	resp.Items = make([]dto.OrderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		line := dto.OrderItemResponse{
			ID:         item.ID,
			MenuItemID: item.MenuItemID,
			Quantity:   item.Quantity,
			Price:      item.Price,
			LineTotal:  item.Price * float64(item.Quantity),
			Status:     item.Status,
		}
		menu, err := dir.MenuItem(ctx, item.MenuItemID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return dto.OrderResponse{}, err
		}
		if menu != nil {
			line.Name = menu.Name
			line.ImageURL = menu.ImageURL
		}
		resp.Items = append(resp.Items, line)
	}

	return resp, nil
}

// ResolveOrders maps ResolveOrder over a listing.
func ResolveOrders(ctx context.Context, dir Directory, orders []*entity.Order) ([]dto.OrderResponse, error) {
	out := make([]dto.OrderResponse, 0, len(orders))
	for _, order := range orders {
		resp, err := ResolveOrder(ctx, dir, order)
		if err != nil {
			return nil, err
		}
		out = append(out, resp)
	}
	return out, nil
}

func resolveUser(ctx context.Context, dir Directory, id int64) (*dto.UserRef, error) {
	user, err := dir.User(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &dto.UserRef{ID: user.ID, Name: user.Name, Username: user.Username}, nil
}
