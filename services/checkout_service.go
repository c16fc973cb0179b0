package services

import (
	"context"
	"errors"
	"fmt"
	"storefront/libs"
	"storefront/metrics"
	"storefront/models"
	"storefront/utils"
	"strings"

	"go.uber.org/zap"
)

var (
	ErrNotLoggedIn    = errors.New("login required")
	ErrEmptyCart      = errors.New("cart is empty")
	ErrMissingAddress = errors.New("delivery address is required")
	ErrMissingReceipt = errors.New("please upload a payment screenshot")
	ErrInvalidReceipt = errors.New("invalid receipt image")
)

type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, token string, sub models.OrderSubmission) (*models.CheckoutResult, error)
}

type ReceiptStore interface {
	SaveReceipt(ctx context.Context, filename string, data []byte) (string, error)
}

type OrderNotifier interface {
	NotifyOrderPlaced(ctx context.Context, n models.OrderNotification) error
}

type Receipt struct {
	Filename string
	Data     []byte
}

type CheckoutRequest struct {
	// Address overrides the session's address draft when set.
	Address *models.StructuredAddress
	Receipt *Receipt
}

type CheckoutService struct {
	submitter     OrderSubmitter
	receipts      ReceiptStore
	notifier      OrderNotifier
	maxUploadSize int64
	logger        *zap.Logger
}

// NewCheckoutService wires checkout. receipts and notifier may be nil.
func NewCheckoutService(submitter OrderSubmitter, receipts ReceiptStore, notifier OrderNotifier, maxUploadSize int64, logger *zap.Logger) *CheckoutService {
	return &CheckoutService{
		submitter:     submitter,
		receipts:      receipts,
		notifier:      notifier,
		maxUploadSize: maxUploadSize,
		logger:        logger,
	}
}

// ItemsSummary renders lines as "name xN" joined by ", ".
func ItemsSummary(lines []models.CartLine) string {
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		parts = append(parts, fmt.Sprintf("%s x%d", line.Name, line.Quantity))
	}
	return strings.Join(parts, ", ")
}

func (s *CheckoutService) Checkout(ctx context.Context, sess *Session, req CheckoutRequest) (*models.CheckoutResult, error) {
	result, err := s.checkout(ctx, sess, req)
	if err != nil {
		metrics.RecordCheckout("failed")
		return nil, err
	}
	metrics.RecordCheckout("submitted")
	return result, nil
}

func (s *CheckoutService) checkout(ctx context.Context, sess *Session, req CheckoutRequest) (*models.CheckoutResult, error) {
	token, err := sess.Credential.Token(ctx)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, ErrNotLoggedIn
	}

	cart := sess.Cart.Summary()
	if len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	if req.Receipt == nil {
		return nil, ErrMissingReceipt
	}
	if err := utils.ValidateImageUpload(req.Receipt.Filename, int64(len(req.Receipt.Data)), s.maxUploadSize); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReceipt, err)
	}

	address, err := s.deliveryAddress(sess, req.Address)
	if err != nil {
		return nil, err
	}

	submission := models.OrderSubmission{
		Address:      address,
		ItemsSummary: ItemsSummary(cart.Items),
		TotalPrice:   cart.Total,
		ReceiptName:  req.Receipt.Filename,
		Receipt:      req.Receipt.Data,
	}

	if s.receipts != nil {
		url, err := s.receipts.SaveReceipt(ctx, req.Receipt.Filename, req.Receipt.Data)
		if err != nil {
			return nil, fmt.Errorf("store receipt: %w", err)
		}
		submission.ReceiptURL = url
	}

	result, err := s.submitter.SubmitOrder(ctx, token, submission)
	if errors.Is(err, libs.ErrUnauthorized) {
		if logoutErr := sess.Credential.Logout(ctx); logoutErr != nil {
			s.logger.Warn("failed to drop rejected credential", zap.String("session_id", sess.ID), zap.Error(logoutErr))
		}
		return nil, ErrNotLoggedIn
	}
	if err != nil {
		return nil, fmt.Errorf("submit order: %w", err)
	}

	// The order exists upstream from here on; later failures are only logged.
	if err := sess.Cart.RemoveOrdered(ctx, cart.Items); err != nil {
		s.logger.Error("failed to remove ordered items from cart", zap.String("session_id", sess.ID), zap.Error(err))
	}
	sess.Address.Reset()

	if s.notifier != nil {
		n := models.OrderNotification{
			OrderID:      result.OrderID,
			ItemsSummary: submission.ItemsSummary,
			Total:        submission.TotalPrice,
			Address:      address,
		}
		if err := s.notifier.NotifyOrderPlaced(ctx, n); err != nil {
			s.logger.Warn("failed to send order notification", zap.Int("order_id", result.OrderID), zap.Error(err))
		}
	}

	s.logger.Info("order submitted",
		zap.String("session_id", sess.ID),
		zap.Int("order_id", result.OrderID),
		zap.Float64("total", submission.TotalPrice),
	)
	return result, nil
}

func (s *CheckoutService) deliveryAddress(sess *Session, override *models.StructuredAddress) (models.StructuredAddress, error) {
	if override != nil {
		sess.Address.Set(*override)
	}

	address, ok := sess.Address.Current()
	if !ok || (address.StreetAddress == "" && address.City == "") {
		return models.StructuredAddress{}, ErrMissingAddress
	}
	return address, nil
}
