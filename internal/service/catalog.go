package service

import (
	"database/sql"
	"errors"
	"fmt"
	"math"

	"tree-garden/internal/db"
	"tree-garden/internal/models"
	"tree-garden/internal/notify"
	"tree-garden/pkg"

	"go.uber.org/zap"
)

type CatalogService interface {
	// AddTree creates the record, or adds quantity to an existing one.
	// Returns true when a new record was created.
	AddTree(callerID int, name, serialNumber string, price, quantity int64) (bool, error)

	RemoveTree(callerID int, name string) error

	UpdatePrice(callerID int, name string, price int64) error

	// GetTree has no error path for absence: found=false means no record.
	GetTree(name string) (models.Tree, bool, error)
}

type catalogService struct {
	dbProv db.CatalogDB
	auth   Authorizer
	sink   notify.Sink
	log    pkg.Logger
}

func NewCatalogService(dbProv db.CatalogDB, auth Authorizer, sink notify.Sink, log pkg.Logger) CatalogService {
	return &catalogService{
		dbProv: dbProv,
		auth:   auth,
		sink:   sink,
		log:    log,
	}
}

func (s *catalogService) requireAdmin(callerID int) error {
	isAdmin, err := s.auth.IsAdministrator(callerID)
	if err != nil {
		s.log.Error("failed to check administrator capability", zap.Int("callerID", callerID), zap.Error(err))
		return err
	}
	if !isAdmin {
		return ErrUnauthorized
	}
	return nil
}

func (s *catalogService) AddTree(callerID int, name, serialNumber string, price, quantity int64) (bool, error) {
	if err := s.requireAdmin(callerID); err != nil {
		return false, err
	}
	if name == "" || serialNumber == "" {
		return false, ErrInvalidTree
	}
	if price < 0 || quantity < 0 {
		return false, fmt.Errorf("%w: price and quantity must be non-negative", ErrInvalidTree)
	}

	tx, err := s.dbProv.BeginTx()
	if err != nil {
		return false, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	created := false
	tree, err := s.dbProv.GetTreeForUpdate(tx, name)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		created = true
		if err := s.dbProv.InsertTree(tx, models.Tree{
			Name:         name,
			SerialNumber: serialNumber,
			Price:        price,
			Quantity:     quantity,
		}); err != nil {
			s.log.Error("failed to insert tree", zap.String("tree", name), zap.Error(err))
			return false, err
		}
	case err != nil:
		s.log.Error("failed to get tree for update", zap.String("tree", name), zap.Error(err))
		return false, err
	default:
		// Restock only; price and serial stay as they are.
		if tree.Quantity > math.MaxInt64-quantity {
			return false, fmt.Errorf("%w: %d + %d", ErrQuantityOverflow, tree.Quantity, quantity)
		}
		if err := s.dbProv.AddTreeQuantity(tx, name, quantity); err != nil {
			s.log.Error("failed to add tree quantity", zap.String("tree", name), zap.Error(err))
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		s.log.Error("failed to commit add tree", zap.String("tree", name), zap.Error(err))
		return false, err
	}

	event := notify.NewEvent(notify.EventTreeAdded)
	event.HolderID = callerID
	event.TreeName = name
	event.Quantity = quantity
	s.sink.Emit(event)

	s.log.Info("Tree added", zap.String("tree", name), zap.Int64("quantity", quantity), zap.Bool("created", created))
	return created, nil
}

func (s *catalogService) RemoveTree(callerID int, name string) error {
	if err := s.requireAdmin(callerID); err != nil {
		return err
	}

	tx, err := s.dbProv.BeginTx()
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := s.dbProv.GetTreeForUpdate(tx, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTreeNotFound
		}
		s.log.Error("failed to get tree for update", zap.String("tree", name), zap.Error(err))
		return err
	}
	// Saplings already planted against this name stay valid; only future
	// plant/return traffic is blocked until the name is re-added.
	if err := s.dbProv.DeleteTree(tx, name); err != nil {
		s.log.Error("failed to delete tree", zap.String("tree", name), zap.Error(err))
		return err
	}

	if err := tx.Commit(); err != nil {
		s.log.Error("failed to commit remove tree", zap.String("tree", name), zap.Error(err))
		return err
	}

	event := notify.NewEvent(notify.EventTreeRemoved)
	event.HolderID = callerID
	event.TreeName = name
	s.sink.Emit(event)

	s.log.Info("Tree removed", zap.String("tree", name))
	return nil
}

func (s *catalogService) UpdatePrice(callerID int, name string, price int64) error {
	if err := s.requireAdmin(callerID); err != nil {
		return err
	}
	if price < 0 {
		return fmt.Errorf("%w: price must be non-negative", ErrInvalidTree)
	}

	tx, err := s.dbProv.BeginTx()
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := s.dbProv.GetTreeForUpdate(tx, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTreeNotFound
		}
		s.log.Error("failed to get tree for update", zap.String("tree", name), zap.Error(err))
		return err
	}
	// No retroactive effect: lots keep the price they were bought at.
	if err := s.dbProv.SetTreePrice(tx, name, price); err != nil {
		s.log.Error("failed to set tree price", zap.String("tree", name), zap.Error(err))
		return err
	}

	if err := tx.Commit(); err != nil {
		s.log.Error("failed to commit price update", zap.String("tree", name), zap.Error(err))
		return err
	}

	event := notify.NewEvent(notify.EventTreePriceChanged)
	event.HolderID = callerID
	event.TreeName = name
	event.Amount = price
	s.sink.Emit(event)

	s.log.Info("Tree price updated", zap.String("tree", name), zap.Int64("price", price))
	return nil
}

func (s *catalogService) GetTree(name string) (models.Tree, bool, error) {
	tree, found, err := s.dbProv.GetTree(name)
	if err != nil {
		s.log.Error("failed to get tree", zap.String("tree", name), zap.Error(err))
		return models.Tree{}, false, err
	}
	return tree, found, nil
}
