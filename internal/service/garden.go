package service

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"tree-garden/internal/db"
	"tree-garden/internal/models"
	"tree-garden/internal/notify"
	"tree-garden/pkg"

	"go.uber.org/zap"
)

type Info struct {
	Saplings []models.Sapling
	Rewards  []models.RewardSnapshot
}

type GardenService interface {
	// Plant reserves quantity units of a tree against payment and appends a
	// new lot to the holder's sequence. Overpayment is accepted silently.
	Plant(holderID int, treeName string, quantity, payment int64) error

	// Transfer moves quantity units out of the holder's first matching lot
	// into a new lot owned by toUsername, keeping the original planting time.
	Transfer(holderID int, toUsername, treeName string, quantity int64) error

	// Return liquidates quantity units of the holder's first matching lot
	// back into the catalog for a refund paid out of custody.
	Return(holderID int, treeName string, quantity int64) (int64, error)

	GetHolderInfo(holderID int) (Info, error)
}

type gardenService struct {
	dbProv     db.GardenDB
	rewardProv db.RewardDB
	custody    db.Custody
	sink       notify.Sink
	log        pkg.Logger
	now        func() time.Time
}

func NewGardenService(dbProv db.GardenDB, rewardProv db.RewardDB, custody db.Custody, sink notify.Sink, log pkg.Logger) GardenService {
	return &gardenService{
		dbProv:     dbProv,
		rewardProv: rewardProv,
		custody:    custody,
		sink:       sink,
		log:        log,
		now:        time.Now,
	}
}

func (s *gardenService) Plant(holderID int, treeName string, quantity, payment int64) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	tx, err := s.dbProv.BeginTx()
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	tree, err := s.dbProv.GetTreeForUpdate(tx, treeName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTreeNotFound
		}
		s.log.Error("failed to get tree for update", zap.String("tree", treeName), zap.Error(err))
		return err
	}
	if tree.Quantity < quantity {
		return fmt.Errorf("%w: requested %d, available %d", ErrUnavailable, quantity, tree.Quantity)
	}
	if tree.Price > 0 && quantity > math.MaxInt64/tree.Price {
		return fmt.Errorf("%w: %d x %d", ErrQuantityOverflow, tree.Price, quantity)
	}
	cost := tree.Price * quantity
	if payment < cost {
		return fmt.Errorf("%w: required %d, sent %d", ErrInsufficientPayment, cost, payment)
	}

	if err := s.dbProv.DecreaseTreeQuantity(tx, treeName, quantity); err != nil {
		s.log.Error("failed to decrease tree quantity", zap.String("tree", treeName), zap.Error(err))
		return err
	}
	plantedAt := s.now().UTC()
	if err := s.dbProv.InsertSapling(tx, models.Sapling{
		HolderID:  holderID,
		TreeName:  treeName,
		Price:     cost,
		Quantity:  quantity,
		PlantedAt: plantedAt,
	}); err != nil {
		s.log.Error("failed to insert sapling", zap.Int("holderID", holderID), zap.String("tree", treeName), zap.Error(err))
		return err
	}
	// The full payment is retained, change included.
	if err := s.custody.Receive(tx, holderID, payment); err != nil {
		s.log.Error("failed to receive payment", zap.Int("holderID", holderID), zap.Error(err))
		return err
	}

	if err := tx.Commit(); err != nil {
		s.log.Error("failed to commit plant", zap.Int("holderID", holderID), zap.String("tree", treeName), zap.Error(err))
		return err
	}

	paid := notify.NewEvent(notify.EventPaymentReceived)
	paid.HolderID = holderID
	paid.Amount = payment
	s.sink.Emit(paid)

	planted := notify.NewEvent(notify.EventTreePlanted)
	planted.HolderID = holderID
	planted.TreeName = treeName
	planted.Quantity = quantity
	planted.Amount = cost
	s.sink.Emit(planted)

	s.log.Info("Tree planted",
		zap.Int("holderID", holderID),
		zap.String("tree", treeName),
		zap.Int64("quantity", quantity),
		zap.Int64("cost", cost))
	return nil
}

func (s *gardenService) Transfer(holderID int, toUsername, treeName string, quantity int64) error {
	if toUsername == "" {
		return ErrInvalidRecipient
	}
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	tx, err := s.dbProv.BeginTx()
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	recipientID, err := s.dbProv.GetUserIDByUsername(tx, toUsername)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRecipientNotFound
		}
		s.log.Error("failed to resolve recipient", zap.String("toUsername", toUsername), zap.Error(err))
		return err
	}

	lot, err := s.dbProv.FirstSaplingForUpdate(tx, holderID, treeName, quantity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrSaplingNotFound
		}
		s.log.Error("failed to select sapling", zap.Int("holderID", holderID), zap.String("tree", treeName), zap.Error(err))
		return err
	}
	perUnit, err := perUnitPrice(lot)
	if err != nil {
		s.log.Error("corrupt sapling", zap.Int64("saplingID", lot.ID), zap.Error(err))
		return err
	}
	moved := perUnit * quantity

	// Quantity zero tombstones the lot in place; the row stays and scans
	// skip it.
	if err := s.dbProv.UpdateSapling(tx, lot.ID, lot.Quantity-quantity, lot.Price-moved); err != nil {
		s.log.Error("failed to update source sapling", zap.Int64("saplingID", lot.ID), zap.Error(err))
		return err
	}
	// The recipient inherits the original planting time, so reward
	// eligibility carries over with the lot.
	if err := s.dbProv.InsertSapling(tx, models.Sapling{
		HolderID:  recipientID,
		TreeName:  treeName,
		Price:     moved,
		Quantity:  quantity,
		PlantedAt: lot.PlantedAt,
	}); err != nil {
		s.log.Error("failed to insert recipient sapling", zap.Int("recipientID", recipientID), zap.Error(err))
		return err
	}

	if err := tx.Commit(); err != nil {
		s.log.Error("failed to commit transfer", zap.Int("holderID", holderID), zap.String("toUsername", toUsername), zap.Error(err))
		return err
	}

	event := notify.NewEvent(notify.EventTreeTransferred)
	event.HolderID = holderID
	event.Counterparty = toUsername
	event.TreeName = treeName
	event.Quantity = quantity
	s.sink.Emit(event)

	s.log.Info("Tree transferred",
		zap.Int("fromHolderID", holderID),
		zap.String("toUsername", toUsername),
		zap.String("tree", treeName),
		zap.Int64("quantity", quantity))
	return nil
}

func (s *gardenService) Return(holderID int, treeName string, quantity int64) (int64, error) {
	if quantity <= 0 {
		return 0, ErrInvalidQuantity
	}

	tx, err := s.dbProv.BeginTx()
	if err != nil {
		return 0, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Lock order matches Plant: tree row first, then the holder's lots.
	// A removed tree blocks return traffic until it is re-added.
	if _, err := s.dbProv.GetTreeForUpdate(tx, treeName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrTreeNotFound
		}
		s.log.Error("failed to get tree for update", zap.String("tree", treeName), zap.Error(err))
		return 0, err
	}

	lot, err := s.dbProv.FirstSaplingForUpdate(tx, holderID, treeName, quantity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrSaplingNotFound
		}
		s.log.Error("failed to select sapling", zap.Int("holderID", holderID), zap.String("tree", treeName), zap.Error(err))
		return 0, err
	}
	perUnit, err := perUnitPrice(lot)
	if err != nil {
		s.log.Error("corrupt sapling", zap.Int64("saplingID", lot.ID), zap.Error(err))
		return 0, err
	}
	refund := perUnit * quantity

	balance, err := s.custody.BalanceForUpdate(tx)
	if err != nil {
		s.log.Error("failed to get treasury balance", zap.Error(err))
		return 0, err
	}
	if balance < refund {
		return 0, fmt.Errorf("%w: required %d, available %d", ErrInsufficientFunds, refund, balance)
	}

	if err := s.dbProv.UpdateSapling(tx, lot.ID, lot.Quantity-quantity, lot.Price-refund); err != nil {
		s.log.Error("failed to update sapling", zap.Int64("saplingID", lot.ID), zap.Error(err))
		return 0, err
	}
	// Payout runs inside the same transaction: if it fails, the rollback
	// restores the lot and nothing is restocked.
	if err := s.custody.Pay(tx, holderID, refund); err != nil {
		s.log.Error("failed to pay refund", zap.Int("holderID", holderID), zap.Int64("refund", refund), zap.Error(err))
		return 0, err
	}
	if err := s.dbProv.IncreaseTreeQuantity(tx, treeName, quantity); err != nil {
		s.log.Error("failed to restore tree quantity", zap.String("tree", treeName), zap.Error(err))
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		s.log.Error("failed to commit return", zap.Int("holderID", holderID), zap.String("tree", treeName), zap.Error(err))
		return 0, err
	}

	event := notify.NewEvent(notify.EventTreeReturned)
	event.HolderID = holderID
	event.TreeName = treeName
	event.Quantity = quantity
	event.Amount = refund
	s.sink.Emit(event)

	s.log.Info("Tree returned",
		zap.Int("holderID", holderID),
		zap.String("tree", treeName),
		zap.Int64("quantity", quantity),
		zap.Int64("refund", refund))
	return refund, nil
}

func (s *gardenService) GetHolderInfo(holderID int) (Info, error) {
	saplings, err := s.dbProv.GetSaplings(holderID)
	if err != nil {
		s.log.Error("failed to get saplings", zap.Int("holderID", holderID), zap.Error(err))
		return Info{}, err
	}
	rewards, err := s.rewardProv.GetSnapshots(holderID)
	if err != nil {
		s.log.Error("failed to get reward snapshots", zap.Int("holderID", holderID), zap.Error(err))
		return Info{}, err
	}
	return Info{Saplings: saplings, Rewards: rewards}, nil
}

// perUnitPrice divides a lot's total price by its pre-decrement quantity.
// The quantity guard in the scans makes a zero here unreachable, but a
// corrupted row must fail loudly rather than divide by zero.
func perUnitPrice(lot models.Sapling) (int64, error) {
	if lot.Quantity <= 0 {
		return 0, fmt.Errorf("sapling %d has non-positive quantity %d", lot.ID, lot.Quantity)
	}
	return lot.Price / lot.Quantity, nil
}
