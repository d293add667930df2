package service

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tree-garden/internal/db"
	"tree-garden/internal/models"
	"tree-garden/internal/notify"
	"tree-garden/pkg"

	"go.uber.org/zap"
)

const (
	DefaultRewardInterval = 30 * 24 * time.Hour

	FruitsPerInterval  = 10
	FlowersPerInterval = 5
	WoodsPerInterval   = 2
)

type RewardService interface {
	// Calculate derives the accrued reward for the holder's first live lot
	// of the given tree. Read-only.
	Calculate(holderID int, treeName string) (models.RewardSnapshot, error)

	// Claim recomputes the reward and overwrites the stored snapshot for
	// (holder, tree). The lot itself is untouched.
	Claim(holderID int, treeName string) (models.RewardSnapshot, error)
}

type rewardService struct {
	dbProv   db.RewardDB
	sink     notify.Sink
	log      pkg.Logger
	interval time.Duration
	now      func() time.Time
}

func NewRewardService(dbProv db.RewardDB, sink notify.Sink, log pkg.Logger, interval time.Duration) RewardService {
	if interval <= 0 {
		interval = DefaultRewardInterval
	}
	return &rewardService{
		dbProv:   dbProv,
		sink:     sink,
		log:      log,
		interval: interval,
		now:      time.Now,
	}
}

func (s *rewardService) Calculate(holderID int, treeName string) (models.RewardSnapshot, error) {
	lot, err := s.dbProv.FirstSapling(holderID, treeName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.RewardSnapshot{}, ErrSaplingNotFound
		}
		s.log.Error("failed to select sapling", zap.Int("holderID", holderID), zap.String("tree", treeName), zap.Error(err))
		return models.RewardSnapshot{}, err
	}
	return s.snapshotFor(lot), nil
}

func (s *rewardService) Claim(holderID int, treeName string) (models.RewardSnapshot, error) {
	tx, err := s.dbProv.BeginTx()
	if err != nil {
		return models.RewardSnapshot{}, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Claim takes the same lot lock as the other mutating holder operations.
	lot, err := s.dbProv.FirstSaplingForUpdate(tx, holderID, treeName, 1)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.RewardSnapshot{}, ErrSaplingNotFound
		}
		s.log.Error("failed to select sapling", zap.Int("holderID", holderID), zap.String("tree", treeName), zap.Error(err))
		return models.RewardSnapshot{}, err
	}

	snap := s.snapshotFor(lot)
	snap.ClaimedAt = s.now().UTC()
	if err := s.dbProv.UpsertSnapshot(tx, snap); err != nil {
		s.log.Error("failed to upsert reward snapshot", zap.Int("holderID", holderID), zap.String("tree", treeName), zap.Error(err))
		return models.RewardSnapshot{}, err
	}

	if err := tx.Commit(); err != nil {
		s.log.Error("failed to commit reward claim", zap.Int("holderID", holderID), zap.String("tree", treeName), zap.Error(err))
		return models.RewardSnapshot{}, err
	}

	event := notify.NewEvent(notify.EventRewardClaimed)
	event.HolderID = holderID
	event.TreeName = treeName
	s.sink.Emit(event)

	s.log.Info("Reward claimed",
		zap.Int("holderID", holderID),
		zap.String("tree", treeName),
		zap.Int64("fruits", snap.Fruits),
		zap.Int64("flowers", snap.Flowers),
		zap.Int64("woods", snap.Woods))
	return snap, nil
}

// snapshotFor is a fixed linear accrual over whole elapsed intervals: not
// compounding, not capped.
func (s *rewardService) snapshotFor(lot models.Sapling) models.RewardSnapshot {
	elapsed := s.now().Sub(lot.PlantedAt)
	var intervals int64
	if elapsed > 0 {
		intervals = int64(elapsed / s.interval)
	}
	return models.RewardSnapshot{
		HolderID: lot.HolderID,
		TreeName: lot.TreeName,
		Fruits:   intervals * FruitsPerInterval,
		Flowers:  intervals * FlowersPerInterval,
		Woods:    intervals * WoodsPerInterval,
	}
}
