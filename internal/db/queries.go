package db

import (
	"database/sql"
	"fmt"

	"tree-garden/internal/models"
)

type authDBImplementation struct {
	db *sql.DB
}

func NewAuthDB(dbConn *sql.DB) AuthDB {
	return &authDBImplementation{db: dbConn}
}

func (a *authDBImplementation) GetUserAuthData(username string) (models.User, error) {
	var u models.User
	err := a.db.QueryRow("SELECT id, username, password_hash, is_admin FROM users WHERE username=$1", username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.IsAdmin)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to get user auth data for '%s': %w", username, err)
	}
	return u, nil
}

func (a *authDBImplementation) IsAdministrator(userID int) (bool, error) {
	var isAdmin bool
	err := a.db.QueryRow("SELECT is_admin FROM users WHERE id=$1", userID).Scan(&isAdmin)
	if err != nil {
		return false, fmt.Errorf("failed to get admin flag for user %d: %w", userID, err)
	}
	return isAdmin, nil
}

// ledgerDBImplementation backs CatalogDB, GardenDB and RewardDB with one
// connection; the split interfaces only narrow what each service sees.
type ledgerDBImplementation struct {
	db *sql.DB
}

func NewCatalogDB(dbConn *sql.DB) CatalogDB {
	return &ledgerDBImplementation{db: dbConn}
}

func NewGardenDB(dbConn *sql.DB) GardenDB {
	return &ledgerDBImplementation{db: dbConn}
}

func NewRewardDB(dbConn *sql.DB) RewardDB {
	return &ledgerDBImplementation{db: dbConn}
}

func (l *ledgerDBImplementation) BeginTx() (*sql.Tx, error) {
	tx, err := l.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

func (l *ledgerDBImplementation) GetTree(name string) (models.Tree, bool, error) {
	var t models.Tree
	err := l.db.QueryRow("SELECT name, serial_number, price, quantity FROM trees WHERE name=$1", name).
		Scan(&t.Name, &t.SerialNumber, &t.Price, &t.Quantity)
	if err == sql.ErrNoRows {
		return models.Tree{}, false, nil
	}
	if err != nil {
		return models.Tree{}, false, fmt.Errorf("failed to get tree %q: %w", name, err)
	}
	return t, true, nil
}

func (l *ledgerDBImplementation) GetTreeForUpdate(tx *sql.Tx, name string) (models.Tree, error) {
	var t models.Tree
	err := tx.QueryRow("SELECT name, serial_number, price, quantity FROM trees WHERE name=$1 FOR UPDATE", name).
		Scan(&t.Name, &t.SerialNumber, &t.Price, &t.Quantity)
	if err != nil {
		return models.Tree{}, err
	}
	return t, nil
}

func (l *ledgerDBImplementation) InsertTree(tx *sql.Tx, tree models.Tree) error {
	_, err := tx.Exec("INSERT INTO trees (name, serial_number, price, quantity) VALUES ($1, $2, $3, $4)",
		tree.Name, tree.SerialNumber, tree.Price, tree.Quantity)
	if err != nil {
		return fmt.Errorf("failed to insert tree %q: %w", tree.Name, err)
	}
	return nil
}

func (l *ledgerDBImplementation) AddTreeQuantity(tx *sql.Tx, name string, delta int64) error {
	_, err := tx.Exec("UPDATE trees SET quantity = quantity + $1 WHERE name=$2", delta, name)
	if err != nil {
		return fmt.Errorf("failed to add tree quantity: %w", err)
	}
	return nil
}

func (l *ledgerDBImplementation) SetTreePrice(tx *sql.Tx, name string, price int64) error {
	_, err := tx.Exec("UPDATE trees SET price = $1 WHERE name=$2", price, name)
	if err != nil {
		return fmt.Errorf("failed to set tree price: %w", err)
	}
	return nil
}

func (l *ledgerDBImplementation) DeleteTree(tx *sql.Tx, name string) error {
	_, err := tx.Exec("DELETE FROM trees WHERE name=$1", name)
	if err != nil {
		return fmt.Errorf("failed to delete tree %q: %w", name, err)
	}
	return nil
}

func (l *ledgerDBImplementation) DecreaseTreeQuantity(tx *sql.Tx, name string, delta int64) error {
	_, err := tx.Exec("UPDATE trees SET quantity = quantity - $1 WHERE name=$2", delta, name)
	if err != nil {
		return fmt.Errorf("failed to decrease tree quantity: %w", err)
	}
	return nil
}

func (l *ledgerDBImplementation) IncreaseTreeQuantity(tx *sql.Tx, name string, delta int64) error {
	_, err := tx.Exec("UPDATE trees SET quantity = quantity + $1 WHERE name=$2", delta, name)
	if err != nil {
		return fmt.Errorf("failed to increase tree quantity: %w", err)
	}
	return nil
}

func (l *ledgerDBImplementation) InsertSapling(tx *sql.Tx, s models.Sapling) error {
	_, err := tx.Exec("INSERT INTO saplings (holder_id, tree_name, price, quantity, planted_at) VALUES ($1, $2, $3, $4, $5)",
		s.HolderID, s.TreeName, s.Price, s.Quantity, s.PlantedAt)
	if err != nil {
		return fmt.Errorf("failed to insert sapling: %w", err)
	}
	return nil
}

// FirstSaplingForUpdate selects the first insertion-ordered live lot whose
// remaining quantity covers the request, locking it for the transaction.
func (l *ledgerDBImplementation) FirstSaplingForUpdate(tx *sql.Tx, holderID int, treeName string, minQuantity int64) (models.Sapling, error) {
	var s models.Sapling
	err := tx.QueryRow(
		"SELECT id, holder_id, tree_name, price, quantity, planted_at FROM saplings WHERE holder_id=$1 AND tree_name=$2 AND quantity >= $3 ORDER BY id LIMIT 1 FOR UPDATE",
		holderID, treeName, minQuantity).
		Scan(&s.ID, &s.HolderID, &s.TreeName, &s.Price, &s.Quantity, &s.PlantedAt)
	if err != nil {
		return models.Sapling{}, err
	}
	return s, nil
}

func (l *ledgerDBImplementation) UpdateSapling(tx *sql.Tx, id int64, quantity, price int64) error {
	_, err := tx.Exec("UPDATE saplings SET quantity = $1, price = $2 WHERE id=$3", quantity, price, id)
	if err != nil {
		return fmt.Errorf("failed to update sapling %d: %w", id, err)
	}
	return nil
}

func (l *ledgerDBImplementation) GetUserIDByUsername(tx *sql.Tx, username string) (int, error) {
	var userID int
	err := tx.QueryRow("SELECT id FROM users WHERE username=$1", username).Scan(&userID)
	if err != nil {
		return 0, err
	}
	return userID, nil
}

func (l *ledgerDBImplementation) GetSaplings(holderID int) ([]models.Sapling, error) {
	rows, err := l.db.Query(
		"SELECT id, holder_id, tree_name, price, quantity, planted_at FROM saplings WHERE holder_id=$1 AND quantity > 0 ORDER BY id",
		holderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query saplings: %w", err)
	}
	defer rows.Close()

	var saplings []models.Sapling
	for rows.Next() {
		var s models.Sapling
		if e2 := rows.Scan(&s.ID, &s.HolderID, &s.TreeName, &s.Price, &s.Quantity, &s.PlantedAt); e2 != nil {
			continue
		}
		saplings = append(saplings, s)
	}
	return saplings, nil
}

func (l *ledgerDBImplementation) FirstSapling(holderID int, treeName string) (models.Sapling, error) {
	var s models.Sapling
	err := l.db.QueryRow(
		"SELECT id, holder_id, tree_name, price, quantity, planted_at FROM saplings WHERE holder_id=$1 AND tree_name=$2 AND quantity > 0 ORDER BY id LIMIT 1",
		holderID, treeName).
		Scan(&s.ID, &s.HolderID, &s.TreeName, &s.Price, &s.Quantity, &s.PlantedAt)
	if err != nil {
		return models.Sapling{}, err
	}
	return s, nil
}

func (l *ledgerDBImplementation) UpsertSnapshot(tx *sql.Tx, snap models.RewardSnapshot) error {
	_, err := tx.Exec(`
INSERT INTO reward_snapshots (holder_id, tree_name, fruits, flowers, woods, claimed_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (holder_id, tree_name) DO UPDATE
SET fruits = EXCLUDED.fruits, flowers = EXCLUDED.flowers, woods = EXCLUDED.woods, claimed_at = EXCLUDED.claimed_at
`, snap.HolderID, snap.TreeName, snap.Fruits, snap.Flowers, snap.Woods, snap.ClaimedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert reward snapshot: %w", err)
	}
	return nil
}

func (l *ledgerDBImplementation) GetSnapshots(holderID int) ([]models.RewardSnapshot, error) {
	rows, err := l.db.Query(
		"SELECT holder_id, tree_name, fruits, flowers, woods, claimed_at FROM reward_snapshots WHERE holder_id=$1",
		holderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reward snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []models.RewardSnapshot
	for rows.Next() {
		var s models.RewardSnapshot
		if e2 := rows.Scan(&s.HolderID, &s.TreeName, &s.Fruits, &s.Flowers, &s.Woods, &s.ClaimedAt); e2 != nil {
			continue
		}
		snaps = append(snaps, s)
	}
	return snaps, nil
}

type treasuryImplementation struct {
	db *sql.DB
}

func NewTreasury(dbConn *sql.DB) Custody {
	return &treasuryImplementation{db: dbConn}
}

func (t *treasuryImplementation) BalanceForUpdate(tx *sql.Tx) (int64, error) {
	var balance int64
	err := tx.QueryRow("SELECT balance FROM treasury WHERE id=1 FOR UPDATE").Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("failed to get treasury balance: %w", err)
	}
	return balance, nil
}

func (t *treasuryImplementation) Pay(tx *sql.Tx, userID int, amount int64) error {
	_, err := tx.Exec("UPDATE treasury SET balance = balance - $1 WHERE id=1", amount)
	if err != nil {
		return fmt.Errorf("failed to pay %d to user %d: %w", amount, userID, err)
	}
	return nil
}

func (t *treasuryImplementation) Receive(tx *sql.Tx, userID int, amount int64) error {
	_, err := tx.Exec("UPDATE treasury SET balance = balance + $1 WHERE id=1", amount)
	if err != nil {
		return fmt.Errorf("failed to receive %d from user %d: %w", amount, userID, err)
	}
	return nil
}
