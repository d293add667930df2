package db

import (
	"database/sql"
	"fmt"

	"tree-garden/internal/config"
	"tree-garden/internal/models"

	_ "github.com/lib/pq"
)

type AuthDB interface {
	GetUserAuthData(username string) (models.User, error)
	IsAdministrator(userID int) (bool, error)
}

type CatalogDB interface {
	BeginTx() (*sql.Tx, error)
	GetTree(name string) (models.Tree, bool, error)
	GetTreeForUpdate(tx *sql.Tx, name string) (models.Tree, error)
	InsertTree(tx *sql.Tx, tree models.Tree) error
	AddTreeQuantity(tx *sql.Tx, name string, delta int64) error
	SetTreePrice(tx *sql.Tx, name string, price int64) error
	DeleteTree(tx *sql.Tx, name string) error
}

type GardenDB interface {
	BeginTx() (*sql.Tx, error)
	GetTreeForUpdate(tx *sql.Tx, name string) (models.Tree, error)
	DecreaseTreeQuantity(tx *sql.Tx, name string, delta int64) error
	IncreaseTreeQuantity(tx *sql.Tx, name string, delta int64) error
	InsertSapling(tx *sql.Tx, s models.Sapling) error
	FirstSaplingForUpdate(tx *sql.Tx, holderID int, treeName string, minQuantity int64) (models.Sapling, error)
	UpdateSapling(tx *sql.Tx, id int64, quantity, price int64) error
	GetUserIDByUsername(tx *sql.Tx, username string) (int, error)
	GetSaplings(holderID int) ([]models.Sapling, error)
}

type RewardDB interface {
	BeginTx() (*sql.Tx, error)
	FirstSapling(holderID int, treeName string) (models.Sapling, error)
	FirstSaplingForUpdate(tx *sql.Tx, holderID int, treeName string, minQuantity int64) (models.Sapling, error)
	UpsertSnapshot(tx *sql.Tx, snap models.RewardSnapshot) error
	GetSnapshots(holderID int) ([]models.RewardSnapshot, error)
}

// Custody is the fund-custody collaborator. The ledger core only checks
// sufficiency and orders payments; the balance itself is collaborator state.
type Custody interface {
	BalanceForUpdate(tx *sql.Tx) (int64, error)
	Pay(tx *sql.Tx, userID int, amount int64) error
	Receive(tx *sql.Tx, userID int, amount int64) error
}

func Connect(cfg *config.Config) (*sql.DB, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DatabaseHost,
		cfg.DatabasePort,
		cfg.DatabaseUser,
		cfg.DatabasePassword,
		cfg.DatabaseName,
	)

	dbConn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := dbConn.Ping(); err != nil {
		return nil, err
	}
	return dbConn, nil
}
