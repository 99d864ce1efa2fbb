package migrate

import (
	"log/slog"

	"github.com/poiesic/objectdb/schema"
	"github.com/poiesic/objectdb/storage"
)

// DefaultBehavior is handed to every Up step.
type DefaultBehavior interface {
	// CreateMissingStores creates each declared store that does not exist
	// yet, with its key configuration and every declared index.
	CreateMissingStores() error
}

type defaultBehavior struct {
	tx     storage.UpgradeTx
	stores []schema.StoreSchema
	logger *slog.Logger
}

func (d *defaultBehavior) CreateMissingStores() error {
	return CreateMissingStores(d.tx, d.stores, d.logger)
}

// CreateMissingStores creates every store in stores that tx does not have.
// Stores that already exist are left untouched, including their indexes.
func CreateMissingStores(tx storage.UpgradeTx, stores []schema.StoreSchema, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	for _, s := range stores {
		if tx.HasStore(s.Name) {
			continue
		}
		if _, err := tx.CreateStore(s.Name, s.Key); err != nil {
			return err
		}
		for _, idx := range s.Indexes {
			if err := tx.CreateIndex(s.Name, idx); err != nil {
				return err
			}
		}
		logger.Debug("created store", "store", s.Name, "indexes", len(s.Indexes))
	}
	return nil
}
