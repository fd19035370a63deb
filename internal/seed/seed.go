package seed

import (
	"context"
	"errors"
	"time"

	areadomain "github.com/makoban/koubo-navi/internal/area/domain"
	"github.com/makoban/koubo-navi/internal/config"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EnsureAreaSources seeds the area source catalog at startup. Existing rows
// keep their operational columns (failure counters, active flag); only the
// descriptive fields follow the catalog.
func EnsureAreaSources(db *gorm.DB, catalog config.AreasCatalog) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	ctx := context.Background()
	now := time.Now().UTC()

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, area := range catalog.Areas {
			for _, src := range area.Sources {
				if src.ID == "" {
					continue
				}
				row := areadomain.AreaSource{
					ID:         src.ID,
					AreaID:     area.ID,
					AreaName:   area.Name,
					SourceName: src.Name,
					URL:        src.URL,
					Active:     true,
					CreatedAt:  now,
				}
				err := tx.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "id"}},
					DoUpdates: clause.AssignmentColumns([]string{"area_id", "area_name", "source_name", "url"}),
				}).Create(&row).Error
				if err != nil {
					return err
				}
			}
		}
		return nil
	})
}
