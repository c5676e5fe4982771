// Package stats keeps the per-bootcamp aggregates (average course tuition and
// average review rating) in line with the rows they are derived from.
package stats

import (
	"database/sql"

	"bootcamps/models"

	"gorm.io/gorm"
)

// RecomputeAverageCost stores the mean course tuition of a bootcamp, or NULL
// when it has no courses.
func RecomputeAverageCost(tx *gorm.DB, bootcampID uint) error {
	return recompute(tx, &models.Course{}, "tuition", "average_cost", bootcampID)
}

// RecomputeAverageRating stores the mean review rating of a bootcamp.
func RecomputeAverageRating(tx *gorm.DB, bootcampID uint) error {
	return recompute(tx, &models.Review{}, "rating", "average_rating", bootcampID)
}

// RecomputeAll refreshes both aggregates of every bootcamp and returns how
// many bootcamps were visited.
func RecomputeAll(tx *gorm.DB) (int, error) {
	var ids []uint
	if err := tx.Model(&models.Bootcamp{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	for _, id := range ids {
		if err := RecomputeAverageCost(tx, id); err != nil {
			return 0, err
		}
		if err := RecomputeAverageRating(tx, id); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}

func recompute(tx *gorm.DB, model any, column, target string, bootcampID uint) error {
	n, avg, err := aggregate(tx, model, column, bootcampID)
	if err != nil {
		return err
	}
	var v *float64
	if n > 0 {
		v = avg
	}
	return tx.Model(&models.Bootcamp{}).Where("id = ?", bootcampID).Update(target, v).Error
}

// aggregate returns the row count and the rounded mean of column for one bootcamp.
func aggregate(tx *gorm.DB, model any, column string, bootcampID uint) (int64, *float64, error) {
	var (
		n   int64
		avg sql.NullFloat64
	)
	row := tx.Model(model).Select("COUNT(*), AVG("+column+")").Where("bootcamp_id = ?", bootcampID).Row()
	if err := row.Scan(&n, &avg); err != nil {
		return 0, nil, err
	}
	if !avg.Valid {
		return n, nil, nil
	}
	r := models.RoundTenth(avg.Float64)
	return n, &r, nil
}

// Summary compares the stored aggregates of a bootcamp with live values.
type Summary struct {
	BootcampID    uint
	Name          string
	Courses       int64
	Reviews       int64
	AverageCost   *float64
	AverageRating *float64
	LiveCost      *float64
	LiveRating    *float64
}

// Stale reports whether a stored aggregate no longer matches its live value.
func (s Summary) Stale() bool {
	return !sameValue(s.AverageCost, s.LiveCost) || !sameValue(s.AverageRating, s.LiveRating)
}

func sameValue(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Summarize builds a Summary for the given bootcamps, or for all of them when
// ids is empty.
func Summarize(tx *gorm.DB, ids ...uint) ([]Summary, error) {
	q := tx.Model(&models.Bootcamp{}).Order("id")
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	}
	var camps []models.Bootcamp
	if err := q.Find(&camps).Error; err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(camps))
	for _, b := range camps {
		s := Summary{BootcampID: b.ID, Name: b.Name, AverageCost: b.AverageCost, AverageRating: b.AverageRating}
		var err error
		if s.Courses, s.LiveCost, err = aggregate(tx, &models.Course{}, "tuition", b.ID); err != nil {
			return nil, err
		}
		if s.Reviews, s.LiveRating, err = aggregate(tx, &models.Review{}, "rating", b.ID); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
