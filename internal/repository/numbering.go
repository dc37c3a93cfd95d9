package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/diewo77/cna-billing/internal/db"
	"github.com/diewo77/cna-billing/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	EstimatePrefix = "EST"
	InvoicePrefix  = "INV"
)

// nextNumber allocates the next PREFIX-YYYYMM-NNNN number. It must run inside a transaction:
// the sequence row for the period is created if missing, locked, then incremented.
func nextNumber(ctx context.Context, tx *db.Gateway, prefix, table, column string, now time.Time) (string, error) {
	const op = "repository.nextNumber"
	period := now.Format("200601")
	conn := tx.Conn(ctx)

	seed, err := highestNumber(conn, prefix, period, table, column)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	row := models.NumberSequence{Prefix: prefix, Period: period, LastValue: seed, UpdatedAt: now}
	if err := conn.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, db.ErrQueryFailed, err)
	}

	var seq models.NumberSequence
	err = conn.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("prefix = ? AND period = ?", prefix, period).
		Take(&seq).Error
	if err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, db.ErrQueryFailed, err)
	}
	seq.LastValue++
	err = conn.Model(&models.NumberSequence{}).
		Where("prefix = ? AND period = ?", prefix, period).
		Updates(map[string]any{"last_value": seq.LastValue, "updated_at": now}).Error
	if err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, db.ErrQueryFailed, err)
	}
	return FormatNumber(prefix, now, seq.LastValue), nil
}

// highestNumber returns the largest sequence already used in table for the period, so that
// rows written before the sequence table existed are never reissued.
func highestNumber(conn *gorm.DB, prefix, period, table, column string) (int, error) {
	var numbers []string
	err := conn.Table(table).
		Where(column+" LIKE ?", prefix+"-"+period+"-%").
		Pluck(column, &numbers).Error
	if err != nil {
		return 0, err
	}
	highest := 0
	for _, n := range numbers {
		if v := ParseSequence(n); v > highest {
			highest = v
		}
	}
	return highest, nil
}

// FormatNumber renders a document number such as INV-202503-0001.
func FormatNumber(prefix string, at time.Time, seq int) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, at.Format("200601"), seq)
}

// ParseSequence returns the trailing counter of a document number, or 0 when malformed.
func ParseSequence(number string) int {
	i := strings.LastIndexByte(number, '-')
	if i < 0 {
		return 0
	}
	v, err := strconv.Atoi(number[i+1:])
	if err != nil {
		return 0
	}
	return v
}
