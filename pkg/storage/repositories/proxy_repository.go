package repositories

import (
	"context"
	"fmt"

	"github.com/tphan267/arqut-fleet/pkg/models"
	"gorm.io/gorm"
)

// StatusCounts is the per-status breakdown of the fleet
type StatusCounts struct {
	Total   int64
	Online  int64
	Offline int64
}

type ProxyRepository struct {
	db *gorm.DB
}

func NewProxyRepository(db *gorm.DB) *ProxyRepository {
	return &ProxyRepository{db: db}
}

// Create inserts a proxy; ID and timestamps are filled in on p
func (r *ProxyRepository) Create(ctx context.Context, p *models.Proxy) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return translate(err, "Proxy")
	}
	return nil
}

// List returns all proxies ordered by id
func (r *ProxyRepository) List(ctx context.Context) ([]models.Proxy, error) {
	proxies := []models.Proxy{}
	if err := r.db.WithContext(ctx).Order("id").Find(&proxies).Error; err != nil {
		return nil, err
	}
	return proxies, nil
}

// Get returns a single proxy by ID
func (r *ProxyRepository) Get(ctx context.Context, id uint) (*models.Proxy, error) {
	var proxy models.Proxy
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&proxy).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("Proxy with id %d", id))
	}
	return &proxy, nil
}

// Update applies the column updates to one proxy. updated_at is always set.
func (r *ProxyRepository) Update(ctx context.Context, id uint, updates map[string]any) (int64, error) {
	updates["updated_at"] = r.db.NowFunc()
	res := r.db.WithContext(ctx).Model(&models.Proxy{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// IDsByStatus returns the ids of all proxies in the given status
func (r *ProxyRepository) IDsByStatus(ctx context.Context, status models.ProxyStatus) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).Model(&models.Proxy{}).
		Where("status = ?", status).
		Order("id").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// ResetAddresses clears public_ip and forces status=offline for the ids
func (r *ProxyRepository) ResetAddresses(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&models.Proxy{}).
		Where("id IN ?", ids).
		Updates(map[string]any{
			"public_ip":  nil,
			"status":     models.StatusOffline,
			"updated_at": r.db.NowFunc(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// CountByStatus computes the fleet breakdown in a single grouped query
func (r *ProxyRepository) CountByStatus(ctx context.Context) (StatusCounts, error) {
	var rows []struct {
		Status models.ProxyStatus
		Count  int64
	}
	if err := r.db.WithContext(ctx).Model(&models.Proxy{}).
		Select("status, count(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return StatusCounts{}, err
	}

	var counts StatusCounts
	for _, row := range rows {
		counts.Total += row.Count
		switch row.Status {
		case models.StatusOnline:
			counts.Online = row.Count
		case models.StatusOffline:
			counts.Offline = row.Count
		}
	}
	return counts, nil
}

func (r *ProxyRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Proxy{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
