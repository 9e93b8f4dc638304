package repository

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fulfill-next/internal/constants"
	"github.com/fulfill-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrVersionConflict 乐观锁版本冲突
var ErrVersionConflict = errors.New("fulfillment version conflict")

// FulfillmentRepository 履约单数据访问接口
type FulfillmentRepository interface {
	Create(fulfillment *models.Fulfillment, items []models.FulfillmentItem) error
	GetByID(id uint) (*models.Fulfillment, error)
	GetByNumber(fulfillmentNo string) (*models.Fulfillment, error)
	GetByTrackingNumber(trackingNumber string) (*models.Fulfillment, error)
	List(filter FulfillmentListFilter) ([]models.Fulfillment, int64, error)
	ListByOrderID(orderID uint) ([]models.Fulfillment, error)
	UpdateFields(id uint, updates map[string]interface{}) error
	UpdateStatusVersioned(id uint, status string, version int64, updates map[string]interface{}) error
	Delete(id uint) error
	ClaimNextNumber(now time.Time) (string, error)
	Stats(now time.Time) (*FulfillmentStats, error)
	WithTx(tx *gorm.DB) *GormFulfillmentRepository
}

// GormFulfillmentRepository GORM 实现
type GormFulfillmentRepository struct {
	db *gorm.DB
}

// NewFulfillmentRepository 创建履约单仓库
func NewFulfillmentRepository(db *gorm.DB) *GormFulfillmentRepository {
	return &GormFulfillmentRepository{db: db}
}

// WithTx 绑定事务
func (r *GormFulfillmentRepository) WithTx(tx *gorm.DB) *GormFulfillmentRepository {
	if tx == nil {
		return r
	}
	return &GormFulfillmentRepository{db: tx}
}

func (r *GormFulfillmentRepository) withDetail(query *gorm.DB) *gorm.DB {
	return query.Preload("Items").
		Preload("TrackingEvents", func(db *gorm.DB) *gorm.DB {
			return db.Order("event_time asc")
		}).
		Preload("ShippingProvider")
}

// Create 创建履约单与明细（同一事务内写入）
func (r *GormFulfillmentRepository) Create(fulfillment *models.Fulfillment, items []models.FulfillmentItem) error {
	if err := r.db.Create(fulfillment).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].FulfillmentID = fulfillment.ID
	}
	if len(items) > 0 {
		if err := r.db.Create(&items).Error; err != nil {
			return err
		}
	}
	fulfillment.Items = items
	return nil
}

// GetByID 根据 ID 获取履约单（含明细、事件与服务商）
func (r *GormFulfillmentRepository) GetByID(id uint) (*models.Fulfillment, error) {
	var fulfillment models.Fulfillment
	if err := r.withDetail(r.db).First(&fulfillment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &fulfillment, nil
}

// GetByNumber 根据履约单号获取履约单
func (r *GormFulfillmentRepository) GetByNumber(fulfillmentNo string) (*models.Fulfillment, error) {
	fulfillmentNo = strings.TrimSpace(fulfillmentNo)
	if fulfillmentNo == "" {
		return nil, nil
	}
	var fulfillment models.Fulfillment
	if err := r.withDetail(r.db).Where("fulfillment_no = ?", fulfillmentNo).
		First(&fulfillment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &fulfillment, nil
}

// GetByTrackingNumber 根据运单号获取履约单
func (r *GormFulfillmentRepository) GetByTrackingNumber(trackingNumber string) (*models.Fulfillment, error) {
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return nil, nil
	}
	var fulfillment models.Fulfillment
	if err := r.withDetail(r.db).Where("tracking_number = ?", trackingNumber).
		First(&fulfillment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &fulfillment, nil
}

// List 分页查询履约单
func (r *GormFulfillmentRepository) List(filter FulfillmentListFilter) ([]models.Fulfillment, int64, error) {
	query := r.db.Model(&models.Fulfillment{})
	if filter.OrderID > 0 {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if priority := strings.TrimSpace(filter.Priority); priority != "" {
		query = query.Where("priority = ?", priority)
	}
	if filter.ShippingProviderID > 0 {
		query = query.Where("shipping_provider_id = ?", filter.ShippingProviderID)
	}
	if no := strings.TrimSpace(filter.FulfillmentNo); no != "" {
		query = query.Where("fulfillment_no LIKE ?", "%"+no+"%")
	}
	if tn := strings.TrimSpace(filter.TrackingNumber); tn != "" {
		query = query.Where("tracking_number = ?", tn)
	}
	if filter.OverdueOnly {
		query = query.Where("estimated_delivery_date IS NOT NULL AND estimated_delivery_date < ? AND status NOT IN ?",
			time.Now(), []string{
				constants.FulfillmentStatusDelivered,
				constants.FulfillmentStatusCanceled,
				constants.FulfillmentStatusReturned,
				constants.FulfillmentStatusFailed,
			})
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var fulfillments []models.Fulfillment
	if err := applyPagination(query.Preload("Items"), filter.Page, filter.PageSize).
		Order("id desc").Find(&fulfillments).Error; err != nil {
		return nil, 0, err
	}
	return fulfillments, total, nil
}

// ListByOrderID 查询某订单的全部履约单
func (r *GormFulfillmentRepository) ListByOrderID(orderID uint) ([]models.Fulfillment, error) {
	var fulfillments []models.Fulfillment
	if err := r.db.Where("order_id = ?", orderID).Order("id asc").
		Find(&fulfillments).Error; err != nil {
		return nil, err
	}
	return fulfillments, nil
}

// UpdateFields 更新履约单字段
func (r *GormFulfillmentRepository) UpdateFields(id uint, updates map[string]interface{}) error {
	return r.db.Model(&models.Fulfillment{}).Where("id = ?", id).Updates(updates).Error
}

// UpdateStatusVersioned 带版本号的状态更新，版本不匹配时返回 ErrVersionConflict
func (r *GormFulfillmentRepository) UpdateStatusVersioned(id uint, status string, version int64, updates map[string]interface{}) error {
	values := map[string]interface{}{
		"status":  status,
		"version": version + 1,
	}
	for key, value := range updates {
		values[key] = value
	}
	result := r.db.Model(&models.Fulfillment{}).
		Where("id = ? AND version = ?", id, version).
		Updates(values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

// Delete 删除履约单，先删明细与物流事件再删主记录（引用顺序）
func (r *GormFulfillmentRepository) Delete(id uint) error {
	if err := r.db.Where("fulfillment_id = ?", id).Delete(&models.TrackingEvent{}).Error; err != nil {
		return err
	}
	if err := r.db.Where("fulfillment_id = ?", id).Delete(&models.FulfillmentItem{}).Error; err != nil {
		return err
	}
	return r.db.Delete(&models.Fulfillment{}, id).Error
}

// ClaimNextNumber 认领下一个履约单号（月度序列，锁行递增）
// 计数行缺失时以当月既有单号的最大序号为种子，兼容历史数据。
func (r *GormFulfillmentRepository) ClaimNextNumber(now time.Time) (string, error) {
	period := now.Format("200601")
	var counter models.FulfillmentCounter
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("period = ?", period).First(&counter).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", err
		}
		seed, seedErr := r.maxSequenceForPeriod(period)
		if seedErr != nil {
			return "", seedErr
		}
		counter = models.FulfillmentCounter{Period: period, Seq: seed}
		if createErr := r.db.Create(&counter).Error; createErr != nil {
			// 并发首次认领同一月份时另一事务可能已插入计数行，重读加锁后继续
			retryErr := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("period = ?", period).First(&counter).Error
			if retryErr != nil {
				return "", createErr
			}
		}
	}
	counter.Seq++
	counter.UpdatedAt = now
	if err := r.db.Save(&counter).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%s%04d", constants.FulfillmentNoPrefix, period, counter.Seq), nil
}

func (r *GormFulfillmentRepository) maxSequenceForPeriod(period string) (int64, error) {
	prefix := constants.FulfillmentNoPrefix + period
	var numbers []string
	if err := r.db.Model(&models.Fulfillment{}).Unscoped().
		Where("fulfillment_no LIKE ?", prefix+"%").
		Pluck("fulfillment_no", &numbers).Error; err != nil {
		return 0, err
	}
	var max int64
	for _, number := range numbers {
		suffix := strings.TrimPrefix(number, prefix)
		seq, err := strconv.ParseInt(suffix, 10, 64)
		if err != nil {
			continue
		}
		if seq > max {
			max = seq
		}
	}
	return max, nil
}

// Stats 履约统计：总数、按状态分布与逾期数量
func (r *GormFulfillmentRepository) Stats(now time.Time) (*FulfillmentStats, error) {
	stats := &FulfillmentStats{ByStatus: map[string]int64{}}

	type statusRow struct {
		Status string
		Count  int64
	}
	var rows []statusRow
	if err := r.db.Model(&models.Fulfillment{}).
		Select("status, COUNT(*) AS count").
		Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		stats.ByStatus[row.Status] = row.Count
		stats.Total += row.Count
	}

	if err := r.db.Model(&models.Fulfillment{}).
		Where("estimated_delivery_date IS NOT NULL AND estimated_delivery_date < ? AND status NOT IN ?",
			now, []string{
				constants.FulfillmentStatusDelivered,
				constants.FulfillmentStatusCanceled,
				constants.FulfillmentStatusReturned,
				constants.FulfillmentStatusFailed,
			}).
		Count(&stats.Overdue).Error; err != nil {
		return nil, err
	}
	return stats, nil
}
