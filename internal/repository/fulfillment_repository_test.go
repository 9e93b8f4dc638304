package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/fulfill-next/internal/constants"
	"github.com/fulfill-next/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupRepoTest(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:fulfillment_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Fulfillment{}, &models.FulfillmentCounter{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return db
}

func TestClaimNextNumberSequence(t *testing.T) {
	db := setupRepoTest(t)
	repo := NewFulfillmentRepository(db)
	now := time.Now()
	period := now.Format("200601")

	first, err := repo.ClaimNextNumber(now)
	if err != nil {
		t.Fatalf("first claim failed: %v", err)
	}
	if want := constants.FulfillmentNoPrefix + period + "0001"; first != want {
		t.Fatalf("expected %s, got %s", want, first)
	}
	second, err := repo.ClaimNextNumber(now)
	if err != nil {
		t.Fatalf("second claim failed: %v", err)
	}
	if want := constants.FulfillmentNoPrefix + period + "0002"; second != want {
		t.Fatalf("expected %s, got %s", want, second)
	}
}

func TestClaimNextNumberSeedsFromExistingNumbers(t *testing.T) {
	db := setupRepoTest(t)
	repo := NewFulfillmentRepository(db)
	now := time.Now()
	period := now.Format("200601")

	// 计数行缺失但当月已有历史单号时，从最大序号续排
	if err := db.Create(&models.Fulfillment{
		OrderID:       1,
		FulfillmentNo: constants.FulfillmentNoPrefix + period + "0007",
		Status:        constants.FulfillmentStatusPending,
	}).Error; err != nil {
		t.Fatalf("seed fulfillment failed: %v", err)
	}
	number, err := repo.ClaimNextNumber(now)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if want := constants.FulfillmentNoPrefix + period + "0008"; number != want {
		t.Fatalf("expected %s, got %s", want, number)
	}
}

func TestClaimNextNumberFirstClaimRace(t *testing.T) {
	db := setupRepoTest(t)
	repo := NewFulfillmentRepository(db)
	now := time.Now()
	period := now.Format("200601")

	// 在计数行插入前抢先写入同月份计数行，模拟并发首次认领中输掉插入的一方
	injected := false
	err := db.Callback().Create().Before("gorm:create").Register("counter_claim_race", func(tx *gorm.DB) {
		if injected {
			return
		}
		if _, ok := tx.Statement.Dest.(*models.FulfillmentCounter); !ok {
			return
		}
		injected = true
		tx.Session(&gorm.Session{NewDB: true}).
			Exec("INSERT INTO fulfillment_counters (period, seq, updated_at) VALUES (?, ?, ?)",
				period, int64(3), time.Now())
	})
	if err != nil {
		t.Fatalf("register callback failed: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Callback().Create().Remove("counter_claim_race")
	})

	number, err := repo.ClaimNextNumber(now)
	if err != nil {
		t.Fatalf("claim after lost insert race failed: %v", err)
	}
	if !injected {
		t.Fatalf("expected competing counter insert to fire")
	}
	if want := constants.FulfillmentNoPrefix + period + "0004"; number != want {
		t.Fatalf("expected %s, got %s", want, number)
	}
}
