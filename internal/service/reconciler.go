package service

import (
	"context"
	"fmt"
	"log"
	"parksmart/internal/domain"
	"parksmart/internal/repository"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

const (
	defaultSweepTimeout = time.Minute
	maintenanceTimeout  = 30 * time.Second
)

type SweepResult struct {
	Checked   int `json:"checked"`
	Broadcast int `json:"broadcast"`
	Failed    int `json:"failed"`
}

// Reconciler định kỳ tính lại số chỗ trống hiện tại của mọi bãi từ sổ đặt chỗ
// và chỉ phát lại khi khác giá trị đã phát gần nhất. Không ghi dữ liệu đặt chỗ.
type Reconciler struct {
	cron     *cron.Cron
	schedule string
	lotRepo  repository.ParkingLotRepository
	ledger   *CapacityLedger
	notifier *TrackingNotifier
	clock    Clock

	sweepTimeout time.Duration // Giới hạn cho mỗi lượt quét theo lịch
}

func NewReconciler(
	schedule string,
	lotRepo repository.ParkingLotRepository,
	ledger *CapacityLedger,
	notifier *TrackingNotifier,
	clock Clock,
) *Reconciler {
	if schedule == "" {
		schedule = "@every 5m"
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Reconciler{
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		schedule: schedule,
		lotRepo:  lotRepo,
		ledger:   ledger,
		notifier: notifier,
		clock:    clock,

		sweepTimeout: defaultSweepTimeout,
	}
}

func (r *Reconciler) Start() error {
	_, err := r.cron.AddFunc(r.schedule, func() { r.runSweep() })
	if err != nil {
		return fmt.Errorf("lịch đối soát '%s' không hợp lệ: %w", r.schedule, err)
	}
	r.cron.Start()
	log.Printf("Reconciler: Đã khởi động với lịch '%s'", r.schedule)
	return nil
}

// runSweep chạy một lượt quét có deadline để một lời gọi DB hoặc Redis bị treo không chặn các lượt sau.
func (r *Reconciler) runSweep() (SweepResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.sweepTimeout)
	defer cancel()
	result, err := r.Sweep(ctx)
	if err != nil {
		log.Printf("Reconciler: Lỗi khi quét: %v", err)
		return result, err
	}
	log.Printf("Reconciler: Đã quét %d bãi, phát %d cập nhật, %d lỗi", result.Checked, result.Broadcast, result.Failed)
	return result, nil
}

// Schedule thêm một việc bảo trì chạy cùng bộ lập lịch, ví dụ dọn sự kiện cổng hết hạn.
func (r *Reconciler) Schedule(spec, name string, job func(ctx context.Context) error) error {
	_, err := r.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), maintenanceTimeout)
		defer cancel()
		if err := job(ctx); err != nil {
			log.Printf("Reconciler: Việc '%s' lỗi: %v", name, err)
		}
	})
	if err != nil {
		return fmt.Errorf("lịch '%s' cho việc '%s' không hợp lệ: %w", spec, name, err)
	}
	return nil
}

// Stop chờ lượt quét đang chạy (nếu có) kết thúc.
func (r *Reconciler) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	log.Println("Reconciler: Đã dừng")
}

// Sweep: lỗi của một bãi được log và bỏ qua, không dừng cả lượt quét.
func (r *Reconciler) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	lots, err := r.lotRepo.FindAll(ctx)
	if err != nil {
		return result, storageError("Reconciler.Sweep: tải danh sách bãi", err)
	}

	now := r.clock.Now()
	for _, lot := range lots {
		result.Checked++
		sent, err := r.reconcileLot(ctx, lot.ID, now)
		if err != nil {
			result.Failed++
			log.Printf("Reconciler: Lỗi khi đối soát bãi %d (%s): %v", lot.ID, lot.Name, err)
			continue
		}
		if sent {
			result.Broadcast++
		}
	}
	return result, nil
}

func (r *Reconciler) reconcileLot(ctx context.Context, lotID int, now time.Time) (bool, error) {
	current, err := r.ledger.AvailableAt(ctx, lotID, now)
	if err != nil {
		return false, err
	}
	last, seen, err := r.notifier.LastBroadcast(ctx, lotID)
	if err != nil {
		return false, err
	}
	if seen && last == current.AvailableSpots {
		return false, nil
	}

	update := domain.AvailabilityUpdate{
		EventID:          uuid.NewString(),
		LotID:            lotID,
		CurrentAvailable: current.AvailableSpots,
		Reason:           domain.ReasonReconciled,
		Timestamp:        now,
	}
	if err := r.notifier.Publish(ctx, update); err != nil {
		return false, err
	}
	return true, nil
}
