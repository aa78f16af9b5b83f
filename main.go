package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"parksmart/internal/api"
	"parksmart/internal/api/handler"
	"parksmart/internal/api/middleware"
	"parksmart/internal/cache"
	"parksmart/internal/config"
	"parksmart/internal/iot"
	"parksmart/internal/repository"
	"parksmart/internal/repository/memory"
	"parksmart/internal/repository/postgresql"
	"parksmart/internal/service"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsgo_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type repositories struct {
	users        repository.UserRepository
	lots         repository.ParkingLotRepository
	reservations repository.ReservationRepository
	gateEvents   repository.GateEventRepository
}

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	log.Println("Cấu hình đã được tải.")

	// 2. Storage
	repos, db := setupStorage(cfg)
	if db != nil {
		defer db.Close()
	}

	// 3. Broadcast cache: Redis nếu được cấu hình, ngược lại trong bộ nhớ
	var broadcastCache cache.BroadcastCache = cache.NewMemoryBroadcastCache()
	if cfg.RedisAddr != "" {
		redisClient := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword)
		defer redisClient.Close()
		broadcastCache = cache.NewRedisBroadcastCache(redisClient)
	}

	// 4. Real-time fan-out
	hubCtx, cancelHub := context.WithCancel(context.Background())
	webSocketManager := handler.NewWebSocketManager()
	go webSocketManager.Start(hubCtx)
	log.Println("WebSocket Manager đã được khởi động.")

	notifiers := service.MultiNotifier{webSocketManager}

	// 5. AWS (tùy chọn)
	var (
		sqsClient       *sqs.Client
		plateRecognizer service.PlateRecognizer
	)
	if cfg.AWSEnabled() {
		awsSDKCfg, err := awsgo_config.LoadDefaultConfig(context.TODO(), awsgo_config.WithRegion(cfg.AWSRegion))
		if err != nil {
			log.Fatalf("Không thể tải AWS SDK config: %v", err)
		}
		log.Println("Đã tải AWS SDK config thành công cho region:", cfg.AWSRegion)

		if cfg.SQSGateQueueURL != "" {
			sqsClient = sqs.NewFromConfig(awsSDKCfg)
		}
		if cfg.IoTAvailabilityTopicPrefix != "" {
			iotDataPlaneClient := iotdataplane.NewFromConfig(awsSDKCfg, func(o *iotdataplane.Options) {
				if cfg.IoTMQTTEndpoint != "" {
					endpointWithSchema := cfg.IoTMQTTEndpoint
					if !strings.HasPrefix(endpointWithSchema, "https://") && !strings.HasPrefix(endpointWithSchema, "http://") {
						endpointWithSchema = "https://" + endpointWithSchema
					}
					o.BaseEndpoint = aws.String(endpointWithSchema)
				}
			})
			notifiers = append(notifiers, iot.NewAvailabilityPublisher(iotDataPlaneClient, cfg.IoTAvailabilityTopicPrefix))
			log.Println("Đã khởi tạo IoT Data Plane client cho bảng hiển thị số chỗ trống.")
		}
		if cfg.LPREnabled {
			plateRecognizer = service.NewLPRService(rekognition.NewFromConfig(awsSDKCfg))
			log.Println("Đã khởi tạo Rekognition client cho LPR.")
		}
	} else {
		log.Println("AWS chưa được cấu hình: tắt SQS consumer, IoT publisher và LPR.")
	}

	// 6. Core services
	notifier := service.NewTrackingNotifier(notifiers, broadcastCache)
	ledger := service.NewCapacityLedger(repos.lots, repos.reservations)
	availabilityService := service.NewAvailabilityService(
		repos.lots, repos.reservations, ledger,
		service.NewLotLocker(cfg.LotLockTimeout),
		notifier, service.SystemClock{},
		service.BookingPolicy{
			MaxAdvanceBooking:      cfg.MaxAdvanceBooking,
			MaxReservationDuration: cfg.MaxReservationDuration,
			Location:               cfg.Location,
		},
	)
	parkingService := service.NewParkingService(repos.lots)
	gateService := service.NewGateService(availabilityService, repos.reservations, repos.gateEvents, plateRecognizer)
	authService := service.NewAuthService(repos.users, cfg.JWTSecret, cfg.JWTExpirationHours)
	if cfg.AdminUsername != "" {
		if err := authService.EnsureAdmin(context.Background(), cfg.AdminUsername, cfg.AdminPassword); err != nil {
			log.Fatalf("Không thể tạo tài khoản admin: %v", err)
		}
	}

	// 7. Scheduled reconciler
	reconciler := service.NewReconciler(cfg.ReconcileSchedule, repos.lots, ledger, notifier, service.SystemClock{})
	if err := reconciler.Schedule("@every 1m", "cleanup gate events", gateService.CleanupExpiredEvents); err != nil {
		log.Fatalf("%v", err)
	}
	if err := reconciler.Start(); err != nil {
		log.Fatalf("Không thể khởi động reconciler: %v", err)
	}

	// 8. SQS gate consumer
	var wg sync.WaitGroup
	consumerCtx, cancelConsumer := context.WithCancel(context.Background())
	if sqsClient == nil {
		log.Println("CẢNH BÁO: SQS_GATE_QUEUE_URL chưa được cấu hình. SQS Consumer sẽ không chạy.")
	} else {
		sqsConsumer := iot.NewSQSConsumer(sqsClient, cfg.SQSGateQueueURL, gateService)
		wg.Add(1)
		go func() {
			defer wg.Done()
			sqsConsumer.Start(consumerCtx)
			log.Println("SQS Consumer đã dừng.")
		}()
	}

	// 9. HTTP
	router := api.SetupRouter(api.RouterDeps{
		AuthService:         authService,
		ParkingService:      parkingService,
		AvailabilityService: availabilityService,
		GateService:         gateService,
		PlateRecognizer:     plateRecognizer,
		AuthMiddleware:      middleware.NewAuthMiddleware(authService),
		WebSocketManager:    webSocketManager,
		Location:            cfg.Location,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		log.Printf("Server đang chạy trên port %s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Lỗi ListenAndServe(): %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Đang tắt server...")

	cancelConsumer()
	reconciler.Stop()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server buộc phải tắt: %v", err)
	}
	cancelHub()

	if sqsClient != nil {
		log.Println("Đang chờ SQS consumer dừng (tối đa 5 giây)...")
		c := make(chan struct{})
		go func() {
			defer close(c)
			wg.Wait()
		}()
		select {
		case <-c:
			log.Println("SQS consumer đã dừng hoàn toàn.")
		case <-time.After(5 * time.Second):
			log.Println("SQS consumer không dừng trong thời gian chờ.")
		}
	}

	log.Println("Server đã tắt.")
}

func setupStorage(cfg *config.Config) (repositories, *sql.DB) {
	if cfg.StorageDriver == "memory" {
		log.Println("Sử dụng storage trong bộ nhớ (dữ liệu mất khi tắt server).")
		return repositories{
			users:        memory.NewUserRepository(),
			lots:         memory.NewParkingLotRepository(),
			reservations: memory.NewReservationRepository(),
			gateEvents:   memory.NewGateEventRepository(),
		}, nil
	}

	db, err := postgresql.NewDB(cfg)
	if err != nil {
		log.Fatalf("Không thể kết nối database: %v", err)
	}
	log.Println("Đã kết nối database thành công!")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := postgresql.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("%v", err)
	}

	return repositories{
		users:        postgresql.NewPgUserRepository(db),
		lots:         postgresql.NewPgParkingLotRepository(db),
		reservations: postgresql.NewPgReservationRepository(db),
		gateEvents:   postgresql.NewPgGateEventRepository(db),
	}, db
}
