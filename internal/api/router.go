package api

import (
	"log"
	"parksmart/internal/api/handler"
	"parksmart/internal/api/middleware"
	"parksmart/internal/domain"
	"parksmart/internal/service"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type RouterDeps struct {
	AuthService         *service.AuthService
	ParkingService      *service.ParkingService
	AvailabilityService *service.AvailabilityService
	GateService         *service.GateService
	PlateRecognizer     service.PlateRecognizer // nil: tắt API LPR
	AuthMiddleware      *middleware.AuthMiddleware
	WebSocketManager    *handler.WebSocketManager
	Location            *time.Location
}

// registerValidators đăng ký tag `vehicle_class` cho binding của gin.
func registerValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		log.Println("Router: validator engine không phải go-playground/validator, bỏ qua đăng ký tag vehicle_class")
		return
	}
	err := v.RegisterValidation("vehicle_class", func(fl validator.FieldLevel) bool {
		return domain.VehicleClass(fl.Field().String()).Valid()
	})
	if err != nil {
		log.Printf("Router: Lỗi đăng ký validator vehicle_class: %v", err)
	}
}

func SetupRouter(deps RouterDeps) *gin.Engine {
	registerValidators()

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Retry-After")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// WebSocket endpoint (không cần auth cho real-time connection)
	if deps.WebSocketManager != nil {
		wsHandler := handler.NewWebSocketHandler(deps.WebSocketManager)
		r.GET("/ws", wsHandler.HandleWebSocket)
	}

	authHandler := handler.NewAuthHandler(deps.AuthService)
	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
	}

	authMw := deps.AuthMiddleware
	v1 := r.Group("/api/v1")
	v1.Use(authMw.Authenticate())
	{
		lotH := handler.NewParkingLotHandler(deps.ParkingService, deps.AvailabilityService, deps.Location)
		lotRoutes := v1.Group("/parking-lots")
		{
			lotRoutes.POST("", authMw.AuthorizeRole(domain.RoleAdmin), lotH.CreateParkingLot)
			lotRoutes.GET("", lotH.GetAllParkingLots)
			lotRoutes.GET("/:id", lotH.GetParkingLotByID)
			lotRoutes.PATCH("/:id/open", authMw.AuthorizeRole(domain.RoleAdmin), lotH.SetLotOpen)
			lotRoutes.GET("/:id/availability", lotH.GetAvailability)
			lotRoutes.GET("/:id/availability/hourly", lotH.GetHourlyAvailability)
		}

		resH := handler.NewReservationHandler(deps.AvailabilityService)
		resRoutes := v1.Group("/reservations")
		{
			resRoutes.POST("", resH.CreateReservation)
			resRoutes.GET("/mine", resH.ListMyReservations)
			resRoutes.GET("/:id", resH.GetReservation)
			resRoutes.POST("/:id/cancel", resH.CancelReservation)
			resRoutes.POST("/:id/check-in", resH.CheckIn)
			resRoutes.POST("/:id/complete", authMw.AuthorizeRole(domain.RoleAdmin), resH.CompleteReservation)
		}

		if deps.GateService != nil {
			gateH := handler.NewGateEventHandler(deps.GateService)
			v1.POST("/gate-events", authMw.AuthorizeRole(domain.RoleAdmin), gateH.SubmitGateEvent)
		}

		if deps.PlateRecognizer != nil {
			lprH := handler.NewLPRHandler(deps.PlateRecognizer)
			v1.POST("/lpr/process-image", authMw.AuthorizeRole(domain.RoleAdmin), lprH.ProcessImage)
		}
	}
	return r
}
