package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"akvilon/internal/akv"
	"akvilon/internal/api"
	"akvilon/internal/api/middleware"
	"akvilon/internal/oracle"
	"akvilon/internal/tasks"
	"akvilon/internal/worker"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

var App *akv.App
var Jobs *akv.AppJobs

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func keyFunc(c *gin.Context) string {
	return c.ClientIP()
}

func errorHandler(c *gin.Context, info ratelimit.Info) {
	c.String(429, "Too many requests. Try again in "+time.Until(info.ResetTime).String())
}

func ApiInit() { // Run Api Server
	ConfigLoad()
	App = akv.Init()
	router := gin.Default()
	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false
	// This makes it so each ip can only make 100 requests per second
	store := ratelimit.RedisStore(&ratelimit.RedisOptions{
		RedisClient: redis.NewClient(&redis.Options{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       1,
		}),
		Rate:  time.Second,
		Limit: 100,
	})
	mw := ratelimit.RateLimiter(store, &ratelimit.Options{
		ErrorHandler: errorHandler,
		KeyFunc:      keyFunc,
	})
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://0.0.0.0:3000",
			"http://localhost:3000",
		},
		AllowHeaders:  []string{"Origin", "Access-Control-Allow-Origin", "Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With"},
		ExposeHeaders: []string{"Content-Length"},
		AllowMethods:  []string{"GET, POST, OPTIONS, PUT, DELETE"},
		MaxAge:        24 * time.Hour,
	}))
	router.Use(func(c *gin.Context) {
		c.Set("app", App)
	})
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/ws", mw, wsHandler)
	router.GET("/ws/", mw, wsHandler)
	core := router.Group("/core/")
	{
		core.GET("/gasPrice", mw, api.GetGasPrice)
		core.GET("/gasPrice/", mw, api.GetGasPrice)
		core.GET("/balance/:address", mw, api.GetBalance)
		core.GET("/balance/:address/", mw, api.GetBalance)
		core.GET("/news", mw, api.ListNews)
		core.GET("/news/", mw, api.ListNews)
		core.GET("/coins", mw, api.ListCoins)
		core.GET("/coins/", mw, api.ListCoins)
	}
	auth := router.Group("/auth/")
	{
		auth.POST("/register", mw, api.Register)
		auth.POST("/register/", mw, api.Register)
		auth.POST("/login", mw, api.Login)
		auth.POST("/login/", mw, api.Login)
		auth.POST("/reset", mw, api.ResetRequest)
		auth.POST("/reset/", mw, api.ResetRequest)
		auth.POST("/reset/check", mw, api.ResetCheck)
		auth.POST("/reset/check/", mw, api.ResetCheck)
		auth.POST("/reset/confirm", mw, api.ResetConfirm)
		auth.POST("/reset/confirm/", mw, api.ResetConfirm)
		auth.GET("/nonce/:address", mw, api.Nonce)
		auth.GET("/nonce/:address/", mw, api.Nonce)
	}
	users := router.Group("/users/").Use(middleware.Auth())
	{
		users.GET("/me", mw, api.GetUser)
		users.GET("/me/", mw, api.GetUser)
		users.GET("/tx", mw, api.GetTransactionsList)
		users.GET("/tx/", mw, api.GetTransactionsList)
		users.GET("/partners", mw, api.GetPartners)
		users.GET("/partners/", mw, api.GetPartners)
		users.GET("/upline", mw, api.GetUpline)
		users.GET("/upline/", mw, api.GetUpline)
		users.GET("/ido", mw, api.GetMyIdoStats)
		users.GET("/ido/", mw, api.GetMyIdoStats)
		users.POST("/wallet", mw, api.BindWallet)
		users.POST("/wallet/", mw, api.BindWallet)
		users.GET("/wallet", mw, api.GetWallet)
		users.GET("/wallet/", mw, api.GetWallet)
	}
	tx := router.Group("/tx/").Use(middleware.Auth())
	{
		tx.POST("/withdraw", mw, api.Withdraw)
		tx.POST("/withdraw/", mw, api.Withdraw)
		tx.POST("/withdrawRef", mw, api.WithdrawReferral)
		tx.POST("/withdrawRef/", mw, api.WithdrawReferral)
		tx.POST("/fillFromRef", mw, api.FillFromReferral)
		tx.POST("/fillFromRef/", mw, api.FillFromReferral)
	}
	ido := router.Group("/ido/").Use(middleware.Auth())
	{
		ido.GET("/", mw, api.ListIdos)
		ido.GET("/:id", mw, api.GetIdo)
		ido.GET("/:id/", mw, api.GetIdo)
		ido.POST("/:id/participate", mw, api.ParticipateIdo)
		ido.POST("/:id/participate/", mw, api.ParticipateIdo)
		ido.POST("/:id/refund", mw, api.RefundIdo)
		ido.POST("/:id/refund/", mw, api.RefundIdo)
		ido.POST("/:id/queue", mw, api.JoinIdoQueue)
		ido.POST("/:id/queue/", mw, api.JoinIdoQueue)
		ido.DELETE("/:id/queue", mw, api.LeaveIdoQueue)
		ido.DELETE("/:id/queue/", mw, api.LeaveIdoQueue)
		ido.GET("/:id/queue", mw, api.GetIdoQueue)
		ido.GET("/:id/queue/", mw, api.GetIdoQueue)
		ido.POST("/:id/claim", mw, api.ClaimIdoTokens)
		ido.POST("/:id/claim/", mw, api.ClaimIdoTokens)
		ido.GET("/:id/claim", mw, api.CheckIdoClaim)
		ido.GET("/:id/claim/", mw, api.CheckIdoClaim)
	}
	admin := router.Group("/admin/").Use(middleware.Auth(), middleware.Admin())
	{
		admin.GET("/stats", mw, api.GetPlatformStats)
		admin.GET("/stats/", mw, api.GetPlatformStats)
		admin.GET("/reports", mw, api.GetIncomeReport)
		admin.GET("/reports/", mw, api.GetIncomeReport)
		admin.GET("/reports/monthly", mw, api.GetMonthlyIncome)
		admin.GET("/reports/monthly/", mw, api.GetMonthlyIncome)
		admin.GET("/users", mw, api.ListUsers)
		admin.GET("/users/", mw, api.ListUsers)
		admin.GET("/users/:id/ido", mw, api.GetUserIdoStats)
		admin.GET("/users/:id/ido/", mw, api.GetUserIdoStats)
		admin.GET("/users/:id/partners", mw, api.GetUserPartners)
		admin.GET("/users/:id/partners/", mw, api.GetUserPartners)
		admin.POST("/users/:id/permissions", mw, api.SetPermissions)
		admin.POST("/users/:id/permissions/", mw, api.SetPermissions)
		admin.GET("/vips", mw, api.ListVIPs)
		admin.GET("/vips/", mw, api.ListVIPs)
		admin.GET("/places", mw, api.ListPermanentPlaces)
		admin.GET("/places/", mw, api.ListPermanentPlaces)
		admin.GET("/wallets", mw, api.ListAdminWallets)
		admin.GET("/wallets/", mw, api.ListAdminWallets)
		admin.POST("/users/:id/vip", mw, api.SetVIP)
		admin.POST("/users/:id/vip/", mw, api.SetVIP)
		admin.DELETE("/users/:id/vip", mw, api.ClearVIP)
		admin.DELETE("/users/:id/vip/", mw, api.ClearVIP)
		admin.POST("/users/:id/place", mw, api.SetUserPermanentPlace)
		admin.POST("/users/:id/place/", mw, api.SetUserPermanentPlace)
		admin.DELETE("/users/:id/place", mw, api.ClearUserPermanentPlace)
		admin.DELETE("/users/:id/place/", mw, api.ClearUserPermanentPlace)
		admin.POST("/users/:id/invite", mw, api.SetCanInvite)
		admin.POST("/users/:id/invite/", mw, api.SetCanInvite)
		admin.POST("/deposit", mw, api.ApplyUserDeposit)
		admin.POST("/deposit/", mw, api.ApplyUserDeposit)
		admin.POST("/wallets/fill", mw, api.FillTokenWallet)
		admin.POST("/wallets/fill/", mw, api.FillTokenWallet)
		admin.POST("/ido", mw, api.CreateIdo)
		admin.POST("/ido/", mw, api.CreateIdo)
		admin.PUT("/ido/:id", mw, api.UpdateIdo)
		admin.PUT("/ido/:id/", mw, api.UpdateIdo)
		admin.DELETE("/ido/:id", mw, api.DeleteIdo)
		admin.DELETE("/ido/:id/", mw, api.DeleteIdo)
		admin.POST("/ido/:id/distribute", mw, api.TriggerDistribute)
		admin.POST("/ido/:id/distribute/", mw, api.TriggerDistribute)
		admin.POST("/ido/:id/participants", mw, api.AddParticipant)
		admin.POST("/ido/:id/participants/", mw, api.AddParticipant)
		admin.POST("/coins", mw, api.CreateCoin)
		admin.POST("/coins/", mw, api.CreateCoin)
		admin.POST("/news", mw, api.CreateNews)
		admin.POST("/news/", mw, api.CreateNews)
		admin.PUT("/news/:id", mw, api.UpdateNews)
		admin.PUT("/news/:id/", mw, api.UpdateNews)
		admin.DELETE("/news/:id", mw, api.DeleteNews)
		admin.DELETE("/news/:id/", mw, api.DeleteNews)
	}
	fmt.Println("[ Akvilon Backend is up and listening to :8000 ]")
	if err := router.Run(":8000"); err != nil {
		log.Fatal("Failed to run Akvilon Backend on :8000: ", err)
	}
}

// JobsInit runs the background worker: asynq server for the queued
// jobs plus the scheduler that enqueues them periodically.
func JobsInit() {
	ConfigLoad()
	Jobs = akv.InitJobs()

	handler := &tasks.Handler{
		Db:     Jobs.Db,
		Rdb:    Jobs.Rdb,
		Oracle: oracle.New(),
		Pool:   worker.NewPool(GlobalConfig.WorkerSpeed, GlobalConfig.WorkerQueue),
	}
	mux := tasks.NewMux(handler)

	if err := tasks.RegisterSchedules(Jobs.Sch); err != nil {
		log.Fatal("Failed to register schedules: ", err)
	}
	go func() {
		if err := Jobs.Sch.Run(); err != nil {
			log.Fatal("Scheduler failed: ", err)
		}
	}()

	fmt.Println("[ Akvilon Jobs worker is up ]")
	if err := Jobs.Aqs.Run(mux); err != nil {
		log.Fatal("Jobs worker failed: ", err)
	}
}

type wsSync struct {
	Target string            `json:"target"`
	User   akv.UserData      `json:"user"`
	Stats  akv.DownlineStats `json:"referral_stats"`
	Config akv.AppConfig     `json:"app_config"`
}

func syncPayload(app *akv.App, user akv.User) []byte {
	stats, err := akv.CollectDownlineStats(akv.DbChildLoader(app.Db), user.Id)
	if err != nil {
		stats = &akv.DownlineStats{}
	}
	data := wsSync{
		Target: "sync",
		User:   user.Data(),
		Stats:  *stats,
		Config: *akv.CurrentAppConfig,
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil
	}
	return jsonData
}

func wsHandler(c *gin.Context) {
	// Extract token from query
	token := c.DefaultQuery("token", "")
	user := akv.User{}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}
	userId, _, _, err := api.GetUserFromToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}
	// Upgrade Connection
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to set websocket upgrade: %+v", err)
		return
	}
	defer conn.Close()
	// Find User
	app := c.MustGet("app").(*akv.App)
	appConfigRaw, _ := app.Rdb.Get(c, "app_config").Result()
	if len(appConfigRaw) > 0 {
		_ = json.Unmarshal([]byte(appConfigRaw), &akv.CurrentAppConfig)
	}
	// Set a pong handler to update the connection's last pong time
	lastPong := time.Now()
	conn.SetPongHandler(func(string) error {
		lastPong = time.Now()
		return nil
	})
	pingPeriod := 3 * time.Second
	timeout := 9 * time.Second
	var mu sync.Mutex // Mutex to synchronize writes to the WebSocket connection
	res := app.Db.First(&user, userId)
	if res.RowsAffected != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}
	if jsonData := syncPayload(app, user); jsonData != nil {
		if err := conn.WriteMessage(websocket.TextMessage, jsonData); err != nil {
			fmt.Println("Socket: Failed to send data:", err)
			return
		}
	}
	// Balance change notifications land on this channel
	go func() {
		pubsub := app.Rdb.Subscribe(c, fmt.Sprintf("balance_ch@%d", user.Id))
		defer pubsub.Close()

		ch := pubsub.Channel()
		for range ch {
			_ = app.Db.First(&user, userId)
			jsonData := syncPayload(app, user)
			if jsonData == nil {
				continue
			}
			mu.Lock()
			if err := conn.WriteMessage(websocket.TextMessage, jsonData); err != nil {
				log.Println("Socket: Failed to send data:", err)
				mu.Unlock()
				_ = conn.Close()
				return
			}
			mu.Unlock()
		}
	}()
	// Start listening for commands via ws
	go func() {
		defer conn.Close()

		for {
			messageType, p, err := conn.ReadMessage()
			if err != nil {
				log.Println(err)
				return
			}
			switch messageType {
			case websocket.TextMessage:
				message := string(p)
				if message == "sync" {
					_ = app.Db.First(&user, userId)
					jsonData := syncPayload(app, user)
					if jsonData == nil {
						continue
					}
					mu.Lock()
					if err := conn.WriteMessage(websocket.TextMessage, jsonData); err != nil {
						fmt.Println("Socket: Failed to send data:", err)
						mu.Unlock()
						return
					}
					mu.Unlock()
				}
			default:
				fmt.Println("Socket: Unhandled message type:", messageType)
			}
		}
	}()
	for {
		if time.Since(lastPong) > timeout {
			log.Println("Socket: Client did not respond to ping, closing connection")
			return
		}
		mu.Lock()
		if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
			log.Println("Socket: Failed to send ping:", err)
			mu.Unlock()
			return
		}
		mu.Unlock()
		time.Sleep(pingPeriod)
	}
}
