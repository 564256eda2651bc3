// Package api contains all endpoints available
package api

import (
	"fmt"
	"time"

	"mediavault/media-api/aws"
	"mediavault/media-api/db"
	"mediavault/media-api/internal/service"
	"mediavault/media-api/pkg/middleware"
	"mediavault/media-api/pkg/security"

	cache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	ginzap "github.com/gin-contrib/zap"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
)

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"
)

var store = persist.NewMemoryStore(time.Minute)

type API struct {
	DB      *gorm.DB
	Router  *gin.Engine
	Argon   *security.ArgonHash
	S3      *aws.S3Client
	Jobs    *service.JobQueue
	Backups *service.BackupRunner
}

func NewRouter() (*API, error) {
	a := &API{
		Jobs: service.NewJobQueue(),
	}

	database, err := db.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database, %w", err)
	}
	a.DB = database

	makeLogger()

	router := gin.New()
	a.Router = router

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:5173"},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "Range"},
			ExposeHeaders:    []string{"Content-Length", "Content-Range", "Accept-Ranges"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("userID"); v != "" {
					fields = append(fields, zap.String("userID", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true
	a.Router.MaxMultipartMemory = 5 << 20

	jwt := middleware.NewJWTMiddleware(database)
	maxUploadSize := viper.GetInt64("upload.max_size")

	main := router.Group("/api")
	{
		// HEAD /api/heartbeat 		-> Used to check if the server is alive
		main.HEAD("/heartbeat", a.Heartbeat)
	}

	users := main.Group("/users", middleware.BodySizeLimiter(1<<20))
	{
		// GET /api/users		-> Returns the logged in user
		users.GET("", jwt, a.UserFetch)

		// POST /api/users 		-> Registers a new user
		users.POST("", a.UserRegister)

		// POST /api/users/login 	-> Logs in a user and returns a JWT token
		users.POST("/login", a.UserLogin)
	}

	files := main.Group("/files")
	{
		// GET /api/files/:id 		-> Streams a file, honoring Range
		files.GET("/:id", a.FileServe)

		// GET /api/files 		-> Returns a user's files in bulk
		files.GET("", jwt, a.FileFetchBulk)

		// GET /api/files/search	-> Searches a user's files
		files.GET("/search", jwt, a.FileSearch)

		// POST /api/files         	-> Uploads a new file and stores it in the database
		files.POST("", jwt, middleware.BodySizeLimiter(maxUploadSize), a.FileUpload)

		// PUT /api/files/:id		-> Edits a file's metadata
		files.PUT("/:id", jwt, middleware.BodySizeLimiter(1<<20), a.FileEdit)

		// DELETE /api/files/:id	-> Deletes a file owned by a user
		files.DELETE("/:id", jwt, a.FileDelete)
	}

	tags := main.Group("/tags", middleware.BodySizeLimiter(1<<20))
	{
		// GET /api/tags		-> Lists all tags
		tags.GET("", cacheFor(30), a.TagList)

		// POST /api/tags		-> Creates (or returns) a tag by name
		tags.POST("", jwt, a.TagCreate)

		// DELETE /api/tags/:id		-> Deletes a tag (admin)
		tags.DELETE("/:id", jwt, a.TagDelete)
	}

	categories := main.Group("/categories")
	{
		// GET /api/categories		-> Lists the reference categories
		categories.GET("", cacheFor(300), a.CategoryList)
	}

	groups := main.Group("/groups", jwt, middleware.BodySizeLimiter(1<<20))
	{
		// GET /api/groups		-> Lists groups the user belongs to
		groups.GET("", a.GroupList)

		// POST /api/groups		-> Creates a group
		groups.POST("", a.GroupCreate)

		// POST /api/groups/:id/members	-> Adds or updates a member
		groups.POST("/:id/members", a.GroupMemberAdd)

		// DELETE /api/groups/:id/members/:userID
		groups.DELETE("/:id/members/:userID", a.GroupMemberRemove)

		// POST /api/groups/:id/files	-> Links a file into a group
		groups.POST("/:id/files", a.GroupFileAdd)
	}

	backups := main.Group("/backups", jwt)
	{
		// POST /api/backups		-> Queues a backup job
		backups.POST("", a.BackupCreate)

		// POST /api/backups/restore	-> Queues a restore job
		backups.POST("/restore", middleware.BodySizeLimiter(maxUploadSize), a.BackupRestore)

		// GET /api/backups/jobs/:id	-> Polls a backup/restore job
		backups.GET("/jobs/:id", a.BackupStatus)

		// GET /api/backups/download	-> Streams a finished container
		backups.GET("/download", a.BackupDownload)
	}

	a.Argon = security.New()

	s3, err := aws.NewS3()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 client, %w", err)
	}
	a.S3 = s3

	a.Backups = service.NewBackupRunner(database, s3, a.Jobs)
	a.Jobs.StartWorkerPool()

	service.BackupSweep(
		viper.GetDuration("backup.sweep_interval"),
		viper.GetDuration("backup.max_age"),
		s3,
	)

	return a, nil
}

func makeLogger() {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + t.Format("15:04:05.000") + reset)
	}
	cfg.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + ec.TrimmedPath() + reset)
	}

	cfg.DisableStacktrace = true

	log, _ := cfg.Build()
	zap.ReplaceGlobals(log)
}

func cacheFor(sec int) gin.HandlerFunc {
	return cache.CacheByRequestURI(store, time.Second*time.Duration(sec))
}
