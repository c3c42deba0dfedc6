package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"wanvideo/internal/fetch"
	"wanvideo/internal/handler"
	"wanvideo/internal/httpapi"
	"wanvideo/internal/model"
	"wanvideo/internal/pkg/logger"
	"wanvideo/internal/pkg/shutdown"
	"wanvideo/internal/upload"
	"wanvideo/internal/video"
	"wanvideo/internal/worker"
	"wanvideo/internal/worker/util"
)

func main() {
	_ = godotenv.Load()

	testInput := flag.String("test_input", "", "run a single job from a literal JSON payload and print its events")
	flag.Parse()

	log := logger.NewDefault()

	modelPath := util.Env("MODEL_PATH", model.DefaultCheckpointDir)
	runtimeURL := util.Env("MODEL_RUNTIME_BASEURL", "http://127.0.0.1:8000")

	provider := model.NewProvider(model.NewClient(runtimeURL), modelPath)

	uploader, err := upload.NewFromEnv(context.Background())
	if err != nil {
		log.LogFatal("failed to build uploader", err)
	}

	h := handler.New(handler.Deps{
		Fetcher:    fetch.New(),
		Models:     provider,
		Encoder:    video.NewFFmpegEncoder(util.Env("FFMPEG_PATH", "ffmpeg")),
		Uploader:   uploader,
		ScratchDir: util.Env("SCRATCH_DIR", os.TempDir()),
		Log:        log,
	})

	if *testInput != "" {
		runTest(h, *testInput)
		return
	}

	runService(h, provider, uploader, log)
}

// runTest executes one job locally and prints each emitted event.
func runTest(h *handler.Handler, payload string) {
	job, err := handler.ParseJob([]byte(payload))
	if err != nil {
		fmt.Println("Error: invalid JSON in test_input")
		os.Exit(1)
	}

	h.Process(context.Background(), job, func(ev handler.Event) {
		out, err := json.MarshalIndent(ev, "", "  ")
		if err != nil {
			fmt.Println("Error: failed to encode event:", err)
			return
		}
		fmt.Println(string(out))
	})
}

func runService(h *handler.Handler, provider *model.Provider, uploader upload.Uploader, log *logger.Logger) {
	redisAddr := util.MustEnv("REDIS_ADDR")
	queueName := util.Env("JOB_QUEUE_NAME", "wanvideo:jobs")
	eventTTL := util.DurationEnv("JOB_EVENTS_TTL", time.Hour)
	healthAddr := util.Env("HEALTH_ADDR", ":8080")

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})

	mgr := shutdown.NewManager(log, 30*time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	mgr.RegisterSimple("worker", cancel)
	mgr.Register("redis", func(context.Context) error { return rdb.Close() })

	srv := &http.Server{
		Addr: healthAddr,
		Handler: httpapi.NewRouter(httpapi.Deps{
			RDB:      rdb,
			Models:   provider,
			Uploader: uploader,
			Log:      log,
		}),
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("health server failed", "error", err.Error())
		}
	}()
	mgr.Register("health server", srv.Shutdown)

	go func() {
		err := worker.Run(ctx, worker.Deps{
			RDB:       rdb,
			Handler:   h,
			QueueName: queueName,
			EventTTL:  eventTTL,
			Log:       log,
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("worker stopped", "error", err.Error())
		}
	}()

	log.Info("wanvideo worker started",
		"queue", queueName,
		"upload_provider", uploader.Provider(),
		"health_addr", healthAddr,
	)

	mgr.Wait()
}
