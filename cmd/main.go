// cmd/main.go - 항해 컨트롤러 진입점
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"boat-navigator/internal/config"
	"boat-navigator/internal/di"
	"boat-navigator/internal/utils"
)

func main() {
	// 설정 로드
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}
	utils.SetupLogger(cfg.LogLevel)

	// DI 컨테이너 생성
	container, err := di.NewContainer(cfg)
	if err != nil {
		utils.Logger.Fatalf("Failed to create DI container: %v", err)
	}
	defer container.Cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := container.NavigatorService.Start(ctx, true); err != nil {
		container.Logger.Fatalf("Failed to start navigator service: %v", err)
	}

	// 시작 완료 로그
	container.Logger.Infof("🎯 Boat navigator %s started", cfg.VehicleID)
	container.Logger.Infof("📊 Services initialized:")
	container.Logger.Infof("   ✅ Actuator (%s)", cfg.ActuatorMode)
	container.Logger.Infof("   ✅ Message Publisher")
	container.Logger.Infof("   ✅ Control Loop")
	container.Logger.Infof("   ✅ HTTP API %s", cfg.HTTPAddr)
	if cfg.RedisEnabled {
		container.Logger.Infof("   ✅ Cache Service")
	}
	if cfg.DBEnabled {
		container.Logger.Infof("   ✅ Telemetry Database")
	}

	// 우아한 종료 처리
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	container.Logger.Infof("🛑 Shutdown signal received")
	cancel()

	// 루프가 모터를 세우고 재개 인덱스를 저장할 때까지 대기
	if err := container.NavigatorService.Wait(); err != nil {
		container.Logger.Errorf("control loop exited with error: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := container.NavigatorService.Stop(shutdownCtx); err != nil {
		container.Logger.Errorf("http shutdown failed: %v", err)
	}

	container.Logger.Infof("✅ Boat navigator shutdown completed")
}
