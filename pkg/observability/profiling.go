package observability

import (
	"os"
	"runtime"

	pyroscope "github.com/grafana/pyroscope-go"

	"media-service/pkg/config"
	"media-service/pkg/logger"
)

// StartProfiling 按配置接入Pyroscope持续剖析，未启用时返回nil
func StartProfiling(cfg config.ProfilingConfig) *pyroscope.Profiler {
	if !cfg.Enabled || cfg.ServerAddress == "" {
		return nil
	}

	appName := cfg.AppName
	if appName == "" {
		appName = "media-service"
	}

	runtime.SetMutexProfileFraction(5)
	runtime.SetBlockProfileRate(5)

	hostname, _ := os.Hostname()
	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: appName,
		ServerAddress:   cfg.ServerAddress,
		Tags:            map[string]string{"hostname": hostname},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
			pyroscope.ProfileMutexCount,
			pyroscope.ProfileMutexDuration,
			pyroscope.ProfileBlockCount,
			pyroscope.ProfileBlockDuration,
		},
	})
	if err != nil {
		logger.Warnf("start pyroscope failed address=%s error=%s", cfg.ServerAddress, err.Error())
		return nil
	}

	logger.Infof("Continuous profiling enabled address=%s app=%s", cfg.ServerAddress, appName)
	return profiler
}

// StopProfiling 停止剖析器，profiler为nil时为no-op
func StopProfiling(profiler *pyroscope.Profiler) {
	if profiler == nil {
		return
	}
	if err := profiler.Stop(); err != nil {
		logger.Warnf("stop pyroscope failed error=%s", err.Error())
	}
}
