package config

const (
	defaultLibraryDir  = "~/tubevault"
	defaultDatabaseDir = "~/.local/share/tubevault"
	defaultLogDir      = "~/.local/share/tubevault/logs"

	defaultDownloaderBinary  = "yt-dlp"
	defaultDownloaderFreeGiB = 2

	defaultFFmpegBinary        = "ffmpeg"
	defaultProbeTimeoutSeconds = 120

	defaultPipBinary     = "pip3"
	defaultUpdatePackage = "yt-dlp"

	defaultReconcileIntervalMS  = 250
	defaultSubprocessIntervalMS = 100

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir:  defaultLibraryDir,
			DatabaseDir: defaultDatabaseDir,
			LogDir:      defaultLogDir,
		},
		Downloader: Downloader{
			Binary:         defaultDownloaderBinary,
			WriteMetadata:  true,
			WriteThumbnail: true,
			MinFreeGiB:     defaultDownloaderFreeGiB,
		},
		FFmpeg: FFmpeg{
			Binary:              defaultFFmpegBinary,
			ProbeTimeoutSeconds: defaultProbeTimeoutSeconds,
		},
		Update: Update{
			PipBinary: defaultPipBinary,
			Package:   defaultUpdatePackage,
		},
		Operations: Operations{
			ReconcileIntervalMS:  defaultReconcileIntervalMS,
			SubprocessIntervalMS: defaultSubprocessIntervalMS,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
