package main

type ServeCmd struct {
	HttpAddr string `arg:"--http-addr" help:"address of the cache server"`
}

type FetchCmd struct {
	Name      string `arg:"positional,required" help:"package name"`
	Version   string `arg:"positional,required" help:"package version"`
	Signature bool   `arg:"--signature" help:"also fetch the signature archive"`
}

type PruneCmd struct{}

type Arguments struct {
	Serve    *ServeCmd `arg:"subcommand:serve" help:"run the cache server"`
	Fetch    *FetchCmd `arg:"subcommand:fetch" help:"download a package archive into the cache"`
	Prune    *PruneCmd `arg:"subcommand:prune" help:"run the cache cleanup and exit"`
	Config   string    `arg:"--config" help:"path of a TOML configuration file"`
	Upstream string    `arg:"--upstream" help:"base URL of the upstream archive gallery"`
	CacheDir string    `arg:"--cache-dir" help:"cache directory"`
	Capacity int       `arg:"--capacity" help:"maximum number of distinct packages retained, 0 disables caching" default:"-1"`
	Version  bool      `arg:"-v" help:"show version and exit"`
	LogLevel string    `arg:"--log-level" help:"set the log level" default:"info" valid:"debug,info,warn,error,fatal,panic"`
}

var version string
