package bridge

import "time"

type Config struct {
	Addr         string        `json:"addr"`
	Path         string        `json:"path"`
	ClientBuffer int           `json:"client_buffer"`
	WriteTimeout time.Duration `json:"write_timeout"`

	// AllowedOrigins lists browser origins accepted besides the server's own host. "*" accepts any.
	AllowedOrigins []string `json:"allowed_origins"`

	// AllowFilePaths lets an attach intent name a file on this machine instead of carrying its bytes.
	AllowFilePaths bool `json:"allow_file_paths"`
}

func DefaultConfig() Config {
	return Config{
		Addr:         "127.0.0.1:19304",
		Path:         "/",
		ClientBuffer: 256,
		WriteTimeout: 5 * time.Second,
	}
}
