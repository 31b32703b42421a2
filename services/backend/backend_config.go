package backend

import "time"

// Config points the client at the three backend processes.
type Config struct {
	ChatURL   string        `json:"chat_url"`
	SpeechURL string        `json:"speech_url"`
	UsersURL  string        `json:"users_url"`
	Timeout   time.Duration `json:"timeout"`
}

func DefaultConfig() Config {
	return Config{
		ChatURL:   "http://127.0.0.1:8000",
		SpeechURL: "http://127.0.0.1:5000",
		UsersURL:  "http://localhost:3001/users",
		Timeout:   60 * time.Second,
	}
}
