package factories

// APIKeys holds API credentials for all supported service providers.
// Pass to SettingsConfig.InjectAPIKeys after loading from JSON so that
// secrets are never stored in config files.
type APIKeys struct {
	Deepgram   string // Used for Deepgram capture and synthesis.
	OpenAI     string // Used for the OpenAI assistant and synthesizer.
	Together   string
	Groq       string
	DeepSeek   string
	OpenRouter string
	Fireworks  string
	Cerebras   string
	XAI        string
	Mistral    string
	Perplexity string
	ElevenLabs string
	Cartesia   string
}

// APIKeysFromEnv reads every provider key from its conventional variable.
func APIKeysFromEnv() APIKeys {
	return APIKeys{
		Deepgram:   getEnv("DEEPGRAM_API_KEY", ""),
		OpenAI:     getEnv("OPENAI_API_KEY", ""),
		Together:   getEnv("TOGETHER_API_KEY", ""),
		Groq:       getEnv("GROQ_API_KEY", ""),
		DeepSeek:   getEnv("DEEPSEEK_API_KEY", ""),
		OpenRouter: getEnv("OPENROUTER_API_KEY", ""),
		Fireworks:  getEnv("FIREWORKS_API_KEY", ""),
		Cerebras:   getEnv("CEREBRAS_API_KEY", ""),
		XAI:        getEnv("XAI_API_KEY", ""),
		Mistral:    getEnv("MISTRAL_API_KEY", ""),
		Perplexity: getEnv("PERPLEXITY_API_KEY", ""),
		ElevenLabs: getEnv("ELEVENLABS_API_KEY", ""),
		Cartesia:   getEnv("CARTESIA_API_KEY", ""),
	}
}

// InjectAPIKeys fills every configured provider whose key is still empty. Keys already present
// in the settings file win.
func (c *SettingsConfig) InjectAPIKeys(keys APIKeys) {
	injectAssistantKeys(&c.Assistant, keys)
	injectSynthesizerKeys(&c.Synthesizer, keys)
	if c.Capture.DeepgramConfig != nil && c.Capture.DeepgramConfig.APIKey == "" {
		c.Capture.DeepgramConfig.APIKey = keys.Deepgram
	}
}

// Endpoints override the backend URLs. Empty fields leave the settings untouched.
type Endpoints struct {
	ChatURL   string
	SpeechURL string
	UsersURL  string
}

func EndpointsFromEnv() Endpoints {
	return Endpoints{
		ChatURL:   getEnv("CONVOKIT_CHAT_URL", ""),
		SpeechURL: getEnv("CONVOKIT_SPEECH_URL", ""),
		UsersURL:  getEnv("CONVOKIT_USERS_URL", ""),
	}
}

func (c *SettingsConfig) InjectEndpoints(e Endpoints) {
	if e.ChatURL != "" {
		c.Backend.ChatURL = e.ChatURL
	}
	if e.SpeechURL != "" {
		c.Backend.SpeechURL = e.SpeechURL
	}
	if e.UsersURL != "" {
		c.Backend.UsersURL = e.UsersURL
	}
}
