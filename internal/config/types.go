package config

// holds server configuration loaded from the environment
type Config struct {
	// absolute path all file reads and writes are confined to
	WorkspaceRoot string

	// provider used when a surface has not selected one (gpt|claude|grok|gemini)
	DefaultProvider string

	// whether a welcome notice is appended when the first surface connects
	ShowWelcome bool

	// "development" or "production"
	Environment string

	Port string
}
