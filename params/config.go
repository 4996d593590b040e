package params

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type API struct {
	Addr string
	// AllowedOrigins for browser clients of the REST/WS surface.
	AllowedOrigins []string
}

type Node struct {
	DataDir string
	LogFile string
}

type Exchange struct {
	// Admins are the hex addresses admitted by the asset-registration
	// gate. The first entry owns the demo assets minted at startup.
	Admins []string
	// DemoAssets are registered with stub tokens at startup so a fresh
	// devnet has something to trade.
	DemoAssets []string
}

type Config struct {
	API      API
	Node     Node
	Exchange Exchange
}

func Default() Config {
	return Config{
		API: API{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:3001"},
		},
		Node: Node{
			DataDir: "data",
			LogFile: "data/dexd.log",
		},
		Exchange: Exchange{
			Admins:     []string{"0x0000000000000000000000000000000000000001"},
			DemoAssets: []string{"LINK"},
		},
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	cfg.API.Addr = getEnv("API_ADDR", cfg.API.Addr)
	cfg.Node.DataDir = getEnv("DATA_DIR", cfg.Node.DataDir)
	cfg.Node.LogFile = getEnv("LOG_FILE", cfg.Node.LogFile)

	if origins := os.Getenv("API_ALLOWED_ORIGINS"); origins != "" {
		cfg.API.AllowedOrigins = splitList(origins)
	}
	if admins := os.Getenv("EXCHANGE_ADMINS"); admins != "" {
		cfg.Exchange.Admins = splitList(admins)
	}
	if assets := os.Getenv("EXCHANGE_DEMO_ASSETS"); assets != "" {
		cfg.Exchange.DemoAssets = splitList(assets)
	}

	return cfg
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// splitList parses a comma-separated list, trimming whitespace and
// dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
