package env

import (
	"os"

	"github.com/joho/godotenv"
)

// Env holds the values read from the first .env file found. Process
// environment variables always win over it.
var Env map[string]string

func GetEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if val, ok := Env[key]; ok && val != "" {
		return val
	}
	return def
}

// SetupEnvFile loads the first .env file it can find into the process
// environment without overriding variables that are already set. A missing
// file is not an error: containers usually inject the environment directly.
func SetupEnvFile() string {
	envFiles := []string{
		".env",          // Current directory
		"../../.env",    // From cmd/insights to project root
		"../../../.env", // Fallback for deeper nesting
	}

	for _, envFile := range envFiles {
		values, err := godotenv.Read(envFile)
		if err != nil {
			continue
		}
		Env = values
		for k, v := range values {
			if _, ok := os.LookupEnv(k); !ok {
				_ = os.Setenv(k, v)
			}
		}
		return envFile
	}

	return ""
}

func IsDev() bool {
	return GetEnv("APP_ENV", "prod") == "dev"
}
